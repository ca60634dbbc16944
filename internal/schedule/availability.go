// Package schedule answers exam scheduling questions over a loaded set of
// exams. Everything here is pure: results depend only on the arguments.
package schedule

import (
	"net/netip"
	"strings"

	"go4.org/netipx"

	"github.com/codam/web-greeter/internal/models"
)

// IsAvailable reports whether hostIP falls inside at least one of the exam's
// IP ranges. Entries may be CIDR prefixes, "from-to" ranges or single
// addresses. Entries that fail to parse never match.
func IsAvailable(exam models.Exam, hostIP string) bool {
	if len(exam.IPRange) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(hostIP))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, entry := range exam.IPRange {
		if rangeContains(entry, addr) {
			return true
		}
	}
	return false
}

func rangeContains(entry string, addr netip.Addr) bool {
	entry = strings.TrimSpace(entry)
	switch {
	case strings.Contains(entry, "/"):
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return false
		}
		return prefix.Masked().Contains(addr)
	case strings.Contains(entry, "-"):
		r, err := netipx.ParseIPRange(entry)
		if err != nil {
			return false
		}
		return r.Contains(addr)
	default:
		single, err := netip.ParseAddr(entry)
		if err != nil {
			return false
		}
		return single.Unmap() == addr
	}
}
