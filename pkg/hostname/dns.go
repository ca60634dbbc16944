package hostname

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"time"
)

// lookuper is the subset of *net.Resolver used by DNS.
type lookuper interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNS resolves hosts through reverse and forward DNS lookups. Results are
// only as stable as the campus DNS zone; caching is left to the system resolver.
type DNS struct {
	resolver lookuper
	timeout  time.Duration
}

// NewDNS returns a DNS resolver using the system resolver.
func NewDNS(timeout time.Duration) *DNS {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &DNS{resolver: net.DefaultResolver, timeout: timeout}
}

// IPToHostname performs a PTR lookup and returns the first name without the trailing dot.
func (d *DNS) IPToHostname(ctx context.Context, ip string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil || !addr.Is4() {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	names, err := d.resolver.LookupAddr(ctx, addr.String())
	if err != nil || len(names) == 0 {
		return "", false
	}
	return strings.TrimSuffix(names[0], "."), true
}

// HostnameToIP returns the first IPv4 address the hostname resolves to.
func (d *DNS) HostnameToIP(ctx context.Context, hostname string) (string, bool) {
	hostname = strings.TrimSpace(hostname)
	if hostname == "" {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	addrs, err := d.resolver.LookupHost(ctx, hostname)
	if err != nil {
		return "", false
	}
	for _, raw := range addrs {
		if addr, err := netip.ParseAddr(raw); err == nil && addr.Is4() {
			return addr.String(), true
		}
	}
	return "", false
}
