// Package hostname maps campus workstations between their IPv4 address and
// their canonical hostname.
//
// Workstations are named {cluster}{N}{row}{M}{seat}{K}{suffix}, for example
// f2r3s4.codam.nl, and live at 10.{N+10}.{M}.{K}.
package hostname

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Resolver translates between workstation addresses and hostnames. The bool
// result is false when the input is outside the accepted grammar.
type Resolver interface {
	IPToHostname(ctx context.Context, ip string) (string, bool)
	HostnameToIP(ctx context.Context, hostname string) (string, bool)
}

// Tokens are the letters and suffix of the naming scheme.
type Tokens struct {
	Cluster string
	Row     string
	Seat    string
	Suffix  string
}

// DefaultTokens matches the Codam cluster naming.
var DefaultTokens = Tokens{Cluster: "f", Row: "r", Seat: "s", Suffix: ".codam.nl"}

const (
	firstOctet    = 10
	clusterOffset = 10
)

// Formula resolves hosts purely from the naming convention. It does no I/O.
type Formula struct {
	tokens  Tokens
	pattern *regexp.Regexp
}

// NewFormula builds a Formula resolver. Empty tokens fall back to DefaultTokens.
func NewFormula(tokens Tokens) *Formula {
	if tokens.Cluster == "" {
		tokens.Cluster = DefaultTokens.Cluster
	}
	if tokens.Row == "" {
		tokens.Row = DefaultTokens.Row
	}
	if tokens.Seat == "" {
		tokens.Seat = DefaultTokens.Seat
	}
	pattern := fmt.Sprintf(`^%s(\d+)%s(\d+)%s(\d+)%s$`,
		regexp.QuoteMeta(tokens.Cluster),
		regexp.QuoteMeta(tokens.Row),
		regexp.QuoteMeta(tokens.Seat),
		regexp.QuoteMeta(tokens.Suffix),
	)
	return &Formula{tokens: tokens, pattern: regexp.MustCompile(pattern)}
}

// IPToHostname converts 10.x.y.z into its hostname. IPv6 is not supported.
func (f *Formula) IPToHostname(_ context.Context, ip string) (string, bool) {
	octets, ok := parseIPv4(ip)
	if !ok || octets[0] != firstOctet || octets[1] < clusterOffset {
		return "", false
	}
	return f.format(octets[1]-clusterOffset, octets[2], octets[3]), true
}

// HostnameToIP is the inverse of IPToHostname.
func (f *Formula) HostnameToIP(_ context.Context, hostname string) (string, bool) {
	m := f.pattern.FindStringSubmatch(strings.TrimSpace(hostname))
	if m == nil {
		return "", false
	}
	parts := make([]int, 3)
	for i, raw := range m[1:] {
		n, ok := parseCanonical(raw)
		if !ok {
			return "", false
		}
		parts[i] = n
	}
	second := parts[0] + clusterOffset
	if second > 255 || parts[1] > 255 || parts[2] > 255 {
		return "", false
	}
	return fmt.Sprintf("%d.%d.%d.%d", firstOctet, second, parts[1], parts[2]), true
}

func (f *Formula) format(cluster, row, seat int) string {
	var b strings.Builder
	b.WriteString(f.tokens.Cluster)
	b.WriteString(strconv.Itoa(cluster))
	b.WriteString(f.tokens.Row)
	b.WriteString(strconv.Itoa(row))
	b.WriteString(f.tokens.Seat)
	b.WriteString(strconv.Itoa(seat))
	b.WriteString(f.tokens.Suffix)
	return b.String()
}

// parseIPv4 accepts exactly four decimal octets in 0-255.
func parseIPv4(ip string) ([4]int, bool) {
	var out [4]int
	ip = strings.TrimSpace(ip)
	if strings.Contains(ip, ":") {
		return out, false
	}
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return out, false
	}
	for i, p := range parts {
		n, ok := parseCanonical(p)
		if !ok || n > 255 {
			return out, false
		}
		out[i] = n
	}
	return out, true
}

// parseCanonical parses a non-negative decimal without sign or leading zeros,
// so that every number has exactly one textual form.
func parseCanonical(s string) (int, bool) {
	if s == "" || len(s) > 3 {
		return 0, false
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
