package hostname

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Unknown is reported when a request cannot be tied to a workstation.
const Unknown = "unknown"

// FromRequest picks the workstation hostname for an incoming request: the
// explicit hostname when given, else the first X-Forwarded-For hop, else the
// peer address, translated through r.
func FromRequest(ctx context.Context, r Resolver, req *http.Request, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}

	ip := ""
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	} else if host, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		ip = host
	} else {
		ip = req.RemoteAddr
	}

	if ip == "" || r == nil {
		return Unknown
	}
	if name, ok := r.IPToHostname(ctx, ip); ok {
		return name
	}
	return Unknown
}
