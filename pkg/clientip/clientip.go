// Package clientip resolves the address a request came from.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the peer address of r without the port. Proxy headers
// are ignored: the API is reached directly, so they would only let a client
// pick its own rate-limit bucket or forge the IP kept on a consent record.
func RealClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	// drop an IPv6 zone such as %eth0
	if i := strings.IndexByte(host, '%'); i != -1 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}
