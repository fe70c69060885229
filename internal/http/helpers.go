package http

import (
	"net"
	"net/http"
)

// clientIP is the request's remote host; RealIP has already applied any
// forwarding headers.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
