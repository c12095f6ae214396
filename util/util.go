// Package util provides utitlity functions.
package util

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

const (
	headerXForwardedFor = "X-Forwarded-For"
	headerXRealIP       = "X-Real-IP"
)

// URLToDomain extracts domain from given link
func URLToDomain(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", err
	}

	parts := strings.Split(u.Hostname(), ".")
	if len(parts[0]) > 4 {
		return strings.Join(parts, "."), nil
	}
	if strings.HasPrefix(parts[0], "www") {
		return strings.Join(parts[1:], "."), nil
	}

	return strings.Join(parts, "."), nil
}

// RealIP tries to extract real ip from request r using X-Forwarded-For and X-Real-IP headers
func RealIP(r *http.Request) string {
	ra := r.RemoteAddr
	if ip := r.Header.Get(headerXForwardedFor); ip != "" {
		ra = strings.Split(ip, ", ")[0]
	} else if ip := r.Header.Get(headerXRealIP); ip != "" {
		ra = ip
	} else {
		ra, _, _ = net.SplitHostPort(ra)
	}

	return ra
}
