// Package safeurl vets upstream URLs that arrive as request parameters.
package safeurl

import (
	"net/url"
	"strings"
)

// IsHTTPOrHTTPS returns true if u is a valid URL with scheme http or https.
// Used to reject file://, ftp://, and other schemes that could lead to SSRF or local file access.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	s := parsed.Scheme
	return s == "http" || s == "https"
}

// Allowed reports whether u is http(s) and its host is one of domains or a
// subdomain of one. Ports are ignored.
func Allowed(u string, domains []string) bool {
	if !IsHTTPOrHTTPS(u) {
		return false
	}
	parsed, _ := url.Parse(u)
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "."))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
