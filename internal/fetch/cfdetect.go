package fetch

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrBlocked is returned when a non-200 response carries Cloudflare markers:
// a challenge page rather than a missing document.
type ErrBlocked struct {
	URL        string
	StatusCode int
	Header     string // which header triggered detection
	Value      string
}

func (e *ErrBlocked) Error() string {
	return fmt.Sprintf("fetch %s: blocked by cloudflare (status %d, header %s: %s)", e.URL, e.StatusCode, e.Header, e.Value)
}

// cfResponseHeaders is the set of response headers that indicate Cloudflare.
var cfResponseHeaders = []string{
	"CF-RAY",
	"CF-Mitigated",
	"CF-Chl-Bypass",
}

// IsCFResponse reports whether resp (already known to be non-200) is a
// Cloudflare challenge or block page.
func IsCFResponse(resp *http.Response) (bool, error) {
	if resp == nil {
		return false, nil
	}
	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusServiceUnavailable, http.StatusTooManyRequests:
	default:
		return false, nil
	}
	url := ""
	if resp.Request != nil && resp.Request.URL != nil {
		url = resp.Request.URL.String()
	}
	for _, h := range cfResponseHeaders {
		if v := resp.Header.Get(h); v != "" {
			return true, &ErrBlocked{URL: url, StatusCode: resp.StatusCode, Header: h, Value: v}
		}
	}
	if server := resp.Header.Get("Server"); strings.Contains(strings.ToLower(server), "cloudflare") {
		return true, &ErrBlocked{URL: url, StatusCode: resp.StatusCode, Header: "Server", Value: server}
	}
	return false, nil
}
