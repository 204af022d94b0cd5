package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/snapetech/tv4play/internal/httpclient"
	"github.com/snapetech/tv4play/internal/metrics"
)

// MaxBodyBytes bounds a single upstream document.
const MaxBodyBytes = 16 << 20

// ErrNotModified is returned by ConditionalGet when the server responds 304.
var ErrNotModified = errors.New("fetch: 304 not modified")

// StatusError is returned for any upstream status other than 200 and 304.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// GetResult carries the decoded body and the cache-validator headers from a
// successful (200) ConditionalGet call.
type GetResult struct {
	Body         []byte
	ETag         string
	LastModified string
	ContentType  string
	ContentHash  string
}

// ConditionalGet issues one GET with If-None-Match / If-Modified-Since when
// etag / lastModified are non-empty. Returns ErrNotModified on 304. On 200 it
// reads and decodes (br, gzip) the full body. There are no retries; limiter
// may be nil.
func ConditionalGet(ctx context.Context, client *http.Client, limiter *httpclient.HostLimiter, url, etag, lastModified string) (*GetResult, error) {
	if client == nil {
		client = httpclient.Default()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("condget: build request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "br, gzip")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	if limiter != nil {
		release, err := limiter.Acquire(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("condget %s: %w", url, err)
		}
		defer release()
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		metrics.ObserveUpstream(0, start)
		return nil, fmt.Errorf("condget %s: %w", url, err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream(resp.StatusCode, start)

	if resp.StatusCode == http.StatusNotModified {
		return nil, ErrNotModified
	}
	if resp.StatusCode != http.StatusOK {
		if ok, cfErr := IsCFResponse(resp); ok {
			return nil, cfErr
		}
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("condget %s: read body: %w", url, err)
	}

	return &GetResult{
		Body:         body,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		ContentType:  resp.Header.Get("Content-Type"),
		ContentHash:  ContentHash(body),
	}, nil
}

// readBody undoes Content-Encoding. Setting Accept-Encoding ourselves turns
// off the transport's transparent gzip, so both codings are handled here.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
	body, err := io.ReadAll(io.LimitReader(r, MaxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", MaxBodyBytes)
	}
	return body, nil
}
