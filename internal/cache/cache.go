// Package cache holds the URL-keyed response cache shared by every
// navigation request. Entries carry the body plus the validators needed to
// revalidate them; freshness is judged by the caller against the TTL class of
// the request, so one entry can be fresh for a 1-month lookup and stale for a
// 1-hour one.
package cache

import (
	"context"
	"errors"
	"path/filepath"
	"time"
)

// ErrNotFound is returned by Store.Get when no entry exists for a key.
var ErrNotFound = errors.New("cache: not found")

// Entry is one cached upstream response.
type Entry struct {
	Body         []byte    `json:"body"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	Hash         string    `json:"hash,omitempty"`
	StoredAt     time.Time `json:"stored_at"`
}

// Fresh reports whether e is younger than ttl at now.
func (e *Entry) Fresh(ttl time.Duration, now time.Time) bool {
	if e == nil || ttl <= 0 {
		return false
	}
	return now.Sub(e.StoredAt) < ttl
}

// CanRevalidate reports whether a conditional request can be built for e.
func (e *Entry) CanRevalidate() bool {
	return e != nil && (e.ETag != "" || e.LastModified != "")
}

// Store is a response cache keyed by request URL. Implementations must be
// safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key string, e *Entry) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Toucher is implemented by stores that can refresh an entry's validators
// and age without rewriting its body.
type Toucher interface {
	Touch(ctx context.Context, key, etag, lastModified string, storedAt time.Time) error
}

// DBPath returns the SQLite cache file location inside cacheDir.
func DBPath(cacheDir string) string {
	if cacheDir == "" {
		cacheDir = "."
	}
	return filepath.Join(filepath.Clean(cacheDir), "httpcache.db")
}
