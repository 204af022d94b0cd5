package fetch_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/snapetech/tv4play/internal/cache"
	"github.com/snapetech/tv4play/internal/fetch"
)

// ─── Conditional GET ─────────────────────────────────────────────────────────

func TestConditionalGet_304(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"abc"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "hello")
	}))
	defer srv.Close()

	ctx := context.Background()
	res, err := fetch.ConditionalGet(ctx, srv.Client(), nil, srv.URL+"/", "", "")
	if err != nil {
		t.Fatalf("first GET: %v", err)
	}
	if string(res.Body) != "hello" {
		t.Fatalf("body = %q, want hello", res.Body)
	}
	if res.ETag != `"abc"` {
		t.Fatalf("ETag = %q, want \"abc\"", res.ETag)
	}
	if res.ContentHash != fetch.ContentHash([]byte("hello")) {
		t.Errorf("ContentHash = %q", res.ContentHash)
	}

	_, err = fetch.ConditionalGet(ctx, srv.Client(), nil, srv.URL+"/", res.ETag, "")
	if err != fetch.ErrNotModified {
		t.Fatalf("second GET: expected ErrNotModified, got %v", err)
	}
}

func TestConditionalGet_brotli(t *testing.T) {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	bw.Write([]byte("<xml>brotli</xml>"))
	bw.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "br, gzip" {
			t.Errorf("Accept-Encoding = %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	res, err := fetch.ConditionalGet(context.Background(), srv.Client(), nil, srv.URL, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Body) != "<xml>brotli</xml>" {
		t.Errorf("body = %q", res.Body)
	}
}

func TestConditionalGet_gzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte("zipped"))
	gw.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	res, err := fetch.ConditionalGet(context.Background(), srv.Client(), nil, srv.URL, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Body) != "zipped" {
		t.Errorf("body = %q", res.Body)
	}
}

func TestConditionalGet_statusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fetch.ConditionalGet(context.Background(), srv.Client(), nil, srv.URL, "", "")
	var se *fetch.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d", se.StatusCode)
	}
}

func TestConditionalGet_cloudflareBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "cloudflare")
		w.Header().Set("CF-RAY", "abc123-ARN")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := fetch.ConditionalGet(context.Background(), srv.Client(), nil, srv.URL, "", "")
	var blocked *fetch.ErrBlocked
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want *ErrBlocked", err)
	}
	if blocked.Header != "CF-RAY" {
		t.Errorf("Header = %q, want CF-RAY", blocked.Header)
	}
}

// ─── Fetcher ─────────────────────────────────────────────────────────────────

func TestFetcher_freshEntryServedFromCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "catalog")
	}))
	defer srv.Close()

	f := fetch.New(fetch.Options{Client: srv.Client()})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		body, err := f.Fetch(ctx, srv.URL+"/?view=xml", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if string(body) != "catalog" {
			t.Fatalf("body = %q", body)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("upstream hits = %d, want 1", n)
	}
}

func TestFetcher_staleEntryRevalidated(t *testing.T) {
	var hits, conditional atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		fmt.Fprint(w, "views")
	}))
	defer srv.Close()

	store := cache.NewMemoryStore(0, 0)
	url := srv.URL + "/1.2345?view=xml"
	ctx := context.Background()
	// Seed a stale entry.
	_ = store.Put(ctx, url, &cache.Entry{Body: []byte("views"), ETag: `"v1"`, StoredAt: time.Now().Add(-2 * time.Hour)})

	f := fetch.New(fetch.Options{Client: srv.Client(), Store: store})
	body, err := f.Fetch(ctx, url, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "views" {
		t.Errorf("body = %q", body)
	}
	if conditional.Load() != 1 {
		t.Errorf("conditional requests = %d, want 1", conditional.Load())
	}
	// Revalidation refreshed StoredAt, so a second call is a pure hit.
	if _, err := f.Fetch(ctx, url, time.Hour); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1", hits.Load())
	}
}

func TestFetcher_ttlClassesShareEntry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "doc")
	}))
	defer srv.Close()

	store := cache.NewMemoryStore(0, 0)
	ctx := context.Background()
	_ = store.Put(ctx, srv.URL, &cache.Entry{Body: []byte("doc"), StoredAt: time.Now().Add(-2 * time.Hour)})
	f := fetch.New(fetch.Options{Client: srv.Client(), Store: store})

	// Fresh for the long class...
	if _, err := f.Fetch(ctx, srv.URL, 30*24*time.Hour); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 0 {
		t.Fatalf("long TTL lookup hit upstream")
	}
	// ...stale for the short one.
	if _, err := f.Fetch(ctx, srv.URL, time.Hour); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1", hits.Load())
	}
}

func TestFetcher_failureNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := fetch.New(fetch.Options{Client: srv.Client()})
	_, err := f.Fetch(context.Background(), srv.URL, time.Hour)
	if err == nil {
		t.Fatal("expected error for 500")
	}
	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want exactly 1", hits.Load())
	}
}

func TestFetcher_goneDropsEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := cache.NewMemoryStore(0, 0)
	ctx := context.Background()
	_ = store.Put(ctx, srv.URL, &cache.Entry{Body: []byte("old"), ETag: `"x"`, StoredAt: time.Now().Add(-2 * time.Hour)})
	f := fetch.New(fetch.Options{Client: srv.Client(), Store: store})

	_, err := f.Fetch(ctx, srv.URL, time.Hour)
	var se *fetch.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 StatusError", err)
	}
	if _, err := store.Get(ctx, srv.URL); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("cached entry after 404: err = %v, want ErrNotFound", err)
	}
}

func TestFetcher_serverErrorKeepsEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	store := cache.NewMemoryStore(0, 0)
	ctx := context.Background()
	_ = store.Put(ctx, srv.URL, &cache.Entry{Body: []byte("old"), StoredAt: time.Now().Add(-2 * time.Hour)})
	f := fetch.New(fetch.Options{Client: srv.Client(), Store: store})

	if _, err := f.Fetch(ctx, srv.URL, time.Hour); err == nil {
		t.Fatal("expected error for 502")
	}
	if _, err := store.Get(ctx, srv.URL); err != nil {
		t.Errorf("cached entry after 502: %v, want kept", err)
	}
}

// countingStore records full writes and body-free refreshes.
type countingStore struct {
	*cache.MemoryStore
	puts, touches int
}

func (s *countingStore) Put(ctx context.Context, key string, e *cache.Entry) error {
	s.puts++
	return s.MemoryStore.Put(ctx, key, e)
}

func (s *countingStore) Touch(ctx context.Context, key, etag, lastModified string, storedAt time.Time) error {
	s.touches++
	return s.MemoryStore.Touch(ctx, key, etag, lastModified, storedAt)
}

func TestFetcher_unchangedBodyNotRewritten(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Last-Modified", "Sat, 28 Nov 2009 20:15:00 GMT")
		fmt.Fprint(w, "same")
	}))
	defer srv.Close()

	store := &countingStore{MemoryStore: cache.NewMemoryStore(0, 0)}
	ctx := context.Background()
	old := time.Now().Add(-2 * time.Hour)
	_ = store.MemoryStore.Put(ctx, srv.URL, &cache.Entry{Body: []byte("same"), Hash: fetch.ContentHash([]byte("same")), StoredAt: old})
	f := fetch.New(fetch.Options{Client: srv.Client(), Store: store})

	body, err := f.Fetch(ctx, srv.URL, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "same" || hits.Load() != 1 {
		t.Fatalf("body = %q, hits = %d", body, hits.Load())
	}
	if store.puts != 0 || store.touches != 1 {
		t.Errorf("puts = %d, touches = %d; want 0 and 1", store.puts, store.touches)
	}
	e, err := store.Get(ctx, srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !e.StoredAt.After(old) || e.LastModified != "Sat, 28 Nov 2009 20:15:00 GMT" {
		t.Errorf("entry = %+v, want refreshed StoredAt and validators", e)
	}
}
