// Package fetch retrieves upstream documents through the shared response
// cache.
//
// Every navigation action issues at most one network request per document:
//   - a cache entry younger than the request's TTL is served without I/O
//   - a stale entry with validators is revalidated (304 refreshes it)
//   - a refetched body with the cached content hash only refreshes the entry
//   - otherwise the document is fetched and stored
//
// A 404 or 410 drops the cached entry for the URL.
//
// Failures are returned to the caller unchanged; nothing is retried.
package fetch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snapetech/tv4play/internal/cache"
	"github.com/snapetech/tv4play/internal/httpclient"
	"github.com/snapetech/tv4play/internal/metrics"
)

// Options configures a Fetcher. Zero values are replaced by New.
type Options struct {
	Client  *http.Client            // nil = httpclient.Default()
	Store   cache.Store             // nil = in-memory store without age limit
	Limiter *httpclient.HostLimiter // nil = unlimited
	Logger  logrus.FieldLogger      // nil = logrus standard logger
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	store   cache.Store
	limiter *httpclient.HostLimiter
	log     logrus.FieldLogger
	now     func() time.Time
}

// New returns a Fetcher.
func New(opts Options) *Fetcher {
	f := &Fetcher{
		client:  opts.Client,
		store:   opts.Store,
		limiter: opts.Limiter,
		log:     opts.Logger,
		now:     time.Now,
	}
	if f.client == nil {
		f.client = httpclient.Default()
	}
	if f.store == nil {
		f.store = cache.NewMemoryStore(0, 0)
	}
	if f.log == nil {
		f.log = logrus.StandardLogger()
	}
	return f
}

// Fetch returns the body of url. A cached copy younger than ttl is returned
// as is; ttl <= 0 always goes to the network.
func (f *Fetcher) Fetch(ctx context.Context, url string, ttl time.Duration) ([]byte, error) {
	class := ttl.String()
	log := f.log.WithField("url", url)

	entry, err := f.store.Get(ctx, url)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			log.WithError(err).Warn("cache read failed; fetching upstream")
		}
		entry = nil
	}
	now := f.now()
	if entry.Fresh(ttl, now) {
		metrics.Fetches.WithLabelValues(class, metrics.ResultHit).Inc()
		log.Debug("cache hit")
		return entry.Body, nil
	}

	var etag, lastModified string
	if entry.CanRevalidate() {
		etag, lastModified = entry.ETag, entry.LastModified
	}
	res, err := ConditionalGet(ctx, f.client, f.limiter, url, etag, lastModified)
	if errors.Is(err, ErrNotModified) && entry != nil {
		f.touch(ctx, log, url, entry, entry.ETag, entry.LastModified, now)
		metrics.Fetches.WithLabelValues(class, metrics.ResultRevalidated).Inc()
		log.Debug("cache revalidated (304)")
		return entry.Body, nil
	}
	if err != nil {
		var se *StatusError
		if entry != nil && errors.As(err, &se) && (se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusGone) {
			if derr := f.store.Delete(ctx, url); derr != nil {
				log.WithError(derr).Warn("cache delete failed")
			}
		}
		metrics.Fetches.WithLabelValues(class, metrics.ResultError).Inc()
		return nil, err
	}

	if entry != nil && entry.Hash != "" && entry.Hash == res.ContentHash {
		f.touch(ctx, log, url, entry, res.ETag, res.LastModified, now)
		metrics.Fetches.WithLabelValues(class, metrics.ResultUnchanged).Inc()
		log.Debug("refetched; content unchanged")
		return entry.Body, nil
	}
	f.put(ctx, log, url, &cache.Entry{
		Body:         res.Body,
		ETag:         res.ETag,
		LastModified: res.LastModified,
		ContentType:  res.ContentType,
		Hash:         res.ContentHash,
		StoredAt:     now,
	})
	metrics.Fetches.WithLabelValues(class, metrics.ResultMiss).Inc()
	log.WithField("bytes", len(res.Body)).Debug("fetched")
	return res.Body, nil
}

// touch marks e as stored at now with new validators. Stores that can do so
// skip the body; others get the whole entry again.
func (f *Fetcher) touch(ctx context.Context, log logrus.FieldLogger, url string, e *cache.Entry, etag, lastModified string, now time.Time) {
	if t, ok := f.store.(cache.Toucher); ok {
		err := t.Touch(ctx, url, etag, lastModified, now)
		if err == nil {
			return
		}
		if !errors.Is(err, cache.ErrNotFound) {
			log.WithError(err).Warn("cache touch failed")
			return
		}
	}
	e.ETag, e.LastModified, e.StoredAt = etag, lastModified, now
	f.put(ctx, log, url, e)
}

// A failed cache write never fails the navigation; the body is still good.
func (f *Fetcher) put(ctx context.Context, log logrus.FieldLogger, url string, e *cache.Entry) {
	if err := f.store.Put(ctx, url, e); err != nil {
		log.WithError(err).Warn("cache write failed")
	}
}
