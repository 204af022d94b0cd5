package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snapetech/tv4play/internal/cache"
	"github.com/snapetech/tv4play/internal/config"
	"github.com/snapetech/tv4play/internal/fetch"
	"github.com/snapetech/tv4play/internal/httpclient"
	"github.com/snapetech/tv4play/internal/menu"
	"github.com/snapetech/tv4play/internal/tv4"
)

// stack is the wired navigation pipeline shared by every subcommand.
type stack struct {
	site    config.Site
	store   cache.Store
	fetcher *fetch.Fetcher
	builder *menu.Builder
	log     logrus.FieldLogger
}

func newStack(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*stack, error) {
	site := cfg.Site()
	store, err := cache.Open(ctx, cache.Options{
		Backend:  cfg.CacheBackend,
		Dir:      cfg.CacheDir,
		RedisURL: cfg.RedisURL,
		MaxAge:   cfg.CacheTTLLong,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.CacheBackend, err)
	}
	f := fetch.New(fetch.Options{
		Client:  httpclient.New(cfg.HTTPTimeout, cfg.UserAgent),
		Store:   store,
		Limiter: httpclient.NewHostLimiter(cfg.HostConcurrency, cfg.RateLimit),
		Logger:  log,
	})
	nav := tv4.NewNavigator(site, f, log)
	log.WithFields(logrus.Fields{"site": cfg.SiteURL, "cache": cfg.CacheBackend}).Debug("navigation stack ready")
	return &stack{
		site:    site,
		store:   store,
		fetcher: f,
		builder: menu.NewBuilder(nav, log),
		log:     log,
	}, nil
}

func (s *stack) Close() {
	if err := s.store.Close(); err != nil {
		s.log.WithError(err).Warn("close cache")
	}
}

// warm fetches the root catalog with the short TTL.
func (s *stack) warm(ctx context.Context) error {
	_, err := s.fetcher.Fetch(ctx, s.site.CatalogURL, s.site.TTL)
	return err
}

// warmLoop warms the catalog every interval until ctx is done. A SQLite
// cache is also purged of entries older than the long TTL.
func (s *stack) warmLoop(ctx context.Context, interval time.Duration, record func(time.Time, error)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		err := s.warm(ctx)
		record(time.Now(), err)
		if err != nil {
			s.log.WithError(err).Warn("catalog warm failed")
		}
		if db, ok := s.store.(*cache.SQLiteStore); ok {
			if n, err := db.Purge(ctx, time.Now().Add(-s.site.TTLLong)); err != nil {
				s.log.WithError(err).Warn("cache purge failed")
			} else if n > 0 {
				s.log.WithField("entries", n).Info("cache purged")
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func printMenu(w io.Writer, prefix, format string, m *menu.Menu) error {
	r := menu.Renderer{Prefix: prefix, Resources: "/resources"}
	switch strings.ToLower(format) {
	case "xml":
		return r.WriteXML(w, m)
	case "json":
		return r.WriteJSON(w, m)
	}
	title := m.Title1
	if m.Title2 != "" {
		title += " / " + m.Title2
	}
	fmt.Fprintln(w, title)
	for _, it := range m.Items {
		switch it.Kind {
		case menu.KindVideo:
			fmt.Fprintf(w, "  ▶ %s  [%s]\n      %s\n", it.Title, it.Info, it.PlayURL)
		default:
			fmt.Fprintf(w, "  + %s\n      %s\n", it.Title, r.Key(it))
		}
	}
	return nil
}
