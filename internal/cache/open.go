package cache

import (
	"context"
	"fmt"
	"time"
)

// Options selects and configures a Store for Open.
type Options struct {
	Backend  string // memory | sqlite | redis
	Dir      string // sqlite: directory holding httpcache.db
	RedisURL string
	MaxAge   time.Duration // longest TTL class in use; older entries are discarded
}

// Open builds the Store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStore(opts.MaxAge, 0), nil
	case "sqlite":
		return OpenSQLite(ctx, DBPath(opts.Dir), opts.MaxAge)
	case "redis":
		return OpenRedis(ctx, opts.RedisURL, opts.MaxAge)
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", opts.Backend)
	}
}
