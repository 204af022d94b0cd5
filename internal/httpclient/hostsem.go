package httpclient

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter paces and caps outbound requests per upstream host. Concurrent
// navigation requests share one limiter.
//
//	release, err := limiter.Acquire(ctx, rawURL)
//	if err != nil { return err }
//	defer release()
type HostLimiter struct {
	mu       sync.Mutex
	sems     map[string]chan struct{}
	limiters map[string]*rate.Limiter
	limit    int
	rps      rate.Limit
	burst    int
}

// NewHostLimiter allows at most concurrency in-flight requests and rps
// requests per second per host. rps <= 0 disables pacing.
func NewHostLimiter(concurrency int, rps float64) *HostLimiter {
	if concurrency < 1 {
		concurrency = 1
	}
	h := &HostLimiter{
		sems:     make(map[string]chan struct{}),
		limiters: make(map[string]*rate.Limiter),
		limit:    concurrency,
		rps:      rate.Inf,
		burst:    1,
	}
	if rps > 0 {
		h.rps = rate.Limit(rps)
		h.burst = int(rps)
		if h.burst < 1 {
			h.burst = 1
		}
	}
	return h
}

// Acquire waits for a rate token and a concurrency slot for the host of
// rawURL and returns a release func. It gives up when ctx is done.
func (h *HostLimiter) Acquire(ctx context.Context, rawURL string) (func(), error) {
	key := hostKey(rawURL)
	sem, lim := h.forHost(key)
	if err := lim.Wait(ctx); err != nil {
		return nil, err
	}
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *HostLimiter) forHost(key string) (chan struct{}, *rate.Limiter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sems[key]
	if !ok {
		s = make(chan struct{}, h.limit)
		h.sems[key] = s
	}
	l, ok := h.limiters[key]
	if !ok {
		l = rate.NewLimiter(h.rps, h.burst)
		h.limiters[key] = l
	}
	return s, l
}

// hostKey normalises to scheme+host so paths and queries share one limiter.
func hostKey(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Scheme + "://" + u.Host
	}
	return rawURL
}
