package crawl

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/fwojciec/sitechat"
	"golang.org/x/time/rate"
)

var _ sitechat.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter provides per-domain rate limiting using token buckets.
// It creates a separate rate limiter for each domain, allowing concurrent
// requests to different domains while enforcing rate limits within each domain.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
}

// NewDomainLimiter creates a DomainLimiter that spaces requests to the
// same domain at least interval apart. The first request is immediate.
// A zero interval disables limiting.
func NewDomainLimiter(interval time.Duration) *DomainLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
	}
}

// Wait blocks until the rate limit allows a request to the domain.
// Returns an error if the context is canceled before the wait completes.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	d.mu.Lock()
	limiter, ok := d.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(d.limit, 1)
		d.limiters[domain] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}

var _ sitechat.Fetcher = (*LimitedFetcher)(nil)

// LimitedFetcher waits on a DomainLimiter before every fetch.
type LimitedFetcher struct {
	Fetcher sitechat.Fetcher
	Limiter sitechat.DomainLimiter
}

// NewLimitedFetcher wraps fetcher with limiter.
func NewLimitedFetcher(fetcher sitechat.Fetcher, limiter sitechat.DomainLimiter) *LimitedFetcher {
	return &LimitedFetcher{Fetcher: fetcher, Limiter: limiter}
}

// Fetch implements sitechat.Fetcher.
func (f *LimitedFetcher) Fetch(ctx context.Context, rawURL string) (*sitechat.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, sitechat.Errorf(sitechat.EINVALID, "invalid URL %q: %v", rawURL, err)
	}
	if err := f.Limiter.Wait(ctx, u.Host); err != nil {
		return nil, err
	}
	return f.Fetcher.Fetch(ctx, rawURL)
}
