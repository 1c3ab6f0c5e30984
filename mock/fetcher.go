package mock

import (
	"context"

	"github.com/fwojciec/sitechat"
)

var _ sitechat.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of sitechat.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*sitechat.Response, error)
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*sitechat.Response, error) {
	return f.FetchFn(ctx, url)
}

var _ sitechat.RobotsPolicy = (*RobotsPolicy)(nil)

// RobotsPolicy is a mock implementation of sitechat.RobotsPolicy.
type RobotsPolicy struct {
	AllowedFn func(ctx context.Context, url string) bool
}

func (p *RobotsPolicy) Allowed(ctx context.Context, url string) bool {
	return p.AllowedFn(ctx, url)
}
