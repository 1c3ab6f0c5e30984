package mock

import (
	"context"

	"github.com/fwojciec/sitechat"
)

var _ sitechat.SiteService = (*SiteService)(nil)

// SiteService is a mock implementation of sitechat.SiteService.
type SiteService struct {
	FindSiteByNameFn func(ctx context.Context, name string) (*sitechat.Site, error)
	FindSitesFn      func(ctx context.Context) ([]*sitechat.Site, error)
	UpsertSiteFn     func(ctx context.Context, site *sitechat.Site) error
}

func (s *SiteService) FindSiteByName(ctx context.Context, name string) (*sitechat.Site, error) {
	return s.FindSiteByNameFn(ctx, name)
}

func (s *SiteService) FindSites(ctx context.Context) ([]*sitechat.Site, error) {
	return s.FindSitesFn(ctx)
}

func (s *SiteService) UpsertSite(ctx context.Context, site *sitechat.Site) error {
	return s.UpsertSiteFn(ctx, site)
}

var _ sitechat.SiteRegistry = (*SiteRegistry)(nil)

// SiteRegistry is a mock implementation of sitechat.SiteRegistry.
type SiteRegistry struct {
	SiteFn  func(name string) (*sitechat.SiteConfig, error)
	SitesFn func() []*sitechat.SiteConfig
}

func (r *SiteRegistry) Site(name string) (*sitechat.SiteConfig, error) {
	return r.SiteFn(name)
}

func (r *SiteRegistry) Sites() []*sitechat.SiteConfig {
	return r.SitesFn()
}

var _ sitechat.StatsService = (*StatsService)(nil)

// StatsService is a mock implementation of sitechat.StatsService.
type StatsService struct {
	SiteStatsFn func(ctx context.Context) ([]*sitechat.SiteStats, error)
}

func (s *StatsService) SiteStats(ctx context.Context) ([]*sitechat.SiteStats, error) {
	return s.SiteStatsFn(ctx)
}
