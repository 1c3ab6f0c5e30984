package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/sitechat"
)

// Ensure LoggingSitemapService implements sitechat.SitemapService.
var _ sitechat.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService logs every sitemap lookup made for crawl seeds.
type LoggingSitemapService struct {
	next   sitechat.SitemapService
	logger *slog.Logger
}

func NewLoggingSitemapService(next sitechat.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

// DiscoverURLs logs the seed, the number of exclude patterns applied and
// the URLs found. Failures are logged at warn level since the crawl goes
// on without sitemap seeds.
func (s *LoggingSitemapService) DiscoverURLs(ctx context.Context, seed string, filter *sitechat.URLFilter) (urls []string, err error) {
	defer func(begin time.Time) {
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		var excludes int
		if filter != nil {
			excludes = len(filter.Exclude)
		}
		s.logger.Log(ctx, level, "sitemap seeds",
			"seed", seed,
			"excludes", excludes,
			"urls", len(urls),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DiscoverURLs(ctx, seed, filter)
}
