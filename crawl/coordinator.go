package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/sitechat"
)

// DefaultMaxDepth is used when neither the caller nor the site config
// sets a crawl depth.
const DefaultMaxDepth = 3

// Summary reports the outcome of crawling one site.
type Summary struct {
	SiteName string   `json:"siteName"`
	BaseURLs []string `json:"baseUrls"`
	MaxDepth int      `json:"maxDepth"`

	// Discovered counts every URL the crawl reached.
	Discovered int `json:"discovered"`
	// TotalURLs counts newly recorded URLs.
	TotalURLs int `json:"totalUrls"`
	// ContentPages counts new URLs saved with content.
	ContentPages int `json:"contentPages"`
	// Skipped counts URLs already stored for the site.
	Skipped int `json:"skipped"`
	// Failed counts URLs that could not be stored.
	Failed int `json:"failed"`

	URLs      []URLRecord `json:"urls"`
	ScrapedAt time.Time   `json:"scrapedAt"`
}

// URLRecord describes one newly recorded URL.
type URLRecord struct {
	URL           string `json:"url"`
	Depth         int    `json:"depth"`
	Title         string `json:"title,omitempty"`
	StatusCode    int    `json:"statusCode,omitempty"`
	ContentLength int    `json:"contentLength"`
}

// ProgressEvent reports progress during a crawl.
type ProgressEvent struct {
	Type  ProgressType
	URL   string
	Depth int
	Error error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressSkipped ProgressType = iota
	ProgressSaved
	ProgressEmpty
	ProgressFailed
)

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// Coordinator crawls configured sites and records new pages.
type Coordinator struct {
	Registry sitechat.SiteRegistry
	Sites    sitechat.SiteService
	URLs     sitechat.URLService
	Pages    sitechat.PageWriter

	Crawler *Crawler
	Content *ContentFetcher

	// Sitemaps supplies extra seeds for sites that enable it. Optional.
	Sitemaps sitechat.SitemapService

	DefaultMaxDepth int
	Progress        ProgressFunc
	Logger          *slog.Logger
	Now             func() time.Time
}

// CrawlSite crawls the named site and stores every URL not already known.
//
// Known URLs are skipped without fetching their content. New URLs are
// recorded even when they yield no content, so they are not retried on the
// next crawl. Per-URL store failures are counted and do not stop the crawl.
// Unknown sites fail with ECONFIG, sites without enabled seeds with EINVALID.
func (c *Coordinator) CrawlSite(ctx context.Context, name string, maxDepthOverride *int) (*Summary, error) {
	cfg, err := c.Registry.Site(name)
	if err != nil {
		return nil, err
	}
	seeds := cfg.EnabledURLs()
	if len(seeds) == 0 {
		return nil, sitechat.Errorf(sitechat.EINVALID, "no enabled URLs for site %q", name)
	}

	depth := c.maxDepth(cfg, maxDepthOverride)
	summary := &Summary{
		SiteName: name,
		BaseURLs: seeds,
		MaxDepth: depth,
		URLs:     []URLRecord{},
	}

	site := &sitechat.Site{Name: name, BaseURLs: seeds, MaxDepth: depth}
	existing, err := c.existingURLs(ctx, site)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		c.logger().Info("found existing URLs", "site", name, "count", len(existing))
	}

	// The site is created or updated before its first URL is stored.
	upserted := false
	ensureSite := func() error {
		if upserted {
			return nil
		}
		if err := c.Sites.UpsertSite(ctx, site); err != nil {
			return fmt.Errorf("upsert site %q: %w", name, err)
		}
		upserted = true
		return nil
	}

	walkSeeds := append([]string(nil), seeds...)
	if cfg.Sitemap && c.Sitemaps != nil {
		walkSeeds = append(walkSeeds, c.sitemapSeeds(ctx, seeds)...)
	}

	visit := func(link sitechat.DiscoveredLink, page *Page) error {
		summary.Discovered++

		if existing[link.URL] {
			summary.Skipped++
			c.logger().Debug("skipping existing URL", "url", link.URL)
			c.progress(ProgressEvent{Type: ProgressSkipped, URL: link.URL, Depth: link.Depth})
			return nil
		}

		var result *sitechat.PageResult
		if page != nil {
			if page.Err != nil {
				result = &sitechat.PageResult{URL: link.URL}
			} else {
				result = c.Content.Extract(link.URL, page.Response)
			}
		} else {
			result = c.Content.Fetch(ctx, link.URL)
		}

		if err := ensureSite(); err != nil {
			return err
		}

		record, err := c.save(ctx, site.ID, link, result)
		if err != nil {
			summary.Failed++
			c.logger().Error("failed to store URL", "url", link.URL, "error", err)
			c.progress(ProgressEvent{Type: ProgressFailed, URL: link.URL, Depth: link.Depth, Error: err})
			return nil
		}
		existing[link.URL] = true

		summary.TotalURLs++
		summary.URLs = append(summary.URLs, *record)
		if record.ContentLength > 0 {
			summary.ContentPages++
			c.progress(ProgressEvent{Type: ProgressSaved, URL: link.URL, Depth: link.Depth})
		} else {
			c.progress(ProgressEvent{Type: ProgressEmpty, URL: link.URL, Depth: link.Depth})
		}
		return nil
	}

	if err := c.Crawler.Walk(ctx, walkSeeds, depth, visit); err != nil {
		return nil, err
	}
	if err := ensureSite(); err != nil {
		return nil, err
	}

	summary.ScrapedAt = c.now()
	c.logger().Info("crawl finished",
		"site", name,
		"discovered", summary.Discovered,
		"new_urls", summary.TotalURLs,
		"content_pages", summary.ContentPages,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (c *Coordinator) maxDepth(cfg *sitechat.SiteConfig, override *int) int {
	switch {
	case override != nil:
		return *override
	case cfg.MaxDepth > 0:
		return cfg.MaxDepth
	case c.DefaultMaxDepth > 0:
		return c.DefaultMaxDepth
	default:
		return DefaultMaxDepth
	}
}

// existingURLs loads the URLs already stored for the site and fills in
// site.ID when the site exists.
func (c *Coordinator) existingURLs(ctx context.Context, site *sitechat.Site) (map[string]bool, error) {
	existing := make(map[string]bool)

	stored, err := c.Sites.FindSiteByName(ctx, site.Name)
	if sitechat.ErrorCode(err) == sitechat.ENOTFOUND {
		return existing, nil
	} else if err != nil {
		return nil, fmt.Errorf("find site %q: %w", site.Name, err)
	}
	site.ID = stored.ID

	urls, err := c.URLs.FindURLs(ctx, sitechat.URLRecordFilter{SiteID: &stored.ID})
	if err != nil {
		return nil, fmt.Errorf("list URLs of site %q: %w", site.Name, err)
	}
	for _, u := range urls {
		existing[u.URL] = true
	}
	return existing, nil
}

// sitemapSeeds returns the sitemap URLs of each seed that a link from that
// seed could also reach: same host and not denied.
func (c *Coordinator) sitemapSeeds(ctx context.Context, seeds []string) []string {
	filter := c.linkFilter()
	exclude := &sitechat.URLFilter{Exclude: filter.Deny}

	var extra []string
	for _, seed := range seeds {
		u, err := url.Parse(seed)
		if err != nil || u.Host == "" {
			continue
		}
		urls, err := c.Sitemaps.DiscoverURLs(ctx, seed, exclude)
		if err != nil {
			c.logger().Warn("sitemap discovery failed", "url", seed, "error", err)
			continue
		}
		kept := 0
		for _, link := range urls {
			if !filter.Accept(link, u.Host) {
				continue
			}
			extra = append(extra, link)
			kept++
		}
		c.logger().Info("sitemap seeds kept", "url", seed, "count", kept, "dropped", len(urls)-kept)
	}
	return extra
}

func (c *Coordinator) linkFilter() *LinkFilter {
	if c.Crawler != nil && c.Crawler.Filter != nil {
		return c.Crawler.Filter
	}
	return NewLinkFilter()
}

func (c *Coordinator) save(ctx context.Context, siteID string, link sitechat.DiscoveredLink, result *sitechat.PageResult) (*URLRecord, error) {
	now := c.now()
	u := &sitechat.DiscoveredURL{
		SiteID:       siteID,
		URL:          link.URL,
		Depth:        link.Depth,
		Title:        result.Title,
		StatusCode:   result.StatusCode,
		DiscoveredAt: now,
	}

	var content *sitechat.PageContent
	if result.Content != "" {
		content = &sitechat.PageContent{
			SourceURL:     link.URL,
			Title:         result.Title,
			Content:       result.Content,
			ContentLength: utf8.RuneCountInString(result.Content),
			ContentHash:   ContentHash(result.Content),
			ScrapedAt:     now,
		}
	}

	if err := c.Pages.SavePage(ctx, u, content); err != nil {
		return nil, err
	}

	record := &URLRecord{
		URL:        link.URL,
		Depth:      link.Depth,
		Title:      result.Title,
		StatusCode: result.StatusCode,
	}
	if content != nil {
		record.ContentLength = content.ContentLength
	}
	return record, nil
}

// ContentHash returns the zero-padded hex xxhash of content.
func ContentHash(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

func (c *Coordinator) progress(event ProgressEvent) {
	if c.Progress != nil {
		c.Progress(event)
	}
}

func (c *Coordinator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}
