// Package crawl discovers the pages of a site breadth-first and ingests
// their content into the store.
package crawl

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/fwojciec/sitechat"
)

// Page is the crawler's fetch of a URL it expanded.
type Page struct {
	Response *sitechat.Response
	Err      error
}

// VisitFunc is called once per accepted URL in breadth-first order.
// page is nil for URLs that were not fetched because they sit at the
// maximum depth. A returned error stops the walk.
type VisitFunc func(link sitechat.DiscoveredLink, page *Page) error

// Crawler walks a site breadth-first from one or more seeds.
type Crawler struct {
	Fetcher sitechat.Fetcher
	Links   sitechat.LinkExtractor
	Filter  *LinkFilter

	// Robots, when set, excludes disallowed URLs from the walk.
	Robots sitechat.RobotsPolicy

	// MaxURLs stops the walk after that many visits. Zero means unbounded.
	MaxURLs int

	Logger *slog.Logger
}

// NewCrawler creates a Crawler with the default link filter.
func NewCrawler(fetcher sitechat.Fetcher, links sitechat.LinkExtractor) *Crawler {
	return &Crawler{
		Fetcher: fetcher,
		Links:   links,
		Filter:  NewLinkFilter(),
	}
}

// Crawl returns every URL reachable from seeds within maxDepth hops,
// paired with its shortest hop distance from any seed, in discovery order.
func (c *Crawler) Crawl(ctx context.Context, seeds []string, maxDepth int) ([]sitechat.DiscoveredLink, error) {
	var links []sitechat.DiscoveredLink
	err := c.Walk(ctx, seeds, maxDepth, func(link sitechat.DiscoveredLink, _ *Page) error {
		links = append(links, link)
		return nil
	})
	return links, err
}

// Walk visits every URL reachable from seeds within maxDepth hops.
//
// All seeds start at depth 0 in a single FIFO frontier, so each URL is
// reached first at its shortest distance from any seed and is visited
// exactly once. URLs at maxDepth are visited but not fetched or expanded.
// Links are followed only on the host of the seed they descend from. A seed
// redirected to its www or bare twin moves the crawl to that host.
func (c *Crawler) Walk(ctx context.Context, seeds []string, maxDepth int, visit VisitFunc) error {
	if maxDepth < 0 {
		maxDepth = 0
	}
	filter := c.Filter
	if filter == nil {
		filter = NewLinkFilter()
	}

	frontier := NewFrontier()
	hosts := make(map[string]string) // url -> host of its seed

	for _, seed := range seeds {
		u, err := url.Parse(seed)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			c.logger().Warn("skipping invalid seed", "url", seed)
			continue
		}
		link := sitechat.DiscoveredLink{URL: stripFragment(seed), Depth: 0}
		if frontier.Push(link) {
			hosts[link.URL] = u.Host
		}
	}

	visited := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		link, ok := frontier.Pop()
		if !ok {
			return nil
		}
		if c.MaxURLs > 0 && visited >= c.MaxURLs {
			c.logger().Warn("crawl stopped at URL limit", "limit", c.MaxURLs, "queued", frontier.Len()+1)
			return nil
		}

		if c.Robots != nil && !c.Robots.Allowed(ctx, link.URL) {
			c.logger().Debug("disallowed by robots.txt", "url", link.URL)
			continue
		}
		visited++

		if link.Depth >= maxDepth {
			if err := visit(link, nil); err != nil {
				return err
			}
			continue
		}

		page := c.fetch(ctx, link.URL)
		if err := visit(link, page); err != nil {
			return err
		}

		host := hosts[link.URL]
		if link.Depth == 0 && page.Err == nil && page.Response != nil {
			// A seed redirected between the bare and www host follows the redirect.
			if u, err := url.Parse(page.Response.URL); err == nil && sameSite(u.Host, host) {
				host = u.Host
			}
		}
		for _, next := range c.harvest(link.URL, page) {
			if !filter.Accept(next, host) {
				continue
			}
			child := sitechat.DiscoveredLink{URL: next, Depth: link.Depth + 1}
			if frontier.Push(child) {
				hosts[stripFragment(next)] = host
			}
		}
	}
}

func (c *Crawler) fetch(ctx context.Context, url string) *Page {
	resp, err := c.Fetcher.Fetch(ctx, url)
	if err != nil {
		c.logger().Warn("fetch failed", "url", url, "error", err)
	}
	return &Page{Response: resp, Err: err}
}

// harvest returns the outbound links of a fetched page.
func (c *Crawler) harvest(url string, page *Page) []string {
	if page.Err != nil || !page.Response.OK() || !page.Response.IsHTML() {
		return nil
	}
	base := page.Response.URL
	if base == "" {
		base = url
	}
	links, err := c.Links.ExtractLinks(page.Response.Body, base)
	if err != nil {
		c.logger().Warn("link extraction failed", "url", url, "error", err)
		return nil
	}
	c.logger().Debug("harvested links", "url", url, "count", len(links))
	return links
}

func (c *Crawler) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

func sameSite(a, b string) bool {
	return a != "" && strings.TrimPrefix(a, "www.") == strings.TrimPrefix(b, "www.")
}
