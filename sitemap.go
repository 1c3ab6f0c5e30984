package sitechat

import (
	"context"
	"net/url"
	"regexp"
	"slices"
)

// SitemapService lists the URLs a site's sitemaps advertise for a seed.
type SitemapService interface {
	// DiscoverURLs reads robots.txt sitemap directives, falling back to
	// /sitemap.xml, and resolves sitemap indexes. URLs outside the seed's
	// path prefix or rejected by filter are left out. A nil filter keeps
	// everything.
	DiscoverURLs(ctx context.Context, seed string, filter *URLFilter) ([]string, error)
}

// URLFilter selects sitemap URLs by path. A URL passes when its path
// matches some Include pattern (or Include is empty) and no Exclude pattern.
type URLFilter struct {
	Include []*regexp.Regexp
	Exclude []*regexp.Regexp
}

// Match reports whether rawURL passes the filter. A nil filter passes
// everything. Unparseable URLs are matched as given.
func (f *URLFilter) Match(rawURL string) bool {
	if f == nil {
		return true
	}
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	matches := func(re *regexp.Regexp) bool { return re.MatchString(path) }

	if len(f.Include) > 0 && !slices.ContainsFunc(f.Include, matches) {
		return false
	}
	return !slices.ContainsFunc(f.Exclude, matches)
}
