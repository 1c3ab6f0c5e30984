package sitechat

import (
	"context"
	"time"
)

// Site represents a named website whose pages are crawled and indexed.
type Site struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BaseURLs  []string  `json:"baseUrls"`
	MaxDepth  int       `json:"maxDepth"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate returns an error if the site contains invalid fields.
func (s *Site) Validate() error {
	if s.Name == "" {
		return Errorf(EINVALID, "site name required")
	}
	if s.MaxDepth < 0 {
		return Errorf(EINVALID, "site max depth must not be negative")
	}
	return nil
}

// SiteService represents a service for managing sites.
type SiteService interface {
	// FindSiteByName retrieves a site by its unique name.
	// Returns ENOTFOUND if the site does not exist.
	FindSiteByName(ctx context.Context, name string) (*Site, error)

	// FindSites retrieves all sites ordered by name.
	FindSites(ctx context.Context) ([]*Site, error)

	// UpsertSite creates the site if no site with the same name exists,
	// otherwise updates its base URLs and max depth. On return site.ID
	// holds the persisted identity.
	UpsertSite(ctx context.Context, site *Site) error
}

// SiteConfig describes a configured site before it is first crawled.
type SiteConfig struct {
	Name  string
	Seeds []SeedConfig
	// MaxDepth overrides the global default when positive.
	MaxDepth int
	// Sitemap adds URLs listed in the site's sitemap as extra seeds.
	Sitemap bool
}

// SeedConfig is one configured start URL of a site.
type SeedConfig struct {
	URL     string
	Enabled bool
}

// EnabledURLs returns the URLs of all enabled seeds in configuration order.
func (c *SiteConfig) EnabledURLs() []string {
	var urls []string
	for _, seed := range c.Seeds {
		if seed.Enabled {
			urls = append(urls, seed.URL)
		}
	}
	return urls
}

// SiteRegistry provides access to configured sites.
type SiteRegistry interface {
	// Site returns the configuration for the named site.
	// Returns ECONFIG if the site is not configured.
	Site(name string) (*SiteConfig, error)

	// Sites returns all configured sites ordered by name.
	Sites() []*SiteConfig
}

// SiteStats summarizes the stored state of one site.
type SiteStats struct {
	Site      string `json:"site"`
	URLs      int    `json:"urls"`
	Contents  int    `json:"contents"`
	Embedded  int    `json:"embedded"`
	Partial   int    `json:"partial"`
	Fragments int    `json:"fragments"`
}

// Pending returns the number of content records without any fragments.
func (s *SiteStats) Pending() int {
	return s.Contents - s.Embedded - s.Partial
}

// StatsService reports storage statistics.
type StatsService interface {
	// SiteStats returns statistics for every stored site ordered by name.
	SiteStats(ctx context.Context) ([]*SiteStats, error)
}
