package sitechat

import (
	"context"
	"time"
)

// DiscoveredURL represents a URL reached by a crawl of a site.
// A URL is recorded at most once per site; later crawls update it in place.
type DiscoveredURL struct {
	ID           string    `json:"id"`
	SiteID       string    `json:"siteId"`
	URL          string    `json:"url"`
	Depth        int       `json:"depth"`
	Title        string    `json:"title"`
	StatusCode   int       `json:"statusCode"`
	DiscoveredAt time.Time `json:"discoveredAt"`
}

// Validate returns an error if the discovered URL contains invalid fields.
func (u *DiscoveredURL) Validate() error {
	if u.SiteID == "" {
		return Errorf(EINVALID, "url site ID required")
	}
	if u.URL == "" {
		return Errorf(EINVALID, "url required")
	}
	if u.Depth < 0 {
		return Errorf(EINVALID, "url depth must not be negative")
	}
	return nil
}

// PageContent holds the normalized text of one discovered URL.
type PageContent struct {
	ID            string    `json:"id"`
	URLID         string    `json:"urlId"`
	SourceURL     string    `json:"sourceUrl"` // Denormalized from the owning URL on reads
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	ContentLength int       `json:"contentLength"`
	ContentHash   string    `json:"contentHash"`
	ScrapedAt     time.Time `json:"scrapedAt"`

	// TotalChunks is the number of fragments planned by the last embedding
	// pass. Zero means the content has never been planned.
	TotalChunks int `json:"totalChunks"`

	// FragmentCount is the number of persisted fragments. Read-only.
	FragmentCount int `json:"fragmentCount"`
}

// Validate returns an error if the content contains invalid fields.
func (c *PageContent) Validate() error {
	if c.Content == "" {
		return Errorf(EINVALID, "page content required")
	}
	return nil
}

// Embedded reports whether every planned fragment has been persisted.
func (c *PageContent) Embedded() bool {
	return c.TotalChunks > 0 && c.FragmentCount == c.TotalChunks
}

// Partial reports whether the content has some but not all planned fragments.
func (c *PageContent) Partial() bool {
	return c.FragmentCount > 0 && c.FragmentCount != c.TotalChunks
}

// PageWriter persists crawled pages.
type PageWriter interface {
	// SavePage upserts the URL (keyed by site and URL) and, when content is
	// non-nil, its content as one unit. On return u.ID and content.ID hold
	// the persisted identities. Replacing content with a different hash
	// discards the content's fragments.
	SavePage(ctx context.Context, u *DiscoveredURL, content *PageContent) error
}

// URLService represents a service for reading discovered URLs.
type URLService interface {
	// FindURLByID retrieves a URL by ID.
	// Returns ENOTFOUND if the URL does not exist.
	FindURLByID(ctx context.Context, id string) (*DiscoveredURL, error)

	// FindURLs retrieves URLs matching the filter ordered by depth, then URL.
	FindURLs(ctx context.Context, filter URLRecordFilter) ([]*DiscoveredURL, error)
}

// URLRecordFilter represents a filter for FindURLs.
type URLRecordFilter struct {
	ID     *string `json:"id"`
	SiteID *string `json:"siteId"`
	URL    *string `json:"url"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// ContentService represents a service for reading page content.
type ContentService interface {
	// FindContentByID retrieves content by ID.
	// Returns ENOTFOUND if the content does not exist.
	FindContentByID(ctx context.Context, id string) (*PageContent, error)

	// FindContents retrieves content records matching the filter in
	// scrape order, with SourceURL and FragmentCount populated.
	FindContents(ctx context.Context, filter ContentFilter) ([]*PageContent, error)
}

// ContentFilter represents a filter for FindContents.
type ContentFilter struct {
	ID     *string `json:"id"`
	SiteID *string `json:"siteId"`
	URLID  *string `json:"urlId"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
