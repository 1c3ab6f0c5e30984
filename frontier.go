package sitechat

import "context"

// DiscoveredLink is a URL reached by a crawl together with its hop
// distance from the nearest seed.
type DiscoveredLink struct {
	URL   string
	Depth int
}

// URLFrontier manages a breadth-first crawl queue with deduplication.
type URLFrontier interface {
	// Push adds a link to the back of the queue.
	// Returns false if the URL has already been seen.
	Push(link DiscoveredLink) bool

	// Pop removes the link at the front of the queue.
	// Returns false if the frontier is empty.
	Pop() (DiscoveredLink, bool)

	// Len returns the number of URLs in the queue.
	Len() int

	// Seen returns true if the URL has been processed or queued.
	Seen(url string) bool
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
