package crawl

import (
	"strings"
	"sync"

	"github.com/fwojciec/sitechat"
)

// Compile-time interface verification.
var _ sitechat.URLFrontier = (*Frontier)(nil)

// Frontier is an in-memory FIFO URL frontier with exact deduplication.
// A URL is marked seen when it is first pushed, so it is dequeued at most
// once no matter how often it is rediscovered.
// It is safe for concurrent use by multiple goroutines.
type Frontier struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	queue []sitechat.DiscoveredLink
	head  int
}

// NewFrontier creates an empty Frontier.
func NewFrontier() *Frontier {
	return &Frontier{seen: make(map[string]struct{})}
}

// Push adds a link to the back of the frontier.
// Returns false if the URL has already been seen.
// URL fragments are stripped before deduplication - URLs differing only by fragment
// are considered duplicates.
func (f *Frontier) Push(link sitechat.DiscoveredLink) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	link.URL = stripFragment(link.URL)
	if _, ok := f.seen[link.URL]; ok {
		return false
	}
	f.seen[link.URL] = struct{}{}
	f.queue = append(f.queue, link)
	return true
}

// Pop removes the link at the front of the frontier.
// The bool result is false if the frontier is empty.
func (f *Frontier) Pop() (sitechat.DiscoveredLink, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.head == len(f.queue) {
		return sitechat.DiscoveredLink{}, false
	}
	link := f.queue[f.head]
	f.queue[f.head] = sitechat.DiscoveredLink{}
	f.head++

	// Reclaim the consumed prefix once it dominates the slice.
	if f.head > 64 && f.head*2 >= len(f.queue) {
		f.queue = append([]sitechat.DiscoveredLink(nil), f.queue[f.head:]...)
		f.head = 0
	}
	return link, true
}

// Len returns the number of URLs in the queue.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue) - f.head
}

// Seen returns true if the URL has been processed or queued.
// URL fragments are stripped before checking.
func (f *Frontier) Seen(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.seen[stripFragment(url)]
	return ok
}

func stripFragment(url string) string {
	if idx := strings.Index(url, "#"); idx != -1 {
		return url[:idx]
	}
	return url
}
