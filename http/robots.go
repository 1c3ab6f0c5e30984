package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/fwojciec/sitechat"
	"github.com/temoto/robotstxt"
)

// Ensure RobotsPolicy implements sitechat.RobotsPolicy.
var _ sitechat.RobotsPolicy = (*RobotsPolicy)(nil)

// RobotsPolicy answers robots.txt queries, fetching each host's file once.
// A robots.txt that cannot be fetched or parsed allows everything.
type RobotsPolicy struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	mu     sync.Mutex
	groups map[string]*robotstxt.RobotsData
}

// NewRobotsPolicy creates a RobotsPolicy that identifies as userAgent.
// If client is nil, http.DefaultClient is used.
func NewRobotsPolicy(client *http.Client, userAgent string, logger *slog.Logger) *RobotsPolicy {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RobotsPolicy{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		groups:    make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed implements sitechat.RobotsPolicy.
func (p *RobotsPolicy) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}

	data := p.robots(ctx, u)
	if data == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, p.userAgent)
}

// Sitemaps returns the Sitemap directives of the host's robots.txt.
func (p *RobotsPolicy) Sitemaps(ctx context.Context, rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	data := p.robots(ctx, u)
	if data == nil {
		return nil
	}
	return data.Sitemaps
}

// robots returns the cached robots data of u's host, fetching it on
// first use. Nil means no restrictions.
func (p *RobotsPolicy) robots(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	key := u.Scheme + "://" + u.Host

	p.mu.Lock()
	defer p.mu.Unlock()

	if data, ok := p.groups[key]; ok {
		return data
	}

	data := p.fetch(ctx, key+"/robots.txt")
	p.groups[key] = data
	return data
}

func (p *RobotsPolicy) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("robots.txt unavailable", "url", robotsURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		p.logger.Warn("robots.txt unparseable", "url", robotsURL, "error", err)
		return nil
	}
	return data
}
