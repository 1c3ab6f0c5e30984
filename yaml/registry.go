// Package yaml loads the configured sites from YAML or JSON documents
// using gopkg.in/yaml.v3.
//
// A document maps site names to either a list of seeds or an object:
//
//	docs:
//	  - https://example.com/docs/
//	  - url: https://example.com/blog/
//	    enabled: false
//	handbook:
//	  max_depth: 2
//	  sitemap: true
//	  urls:
//	    - url: https://handbook.example.com/
//
// Since YAML is a superset of JSON, the inline form
// {"docs": [{"url": "https://example.com/docs/", "enabled": true}]} is
// accepted too. Seeds are enabled unless stated otherwise.
package yaml

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/fwojciec/sitechat"
	"gopkg.in/yaml.v3"
)

// Ensure Registry implements sitechat.SiteRegistry.
var _ sitechat.SiteRegistry = (*Registry)(nil)

// Registry is an immutable set of configured sites.
type Registry struct {
	sites map[string]*sitechat.SiteConfig
}

// Load reads a registry from a YAML or JSON file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sitechat.Errorf(sitechat.ECONFIG, "read sites file: %v", err)
	}
	return Parse(data)
}

// Parse builds a registry from a YAML or JSON document.
func Parse(data []byte) (*Registry, error) {
	var doc map[string]siteEntry
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, sitechat.Errorf(sitechat.ECONFIG, "parse sites: %v", err)
	}
	if len(doc) == 0 {
		return nil, sitechat.Errorf(sitechat.ECONFIG, "no sites configured")
	}

	r := &Registry{sites: make(map[string]*sitechat.SiteConfig, len(doc))}
	for name, entry := range doc {
		cfg, err := entry.config(name)
		if err != nil {
			return nil, err
		}
		r.sites[name] = cfg
	}
	return r, nil
}

// Site returns the configuration for the named site.
func (r *Registry) Site(name string) (*sitechat.SiteConfig, error) {
	cfg, ok := r.sites[name]
	if !ok {
		return nil, sitechat.Errorf(sitechat.ECONFIG, "site %q is not configured", name)
	}
	return cfg, nil
}

// Sites returns all configured sites ordered by name.
func (r *Registry) Sites() []*sitechat.SiteConfig {
	names := make([]string, 0, len(r.sites))
	for name := range r.sites {
		names = append(names, name)
	}
	slices.Sort(names)

	sites := make([]*sitechat.SiteConfig, len(names))
	for i, name := range names {
		sites[i] = r.sites[name]
	}
	return sites
}

type siteEntry struct {
	MaxDepth int         `yaml:"max_depth"`
	Sitemap  bool        `yaml:"sitemap"`
	URLs     []seedEntry `yaml:"urls"`
}

// UnmarshalYAML accepts a bare list of seeds as shorthand for {urls: [...]}.
func (e *siteEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&e.URLs)
	}
	type plain siteEntry
	return node.Decode((*plain)(e))
}

func (e siteEntry) config(name string) (*sitechat.SiteConfig, error) {
	if strings.TrimSpace(name) == "" {
		return nil, sitechat.Errorf(sitechat.ECONFIG, "site name required")
	}
	if e.MaxDepth < 0 {
		return nil, sitechat.Errorf(sitechat.ECONFIG, "site %q: max_depth must not be negative", name)
	}

	cfg := &sitechat.SiteConfig{Name: name, MaxDepth: e.MaxDepth, Sitemap: e.Sitemap}
	for _, seed := range e.URLs {
		if err := validateURL(seed.URL); err != nil {
			return nil, sitechat.Errorf(sitechat.ECONFIG, "site %q: %v", name, err)
		}
		cfg.Seeds = append(cfg.Seeds, sitechat.SeedConfig{URL: seed.URL, Enabled: seed.enabled()})
	}
	return cfg, nil
}

type seedEntry struct {
	URL     string `yaml:"url"`
	Enabled *bool  `yaml:"enabled"`
}

// UnmarshalYAML accepts a bare URL string as an enabled seed.
func (s *seedEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&s.URL)
	}
	type plain seedEntry
	return node.Decode((*plain)(s))
}

func (s seedEntry) enabled() bool {
	return s.Enabled == nil || *s.Enabled
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid seed url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("seed url %q must be an absolute http(s) url", raw)
	}
	return nil
}
