package main

import (
	"fmt"
	"strings"
)

// Run executes the sites command.
func (c *SitesCmd) Run(deps *Dependencies) error {
	sites := deps.Registry.Sites()
	if len(sites) == 0 {
		fmt.Fprintln(deps.Stdout, "No sites configured. Set SITES_FILE or SITES_CONFIG.")
		return nil
	}

	for _, site := range sites {
		var opts []string
		if site.MaxDepth > 0 {
			opts = append(opts, fmt.Sprintf("max depth %d", site.MaxDepth))
		}
		if site.Sitemap {
			opts = append(opts, "sitemap")
		}
		if len(opts) > 0 {
			fmt.Fprintf(deps.Stdout, "%s (%s)\n", site.Name, strings.Join(opts, ", "))
		} else {
			fmt.Fprintln(deps.Stdout, site.Name)
		}

		for _, seed := range site.Seeds {
			state := ""
			if !seed.Enabled {
				state = " (disabled)"
			}
			fmt.Fprintf(deps.Stdout, "  %s%s\n", seed.URL, state)
		}
	}
	return nil
}
