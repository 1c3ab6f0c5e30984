package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fwojciec/sitechat"
)

// Run executes the status command.
func (c *StatusCmd) Run(deps *Dependencies) error {
	stats, err := deps.Stats.SiteStats(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitechat.ErrorMessage(err))
		return err
	}

	if len(stats) == 0 {
		fmt.Fprintln(deps.Stdout, "No sites crawled yet. Use 'sitechat crawl <site>' to start.")
		return nil
	}

	w := tabwriter.NewWriter(deps.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SITE\tURLS\tPAGES\tEMBEDDED\tPARTIAL\tPENDING\tFRAGMENTS")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			s.Site, s.URLs, s.Contents, s.Embedded, s.Partial, s.Pending(), s.Fragments)
	}
	return w.Flush()
}
