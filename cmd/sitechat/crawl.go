package main

import (
	"fmt"
	"io"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/crawl"
)

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	var override *int
	if c.MaxDepth >= 0 {
		override = &c.MaxDepth
	}

	summary, err := deps.Crawler.CrawlSite(deps.Ctx, c.Site, override)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitechat.ErrorMessage(err))
		if sitechat.ErrorCode(err) == sitechat.ECONFIG {
			fmt.Fprintln(deps.Stderr, "Use 'sitechat sites' to see configured sites.")
		}
		return err
	}

	fmt.Fprintf(deps.Stdout, "Crawled %s to depth %d\n", summary.SiteName, summary.MaxDepth)
	fmt.Fprintf(deps.Stdout, "  discovered:    %d\n", summary.Discovered)
	fmt.Fprintf(deps.Stdout, "  new urls:      %d\n", summary.TotalURLs)
	fmt.Fprintf(deps.Stdout, "  content pages: %d\n", summary.ContentPages)
	fmt.Fprintf(deps.Stdout, "  skipped:       %d\n", summary.Skipped)
	if summary.Failed > 0 {
		fmt.Fprintf(deps.Stdout, "  failed:        %d\n", summary.Failed)
	}
	return nil
}

// crawlProgress prints one line per stored or failed URL.
func crawlProgress(w io.Writer) crawl.ProgressFunc {
	return func(event crawl.ProgressEvent) {
		switch event.Type {
		case crawl.ProgressSaved:
			fmt.Fprintf(w, "  saved   [%d] %s\n", event.Depth, event.URL)
		case crawl.ProgressEmpty:
			fmt.Fprintf(w, "  empty   [%d] %s\n", event.Depth, event.URL)
		case crawl.ProgressFailed:
			fmt.Fprintf(w, "  failed  [%d] %s: %v\n", event.Depth, event.URL, event.Error)
		}
	}
}
