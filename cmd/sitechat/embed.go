package main

import (
	"fmt"
	"io"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/embedding"
)

// Run executes the embed command.
func (c *EmbedCmd) Run(deps *Dependencies) error {
	summary, err := deps.Embedder.EmbedAllPending(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitechat.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Embedded %d fragments\n", summary.Fragments)
	fmt.Fprintf(deps.Stdout, "  pages:      %d\n", summary.Total)
	fmt.Fprintf(deps.Stdout, "  processed:  %d\n", summary.Processed)
	fmt.Fprintf(deps.Stdout, "  skipped:    %d\n", summary.Skipped)
	if summary.Incomplete > 0 {
		fmt.Fprintf(deps.Stdout, "  incomplete: %d (run embed again to repair)\n", summary.Incomplete)
	}
	if summary.Failed > 0 {
		fmt.Fprintf(deps.Stdout, "  failed:     %d\n", summary.Failed)
	}
	return nil
}

// embedProgress prints one line per processed record.
func embedProgress(w io.Writer) embedding.ProgressFunc {
	return func(event embedding.ProgressEvent) {
		switch event.Type {
		case embedding.ProgressCompleted:
			fmt.Fprintf(w, "  embedded   %s (%d)\n", event.URL, event.Embedded)
		case embedding.ProgressIncomplete:
			fmt.Fprintf(w, "  incomplete %s (%d missing)\n", event.URL, event.Missing)
		case embedding.ProgressFailed:
			fmt.Fprintf(w, "  failed     %s: %v\n", event.URL, event.Error)
		}
	}
}
