package main

import (
	"fmt"
	"strings"

	"github.com/fwojciec/sitechat"
)

// Run executes the retrieve command.
func (c *RetrieveCmd) Run(deps *Dependencies) error {
	opts := deps.RetrieveOptions
	if c.PerQuery > 0 {
		opts.PerQueryLimit = c.PerQuery
	}
	if c.Cap > 0 {
		opts.GlobalCap = c.Cap
	}

	fragments, err := deps.Retriever.Retrieve(deps.Ctx, c.Queries, opts)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitechat.ErrorMessage(err))
		return err
	}

	if len(fragments) == 0 {
		fmt.Fprintln(deps.Stdout, "No relevant fragments found.")
		return nil
	}

	for i, rf := range fragments {
		f := rf.Fragment
		fmt.Fprintf(deps.Stdout, "%d. %s [%d/%d] distance=%.4f query=%q\n",
			i+1, f.Metadata.SourceURL, f.ChunkIndex+1, f.TotalChunks, rf.Distance, rf.Query)
		fmt.Fprintf(deps.Stdout, "   %s\n", preview(f.Text, 200))
	}
	return nil
}

// preview returns the first n runes of text on a single line.
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
