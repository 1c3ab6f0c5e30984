package main

import (
	"fmt"

	"github.com/fwojciec/sitechat"
)

// Run executes the ask command.
func (c *AskCmd) Run(deps *Dependencies) error {
	answer, err := deps.Asker.Ask(deps.Ctx, c.Question)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitechat.ErrorMessage(err))
		if sitechat.ErrorCode(err) == sitechat.ENOTFOUND {
			fmt.Fprintln(deps.Stderr, "Run 'sitechat crawl' and 'sitechat embed' to index a site first.")
		}
		return err
	}

	fmt.Fprintln(deps.Stdout, answer.Text)

	if sources := answer.Sources(); len(sources) > 0 {
		fmt.Fprintln(deps.Stdout)
		fmt.Fprintln(deps.Stdout, "Sources:")
		for _, src := range sources {
			fmt.Fprintf(deps.Stdout, "  %s\n", src)
		}
	}
	return nil
}
