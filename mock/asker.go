package mock

import (
	"context"

	"github.com/fwojciec/sitechat"
)

var _ sitechat.Asker = (*Asker)(nil)

// Asker is a mock implementation of sitechat.Asker.
type Asker struct {
	AskFn func(ctx context.Context, question string) (*sitechat.Answer, error)
}

func (a *Asker) Ask(ctx context.Context, question string) (*sitechat.Answer, error) {
	return a.AskFn(ctx, question)
}

var _ sitechat.QueryExpander = (*QueryExpander)(nil)

// QueryExpander is a mock implementation of sitechat.QueryExpander.
type QueryExpander struct {
	ExpandFn func(ctx context.Context, question string) (*sitechat.QueryAnalysis, error)
}

func (e *QueryExpander) Expand(ctx context.Context, question string) (*sitechat.QueryAnalysis, error) {
	return e.ExpandFn(ctx, question)
}

var _ sitechat.Retriever = (*Retriever)(nil)

// Retriever is a mock implementation of sitechat.Retriever.
type Retriever struct {
	RetrieveFn func(ctx context.Context, queries []string, opts sitechat.RetrieveOptions) ([]*sitechat.RetrievedFragment, error)
}

func (r *Retriever) Retrieve(ctx context.Context, queries []string, opts sitechat.RetrieveOptions) ([]*sitechat.RetrievedFragment, error) {
	return r.RetrieveFn(ctx, queries, opts)
}

var _ sitechat.TokenCounter = (*TokenCounter)(nil)

// TokenCounter is a mock implementation of sitechat.TokenCounter.
type TokenCounter struct {
	CountTokensFn func(ctx context.Context, text string) (int, error)
}

func (c *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	return c.CountTokensFn(ctx, text)
}
