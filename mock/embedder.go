package mock

import (
	"context"

	"github.com/fwojciec/sitechat"
)

var _ sitechat.Embedder = (*Embedder)(nil)

// Embedder is a mock implementation of sitechat.Embedder.
type Embedder struct {
	EmbedFn func(ctx context.Context, text string) ([]float32, error)
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.EmbedFn(ctx, text)
}

var _ sitechat.CallExecutor = (*CallExecutor)(nil)

// CallExecutor is a mock implementation of sitechat.CallExecutor.
type CallExecutor struct {
	DoFn func(ctx context.Context, call func(ctx context.Context) error) error
}

func (e *CallExecutor) Do(ctx context.Context, call func(ctx context.Context) error) error {
	return e.DoFn(ctx, call)
}

// PassthroughExecutor returns a CallExecutor that runs each call once.
func PassthroughExecutor() *CallExecutor {
	return &CallExecutor{
		DoFn: func(ctx context.Context, call func(ctx context.Context) error) error {
			return call(ctx)
		},
	}
}
