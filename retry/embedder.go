package retry

import (
	"context"

	"github.com/fwojciec/sitechat"
)

// Ensure Embedder implements sitechat.Embedder.
var _ sitechat.Embedder = (*Embedder)(nil)

// Embedder routes every embedding request through an executor.
type Embedder struct {
	Embedder sitechat.Embedder
	Executor sitechat.CallExecutor
}

// NewEmbedder wraps embedder so that calls go through executor.
func NewEmbedder(embedder sitechat.Embedder, executor sitechat.CallExecutor) *Embedder {
	return &Embedder{Embedder: embedder, Executor: executor}
}

// Embed implements sitechat.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := e.Executor.Do(ctx, func(ctx context.Context) error {
		v, err := e.Embedder.Embed(ctx, text)
		if err != nil {
			return err
		}
		vector = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vector, nil
}
