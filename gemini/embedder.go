package gemini

import (
	"context"
	"fmt"

	"github.com/fwojciec/sitechat"
	"google.golang.org/genai"
)

// Ensure Embedder implements sitechat.Embedder at compile time.
var _ sitechat.Embedder = (*Embedder)(nil)

// Embedder implements sitechat.Embedder using Gemini embedding models.
// It makes exactly one API call per Embed; pacing and retries belong to
// the caller's executor.
type Embedder struct {
	models     EmbeddingModel
	model      string
	dimensions int

	// TaskType is passed to the API when set, e.g. "RETRIEVAL_DOCUMENT".
	TaskType string
}

// NewEmbedder creates a new Embedder. Empty model and non-positive
// dimensions fall back to the defaults.
func NewEmbedder(models EmbeddingModel, model string, dimensions int) *Embedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{models: models, model: model, dimensions: dimensions}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return e.model }

// Dimensions returns the requested vector length.
func (e *Embedder) Dimensions() int { return e.dimensions }

// Embed implements sitechat.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, sitechat.Errorf(sitechat.EINVALID, "text required")
	}

	dims := int32(e.dimensions)
	result, err := e.models.EmbedContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{
			TaskType:             e.TaskType,
			OutputDimensionality: &dims,
		},
	)
	if err != nil {
		return nil, apiError(err)
	}
	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, sitechat.Errorf(sitechat.EINTERNAL, "gemini returned no embeddings")
	}

	values := result.Embeddings[0].Values
	if len(values) != e.dimensions {
		return nil, sitechat.Errorf(sitechat.EINTERNAL, "gemini returned %d dimensions, want %d", len(values), e.dimensions)
	}
	return values, nil
}

// String describes the embedder for logs.
func (e *Embedder) String() string {
	return fmt.Sprintf("gemini:%s/%d", e.model, e.dimensions)
}
