// Package gemini implements embedding, query expansion and answer
// generation on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fwojciec/sitechat"
	"google.golang.org/genai"
)

// Default model names.
const (
	DefaultEmbeddingModel  = "gemini-embedding-001"
	DefaultGenerationModel = "gemini-2.5-flash"
)

// DefaultDimensions is the default embedding vector length.
const DefaultDimensions = 1536

// Generator is the subset of *genai.Models used for text generation.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// EmbeddingModel is the subset of *genai.Models used for embeddings.
type EmbeddingModel interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// NewClient creates a Gemini API client.
// Returns ECONFIG if apiKey is empty.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, sitechat.Errorf(sitechat.ECONFIG, "GEMINI_API_KEY is required")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

// apiError converts Gemini failures into application errors. Rate-limit
// and quota failures become ERATELIMIT so the call executor retries them.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if IsRateLimit(err) {
		return sitechat.Errorf(sitechat.ERATELIMIT, "gemini: %s", err)
	}
	return err
}

// IsRateLimit reports whether err signals an exhausted rate limit or quota.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) && rateLimited(apiErr) {
		return true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && rateLimited(*apiErrPtr) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(msg), "quota")
}

func rateLimited(e genai.APIError) bool {
	return e.Code == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED"
}
