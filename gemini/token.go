package gemini

import (
	"context"

	"github.com/fwojciec/sitechat"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

var _ sitechat.TokenCounter = (*TokenCounter)(nil)

// TokenCounter measures answer prompts offline so the Asker can trim
// retrieved sources to its context budget without an API round trip.
type TokenCounter struct {
	tok   *tokenizer.LocalTokenizer
	model string

	// System, when set, is counted with every prompt, as it is sent with
	// every answer request.
	System *genai.Content
}

// NewTokenCounter loads the local tokenizer for model. The tokenizer data
// is downloaded on first use. Models without a local tokenizer fail with
// ECONFIG.
func NewTokenCounter(model string) (*TokenCounter, error) {
	if model == "" {
		model = DefaultGenerationModel
	}
	tok, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, sitechat.Errorf(sitechat.ECONFIG, "no local tokenizer for model %q: %v", model, err)
	}
	return &TokenCounter{tok: tok, model: model}, nil
}

// Model returns the model whose tokenizer is used.
func (tc *TokenCounter) Model() string {
	return tc.model
}

// CountTokens implements sitechat.TokenCounter.
func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if text == "" && tc.System == nil {
		return 0, nil
	}

	var config *genai.CountTokensConfig
	if tc.System != nil {
		config = &genai.CountTokensConfig{SystemInstruction: tc.System}
	}
	var contents []*genai.Content
	if text != "" {
		contents = []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	}
	result, err := tc.tok.CountTokens(contents, config)
	if err != nil {
		return 0, err
	}
	return int(result.TotalTokens), nil
}
