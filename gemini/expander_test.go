package gemini_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/gemini"
	"github.com/fwojciec/sitechat/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

const analysisJSON = `{
  "main_query": "How do I install and configure it?",
  "sub_questions": [
    {"question": "How do I install it?", "expanded_queries": ["installation steps", "install guide"]},
    {"question": "How do I configure it?", "expanded_queries": ["configuration options", "install guide"]}
  ]
}`

func TestQueryExpander_Expand(t *testing.T) {
	t.Parallel()

	t.Run("parses structured output", func(t *testing.T) {
		t.Parallel()

		var gotConfig *genai.GenerateContentConfig
		models := generator(func(_ context.Context, _ string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotConfig = config
			return textResponse(analysisJSON), nil
		})
		e := gemini.NewQueryExpander(models, mock.PassthroughExecutor(), "")

		analysis, err := e.Expand(context.Background(), "How do I install and configure it?")

		require.NoError(t, err)
		assert.Len(t, analysis.SubQuestions, 2)
		assert.Equal(t, []string{"installation steps", "install guide", "configuration options"}, analysis.Queries())
		assert.Equal(t, "application/json", gotConfig.ResponseMIMEType)
		require.NotNil(t, gotConfig.ResponseSchema)
	})

	t.Run("falls back to the question when the call fails", func(t *testing.T) {
		t.Parallel()

		models := generator(func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, errors.New("unavailable")
		})
		e := gemini.NewQueryExpander(models, mock.PassthroughExecutor(), "")

		analysis, err := e.Expand(context.Background(), "What is it?")

		require.NoError(t, err)
		assert.Equal(t, []string{"What is it?"}, analysis.Queries())
		assert.Equal(t, "What is it?", analysis.MainQuery)
	})

	t.Run("falls back to the question on unusable output", func(t *testing.T) {
		t.Parallel()

		models := generator(func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse(`{"main_query": "x", "sub_questions": []}`), nil
		})
		e := gemini.NewQueryExpander(models, mock.PassthroughExecutor(), "")

		analysis, err := e.Expand(context.Background(), "What is it?")

		require.NoError(t, err)
		assert.Equal(t, []string{"What is it?"}, analysis.Queries())
	})

	t.Run("routes calls through the executor", func(t *testing.T) {
		t.Parallel()

		calls := 0
		executor := &mock.CallExecutor{
			DoFn: func(ctx context.Context, call func(context.Context) error) error {
				calls++
				return call(ctx)
			},
		}
		models := generator(func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse(analysisJSON), nil
		})

		_, err := gemini.NewQueryExpander(models, executor, "").Expand(context.Background(), "q")

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("reports rate limits to the executor", func(t *testing.T) {
		t.Parallel()

		var seen error
		executor := &mock.CallExecutor{
			DoFn: func(ctx context.Context, call func(context.Context) error) error {
				seen = call(ctx)
				return seen
			},
		}
		models := generator(func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, genai.APIError{Code: 429}
		})

		_, err := gemini.NewQueryExpander(models, executor, "").Expand(context.Background(), "q")

		require.NoError(t, err)
		assert.Equal(t, sitechat.ERATELIMIT, sitechat.ErrorCode(seen))
	})

	t.Run("requires a question", func(t *testing.T) {
		t.Parallel()

		_, err := gemini.NewQueryExpander(nil, nil, "").Expand(context.Background(), "  ")

		require.Error(t, err)
		assert.Equal(t, sitechat.EINVALID, sitechat.ErrorCode(err))
	})
}

func TestParseAnalysis_StripsCodeFence(t *testing.T) {
	t.Parallel()

	analysis, err := gemini.ParseAnalysis("```json\n" + analysisJSON + "\n```")

	require.NoError(t, err)
	assert.Equal(t, "How do I install and configure it?", analysis.MainQuery)
}
