package gemini_test

import (
	"context"
	"strings"
	"testing"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/gemini"
	"github.com/fwojciec/sitechat/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func fragment(url, title, text string) *sitechat.RetrievedFragment {
	return &sitechat.RetrievedFragment{
		Fragment: &sitechat.Fragment{
			Text:     text,
			Metadata: sitechat.FragmentMetadata{SourceURL: url, Title: title},
		},
	}
}

func expander(queries ...string) *mock.QueryExpander {
	return &mock.QueryExpander{
		ExpandFn: func(_ context.Context, question string) (*sitechat.QueryAnalysis, error) {
			return &sitechat.QueryAnalysis{
				MainQuery:    question,
				SubQuestions: []sitechat.SubQuestion{{Question: question, ExpandedQueries: queries}},
			}, nil
		},
	}
}

func retriever(fragments ...*sitechat.RetrievedFragment) *mock.Retriever {
	return &mock.Retriever{
		RetrieveFn: func(context.Context, []string, sitechat.RetrieveOptions) ([]*sitechat.RetrievedFragment, error) {
			return fragments, nil
		},
	}
}

func TestAsker_Ask_ReturnsAnswerWithSources(t *testing.T) {
	t.Parallel()

	var prompt string
	var gotQueries []string
	var gotOpts sitechat.RetrieveOptions
	models := generator(func(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		prompt = contents[0].Parts[0].Text
		return textResponse("Use the install script [Source 1]."), nil
	})
	r := &mock.Retriever{
		RetrieveFn: func(_ context.Context, queries []string, opts sitechat.RetrieveOptions) ([]*sitechat.RetrievedFragment, error) {
			gotQueries = queries
			gotOpts = opts
			return []*sitechat.RetrievedFragment{
				fragment("https://example.com/install", "Install", "Run the install script."),
			}, nil
		},
	}

	asker := gemini.NewAsker(models, expander("install steps", "setup"), r, mock.PassthroughExecutor(), "")

	answer, err := asker.Ask(context.Background(), "How do I install it?")

	require.NoError(t, err)
	assert.Equal(t, "Use the install script [Source 1].", answer.Text)
	assert.Equal(t, []string{"install steps", "setup"}, answer.Queries)
	assert.Equal(t, []string{"install steps", "setup"}, gotQueries)
	assert.Equal(t, sitechat.RetrieveOptions{PerQueryLimit: 5, GlobalCap: 15}, gotOpts)
	assert.Equal(t, []string{"https://example.com/install"}, answer.Sources())
	assert.Contains(t, prompt, "Run the install script.")
}

func TestAsker_Ask_ReturnsErrorWhenNothingRetrieved(t *testing.T) {
	t.Parallel()

	asker := gemini.NewAsker(nil, expander("q"), retriever(), mock.PassthroughExecutor(), "") // nil client ok for this test

	_, err := asker.Ask(context.Background(), "what is this?")

	require.Error(t, err)
	assert.Equal(t, sitechat.ENOTFOUND, sitechat.ErrorCode(err))
	assert.Contains(t, sitechat.ErrorMessage(err), "no relevant content")
}

func TestAsker_Ask_PropagatesRetrieverError(t *testing.T) {
	t.Parallel()

	expectedErr := sitechat.Errorf(sitechat.EINTERNAL, "database error")
	r := &mock.Retriever{
		RetrieveFn: func(context.Context, []string, sitechat.RetrieveOptions) ([]*sitechat.RetrievedFragment, error) {
			return nil, expectedErr
		},
	}

	asker := gemini.NewAsker(nil, expander("q"), r, mock.PassthroughExecutor(), "")

	_, err := asker.Ask(context.Background(), "what is this?")

	require.Error(t, err)
	assert.Equal(t, sitechat.EINTERNAL, sitechat.ErrorCode(err))
	assert.Contains(t, sitechat.ErrorMessage(err), "database error")
}

func TestAsker_Ask_UsesQuestionWhenExpansionIsEmpty(t *testing.T) {
	t.Parallel()

	var gotQueries []string
	r := &mock.Retriever{
		RetrieveFn: func(_ context.Context, queries []string, _ sitechat.RetrieveOptions) ([]*sitechat.RetrievedFragment, error) {
			gotQueries = queries
			return nil, nil
		},
	}

	asker := gemini.NewAsker(nil, expander(), r, mock.PassthroughExecutor(), "")

	_, _ = asker.Ask(context.Background(), "what is this?")

	assert.Equal(t, []string{"what is this?"}, gotQueries)
}

func TestAsker_Ask_ReturnsErrorWhenQuestionEmpty(t *testing.T) {
	t.Parallel()

	asker := gemini.NewAsker(nil, nil, nil, nil, "")

	_, err := asker.Ask(context.Background(), "")

	require.Error(t, err)
	assert.Equal(t, sitechat.EINVALID, sitechat.ErrorCode(err))
	assert.Contains(t, sitechat.ErrorMessage(err), "question required")
}

func TestAsker_Ask_SurfacesExhaustedRetries(t *testing.T) {
	t.Parallel()

	models := generator(func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return nil, genai.APIError{Code: 429}
	})
	asker := gemini.NewAsker(models, expander("q"), retriever(fragment("u", "t", "x")), mock.PassthroughExecutor(), "")

	_, err := asker.Ask(context.Background(), "what is this?")

	require.Error(t, err)
	assert.Equal(t, sitechat.ERATELIMIT, sitechat.ErrorCode(err))
}

func TestAsker_Ask_TrimsFragmentsToTokenBudget(t *testing.T) {
	t.Parallel()

	var prompt string
	models := generator(func(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		prompt = contents[0].Parts[0].Text
		return textResponse("ok"), nil
	})
	asker := gemini.NewAsker(models, expander("q"), retriever(
		fragment("https://example.com/1", "One", "first"),
		fragment("https://example.com/2", "Two", "second"),
		fragment("https://example.com/3", "Three", "third"),
	), mock.PassthroughExecutor(), "")
	// One token per source block.
	asker.Tokens = &mock.TokenCounter{
		CountTokensFn: func(_ context.Context, text string) (int, error) {
			return strings.Count(text, "<source>"), nil
		},
	}
	asker.MaxContextTokens = 2

	answer, err := asker.Ask(context.Background(), "question")

	require.NoError(t, err)
	assert.Len(t, answer.Fragments, 2)
	assert.Contains(t, prompt, "second")
	assert.NotContains(t, prompt, "third")
}

func TestBuildConfig_SetsSystemInstruction(t *testing.T) {
	t.Parallel()

	config := gemini.BuildConfig()

	require.NotNil(t, config.SystemInstruction)
	require.Len(t, config.SystemInstruction.Parts, 1)
	assert.Contains(t, config.SystemInstruction.Parts[0].Text, "helpful assistant")
}

func TestBuildConfig_SetsTemperature(t *testing.T) {
	t.Parallel()

	config := gemini.BuildConfig()

	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.2, *config.Temperature, 0.001)
}

func TestBuildUserPrompt_ContainsSources(t *testing.T) {
	t.Parallel()

	fragments := []*sitechat.RetrievedFragment{
		fragment("https://example.com/start", "Getting Started", "HTMX is a library."),
		fragment("https://example.com/untitled", "", "No title here."),
	}

	prompt := gemini.BuildUserPrompt(fragments, "What is HTMX?")

	assert.Contains(t, prompt, "<sources>")
	assert.Contains(t, prompt, "<index>1</index>")
	assert.Contains(t, prompt, "Getting Started")
	assert.Contains(t, prompt, "HTMX is a library.")
	assert.Contains(t, prompt, "<title>https://example.com/untitled</title>")
	assert.Contains(t, prompt, "</sources>")
}

func TestBuildUserPrompt_ContainsQuestion(t *testing.T) {
	t.Parallel()

	prompt := gemini.BuildUserPrompt([]*sitechat.RetrievedFragment{fragment("u", "Doc", "Content")}, "How do I use this?")

	assert.Contains(t, prompt, "Question: How do I use this?")
}

func TestBuildUserPrompt_DoesNotContainSystemInstruction(t *testing.T) {
	t.Parallel()

	prompt := gemini.BuildUserPrompt([]*sitechat.RetrievedFragment{fragment("u", "Doc", "Content")}, "question")

	assert.NotContains(t, prompt, "You are a helpful assistant")
}
