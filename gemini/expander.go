package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fwojciec/sitechat"
	"google.golang.org/genai"
)

// Ensure QueryExpander implements sitechat.QueryExpander at compile time.
var _ sitechat.QueryExpander = (*QueryExpander)(nil)

// QueryExpander splits a question into sub-questions with search
// paraphrases using Gemini structured output.
type QueryExpander struct {
	models   Generator
	executor sitechat.CallExecutor
	model    string

	Logger *slog.Logger
}

// NewQueryExpander creates a new QueryExpander. Every call goes through executor.
func NewQueryExpander(models Generator, executor sitechat.CallExecutor, model string) *QueryExpander {
	if model == "" {
		model = DefaultGenerationModel
	}
	return &QueryExpander{models: models, executor: executor, model: model}
}

// Expand implements sitechat.QueryExpander.
//
// A failed call or an unusable response falls back to the question as its
// own single query, so retrieval can always proceed.
func (e *QueryExpander) Expand(ctx context.Context, question string) (*sitechat.QueryAnalysis, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, sitechat.Errorf(sitechat.EINVALID, "question required")
	}

	var text string
	err := e.executor.Do(ctx, func(ctx context.Context) error {
		result, err := e.models.GenerateContent(ctx, e.model,
			[]*genai.Content{genai.NewContentFromText("User question: "+question, genai.RoleUser)},
			BuildExpansionConfig(),
		)
		if err != nil {
			return apiError(err)
		}
		if result == nil {
			return sitechat.Errorf(sitechat.EINTERNAL, "gemini returned nil result")
		}
		text = result.Text()
		return nil
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		e.logger().Warn("query expansion failed, using question as query", "error", err)
		return fallbackAnalysis(question), nil
	}

	analysis, err := ParseAnalysis(text)
	if err != nil || len(analysis.Queries()) == 0 {
		e.logger().Warn("unusable query expansion, using question as query", "error", err)
		return fallbackAnalysis(question), nil
	}
	if analysis.MainQuery == "" {
		analysis.MainQuery = question
	}
	e.logger().Debug("expanded question",
		"sub_questions", len(analysis.SubQuestions),
		"queries", len(analysis.Queries()),
	)
	return analysis, nil
}

// ParseAnalysis decodes a JSON query analysis, tolerating a surrounding
// markdown code fence.
func ParseAnalysis(text string) (*sitechat.QueryAnalysis, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var analysis sitechat.QueryAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &analysis); err != nil {
		return nil, fmt.Errorf("decode query analysis: %w", err)
	}
	return &analysis, nil
}

func fallbackAnalysis(question string) *sitechat.QueryAnalysis {
	return &sitechat.QueryAnalysis{
		MainQuery: question,
		SubQuestions: []sitechat.SubQuestion{
			{Question: question, ExpandedQueries: []string{question}},
		},
	}
}

// BuildExpansionConfig returns the GenerateContentConfig for query expansion.
func BuildExpansionConfig() *genai.GenerateContentConfig {
	temp := float32(0.1)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You prepare search queries for a semantic search engine over website content. " +
					"Split the user question into independent sub-questions. " +
					"For each sub-question write two to four short search queries that paraphrase it " +
					"with different wording and likely keywords. Keep the language of the question.",
			}},
		},
		Temperature:      &temp,
		MaxOutputTokens:  2048,
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema(),
	}
}

func analysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"main_query": {Type: genai.TypeString},
			"sub_questions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"question": {Type: genai.TypeString},
						"expanded_queries": {
							Type:  genai.TypeArray,
							Items: &genai.Schema{Type: genai.TypeString},
						},
					},
					Required: []string{"question", "expanded_queries"},
				},
			},
		},
		Required: []string{"main_query", "sub_questions"},
	}
}

func (e *QueryExpander) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}
