package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fwojciec/sitechat"
	"google.golang.org/genai"
)

// Ensure Asker implements sitechat.Asker at compile time.
var _ sitechat.Asker = (*Asker)(nil)

// Asker implements sitechat.Asker using Google Gemini.
type Asker struct {
	models    Generator
	expander  sitechat.QueryExpander
	retriever sitechat.Retriever
	executor  sitechat.CallExecutor
	model     string

	// Options bounds retrieval for each question.
	Options sitechat.RetrieveOptions

	// Tokens and MaxContextTokens, when both set, drop trailing fragments
	// until the prompt fits the budget.
	Tokens           sitechat.TokenCounter
	MaxContextTokens int

	Logger *slog.Logger
}

// NewAsker creates a new Asker.
func NewAsker(models Generator, expander sitechat.QueryExpander, retriever sitechat.Retriever, executor sitechat.CallExecutor, model string) *Asker {
	if model == "" {
		model = DefaultGenerationModel
	}
	return &Asker{
		models:    models,
		expander:  expander,
		retriever: retriever,
		executor:  executor,
		model:     model,
		Options:   sitechat.RetrieveOptions{PerQueryLimit: 5, GlobalCap: 15},
	}
}

// Ask answers a natural language question from the indexed sites.
func (a *Asker) Ask(ctx context.Context, question string) (*sitechat.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, sitechat.Errorf(sitechat.EINVALID, "question required")
	}

	analysis, err := a.expander.Expand(ctx, question)
	if err != nil {
		return nil, err
	}
	queries := analysis.Queries()
	if len(queries) == 0 {
		queries = []string{question}
	}

	fragments, err := a.retriever.Retrieve(ctx, queries, a.Options)
	if err != nil {
		return nil, err
	}
	if len(fragments) == 0 {
		return nil, sitechat.Errorf(sitechat.ENOTFOUND, "no relevant content found for %q", question)
	}

	prompt, fragments, err := a.fit(ctx, fragments, question)
	if err != nil {
		return nil, err
	}

	var text string
	err = a.executor.Do(ctx, func(ctx context.Context) error {
		result, err := a.models.GenerateContent(ctx, a.model,
			[]*genai.Content{{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: prompt}},
			}},
			BuildConfig(),
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
	if err != nil {
		return nil, err
	}

	return &sitechat.Answer{
		Text:      text,
		Queries:   queries,
		Fragments: fragments,
	}, nil
}

// fit builds the prompt, dropping trailing fragments while it exceeds the
// token budget. At least one fragment is always kept.
func (a *Asker) fit(ctx context.Context, fragments []*sitechat.RetrievedFragment, question string) (string, []*sitechat.RetrievedFragment, error) {
	prompt := BuildUserPrompt(fragments, question)
	if a.Tokens == nil || a.MaxContextTokens <= 0 {
		return prompt, fragments, nil
	}

	for {
		n, err := a.Tokens.CountTokens(ctx, prompt)
		if err != nil {
			return "", nil, fmt.Errorf("count prompt tokens: %w", err)
		}
		if n <= a.MaxContextTokens || len(fragments) == 1 {
			a.logger().Debug("answer prompt", "tokens", n, "fragments", len(fragments))
			return prompt, fragments, nil
		}
		fragments = fragments[:len(fragments)-1]
		prompt = BuildUserPrompt(fragments, question)
	}
}

// BuildConfig returns the GenerateContentConfig for answer generation.
func BuildConfig() *genai.GenerateContentConfig {
	temp := float32(0.2)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You are a helpful assistant answering questions about a website. Answer based only on the sources provided and cite them as [Source N]. If the answer is not in the sources, say so.",
			}},
		},
		Temperature:     &temp,
		MaxOutputTokens: 4096,
	}
}

// BuildUserPrompt builds the user prompt containing the retrieved sources and question.
func BuildUserPrompt(fragments []*sitechat.RetrievedFragment, question string) string {
	var sb strings.Builder
	sb.WriteString("<sources>\n")
	for i, rf := range fragments {
		meta := rf.Fragment.Metadata
		title := meta.Title
		if title == "" {
			title = meta.SourceURL
		}
		sb.WriteString("<source>\n")
		fmt.Fprintf(&sb, "<index>%d</index>\n", i+1)
		fmt.Fprintf(&sb, "<title>%s</title>\n", title)
		fmt.Fprintf(&sb, "<url>%s</url>\n", meta.SourceURL)
		fmt.Fprintf(&sb, "<content>%s</content>\n", rf.Fragment.Text)
		sb.WriteString("</source>\n")
	}
	sb.WriteString("</sources>\n\n")
	fmt.Fprintf(&sb, "Question: %s", question)
	return sb.String()
}

func (a *Asker) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.Logger
}
