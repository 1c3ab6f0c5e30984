package sitechat

import "context"

// Retriever returns the fragments most relevant to a set of queries.
type Retriever interface {
	// Retrieve runs every query, merges the hits in query order,
	// deduplicates them by text and truncates the result to opts.GlobalCap.
	// An empty result is not an error.
	Retrieve(ctx context.Context, queries []string, opts RetrieveOptions) ([]*RetrievedFragment, error)
}

// RetrieveOptions configures retrieval.
type RetrieveOptions struct {
	// PerQueryLimit is the number of nearest neighbors requested per query.
	PerQueryLimit int `json:"perQueryLimit"`

	// GlobalCap is the maximum number of fragments returned.
	GlobalCap int `json:"globalCap"`
}

// SubQuestion is one part of a user question with its search paraphrases.
type SubQuestion struct {
	Question        string   `json:"question"`
	ExpandedQueries []string `json:"expanded_queries"`
}

// QueryAnalysis is the decomposition of a user question.
type QueryAnalysis struct {
	MainQuery    string        `json:"main_query"`
	SubQuestions []SubQuestion `json:"sub_questions"`
}

// Queries flattens the expanded queries of all sub-questions in order,
// dropping blanks and duplicates.
func (a *QueryAnalysis) Queries() []string {
	seen := make(map[string]bool)
	var queries []string
	for _, sq := range a.SubQuestions {
		for _, q := range sq.ExpandedQueries {
			if q == "" || seen[q] {
				continue
			}
			seen[q] = true
			queries = append(queries, q)
		}
	}
	return queries
}

// QueryExpander decomposes a question into expanded search queries.
type QueryExpander interface {
	Expand(ctx context.Context, question string) (*QueryAnalysis, error)
}

// Answer is a generated response with the fragments it was grounded on.
type Answer struct {
	Text      string               `json:"text"`
	Queries   []string             `json:"queries"`
	Fragments []*RetrievedFragment `json:"fragments"`
}

// Sources returns the distinct source URLs of the answer's fragments in order.
func (a *Answer) Sources() []string {
	seen := make(map[string]bool)
	var sources []string
	for _, f := range a.Fragments {
		src := f.Fragment.Metadata.SourceURL
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		sources = append(sources, src)
	}
	return sources
}

// Asker provides natural language question answering over indexed sites.
type Asker interface {
	// Ask answers a natural language question.
	// Returns ENOTFOUND if no relevant fragments were retrieved.
	Ask(ctx context.Context, question string) (*Answer, error)
}

// TokenCounter counts model tokens in text.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
