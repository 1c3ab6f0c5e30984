// Package search implements multi-query retrieval over stored fragments.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fwojciec/sitechat"
	"golang.org/x/sync/errgroup"
)

// Defaults applied when RetrieveOptions leaves a field unset.
const (
	DefaultPerQueryLimit = 5
	DefaultGlobalCap     = 15
)

// Ensure Aggregator implements sitechat.Retriever.
var _ sitechat.Retriever = (*Aggregator)(nil)

// Aggregator fans queries out to nearest-neighbor search and merges the hits.
type Aggregator struct {
	Embedder sitechat.Embedder
	Searcher sitechat.FragmentSearcher

	// Concurrency bounds queries in flight. Values below 1 mean 1.
	Concurrency int

	Logger *slog.Logger
}

// NewAggregator creates an Aggregator that runs one query at a time.
func NewAggregator(embedder sitechat.Embedder, searcher sitechat.FragmentSearcher) *Aggregator {
	return &Aggregator{Embedder: embedder, Searcher: searcher, Concurrency: 1}
}

// Retrieve implements sitechat.Retriever.
//
// Hits are merged in query order and then in rank order within a query,
// whatever order the queries complete in. The first occurrence of a
// fragment text wins. A query that fails is logged and contributes no
// hits; Retrieve fails only when every query failed.
func (a *Aggregator) Retrieve(ctx context.Context, queries []string, opts sitechat.RetrieveOptions) ([]*sitechat.RetrievedFragment, error) {
	perQuery := opts.PerQueryLimit
	if perQuery <= 0 {
		perQuery = DefaultPerQueryLimit
	}
	limit := opts.GlobalCap
	if limit <= 0 {
		limit = DefaultGlobalCap
	}

	queries = nonBlank(queries)
	if len(queries) == 0 {
		return []*sitechat.RetrievedFragment{}, nil
	}

	concurrency := a.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	slots := make([][]*sitechat.RetrievedFragment, len(queries))
	errs := make([]error, len(queries))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, query := range queries {
		g.Go(func() error {
			hits, err := a.search(ctx, query, perQuery)
			if err != nil {
				errs[i] = err
				return nil
			}
			slots[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var firstErr error
	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		if firstErr == nil {
			firstErr = err
		}
		a.logger().Warn("query failed", "query", queries[i], "error", err)
	}
	if failed == len(queries) {
		return nil, fmt.Errorf("all %d queries failed: %w", failed, firstErr)
	}

	results := merge(slots, limit)
	a.logger().Debug("retrieved fragments",
		"queries", len(queries),
		"failed", failed,
		"results", len(results),
	)
	return results, nil
}

func (a *Aggregator) search(ctx context.Context, query string, limit int) ([]*sitechat.RetrievedFragment, error) {
	vector, err := a.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := a.Searcher.NearestNeighbors(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", err)
	}

	hits := make([]*sitechat.RetrievedFragment, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, &sitechat.RetrievedFragment{
			Fragment: m.Fragment,
			Distance: m.Distance,
			Query:    query,
		})
	}
	return hits, nil
}

// merge concatenates the slots, keeps the first hit per fragment text
// and truncates to limit.
func merge(slots [][]*sitechat.RetrievedFragment, limit int) []*sitechat.RetrievedFragment {
	seen := make(map[string]bool)
	results := []*sitechat.RetrievedFragment{}
	for _, hits := range slots {
		for _, hit := range hits {
			if hit.Fragment == nil || seen[hit.Fragment.Text] {
				continue
			}
			seen[hit.Fragment.Text] = true
			results = append(results, hit)
			if len(results) == limit {
				return results
			}
		}
	}
	return results
}

func nonBlank(queries []string) []string {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		if strings.TrimSpace(q) != "" {
			out = append(out, q)
		}
	}
	return out
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.Logger
}
