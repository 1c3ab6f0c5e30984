package mock

import (
	"context"

	"github.com/fwojciec/sitechat"
)

var _ sitechat.FragmentService = (*FragmentService)(nil)

// FragmentService is a mock implementation of sitechat.FragmentService.
type FragmentService struct {
	FindFragmentsFn   func(ctx context.Context, filter sitechat.FragmentFilter) ([]*sitechat.Fragment, error)
	PlanFragmentsFn   func(ctx context.Context, contentID string, totalChunks int) error
	CreateFragmentsFn func(ctx context.Context, contentID string, fragments []*sitechat.Fragment) error
}

func (s *FragmentService) FindFragments(ctx context.Context, filter sitechat.FragmentFilter) ([]*sitechat.Fragment, error) {
	return s.FindFragmentsFn(ctx, filter)
}

func (s *FragmentService) PlanFragments(ctx context.Context, contentID string, totalChunks int) error {
	return s.PlanFragmentsFn(ctx, contentID, totalChunks)
}

func (s *FragmentService) CreateFragments(ctx context.Context, contentID string, fragments []*sitechat.Fragment) error {
	return s.CreateFragmentsFn(ctx, contentID, fragments)
}

var _ sitechat.FragmentSearcher = (*FragmentSearcher)(nil)

// FragmentSearcher is a mock implementation of sitechat.FragmentSearcher.
type FragmentSearcher struct {
	NearestNeighborsFn func(ctx context.Context, vector []float32, limit int) ([]*sitechat.SearchResult, error)
}

func (s *FragmentSearcher) NearestNeighbors(ctx context.Context, vector []float32, limit int) ([]*sitechat.SearchResult, error) {
	return s.NearestNeighborsFn(ctx, vector, limit)
}

var _ sitechat.Splitter = (*Splitter)(nil)

// Splitter is a mock implementation of sitechat.Splitter.
type Splitter struct {
	SplitFn func(text string) []sitechat.TextChunk
}

func (s *Splitter) Split(text string) []sitechat.TextChunk {
	return s.SplitFn(text)
}
