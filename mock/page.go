package mock

import (
	"context"

	"github.com/fwojciec/sitechat"
)

var _ sitechat.PageWriter = (*PageWriter)(nil)

// PageWriter is a mock implementation of sitechat.PageWriter.
type PageWriter struct {
	SavePageFn func(ctx context.Context, u *sitechat.DiscoveredURL, content *sitechat.PageContent) error
}

func (w *PageWriter) SavePage(ctx context.Context, u *sitechat.DiscoveredURL, content *sitechat.PageContent) error {
	return w.SavePageFn(ctx, u, content)
}

var _ sitechat.URLService = (*URLService)(nil)

// URLService is a mock implementation of sitechat.URLService.
type URLService struct {
	FindURLByIDFn func(ctx context.Context, id string) (*sitechat.DiscoveredURL, error)
	FindURLsFn    func(ctx context.Context, filter sitechat.URLRecordFilter) ([]*sitechat.DiscoveredURL, error)
}

func (s *URLService) FindURLByID(ctx context.Context, id string) (*sitechat.DiscoveredURL, error) {
	return s.FindURLByIDFn(ctx, id)
}

func (s *URLService) FindURLs(ctx context.Context, filter sitechat.URLRecordFilter) ([]*sitechat.DiscoveredURL, error) {
	return s.FindURLsFn(ctx, filter)
}

var _ sitechat.ContentService = (*ContentService)(nil)

// ContentService is a mock implementation of sitechat.ContentService.
type ContentService struct {
	FindContentByIDFn func(ctx context.Context, id string) (*sitechat.PageContent, error)
	FindContentsFn    func(ctx context.Context, filter sitechat.ContentFilter) ([]*sitechat.PageContent, error)
}

func (s *ContentService) FindContentByID(ctx context.Context, id string) (*sitechat.PageContent, error) {
	return s.FindContentByIDFn(ctx, id)
}

func (s *ContentService) FindContents(ctx context.Context, filter sitechat.ContentFilter) ([]*sitechat.PageContent, error) {
	return s.FindContentsFn(ctx, filter)
}
