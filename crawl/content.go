package crawl

import (
	"context"
	"log/slog"

	"github.com/fwojciec/sitechat"
)

// ContentFetcher fetches a page and extracts its text. It never fails:
// transport, status and parse problems yield a result without content.
type ContentFetcher struct {
	Fetcher   sitechat.Fetcher
	Extractor sitechat.Extractor
	Logger    *slog.Logger
}

// NewContentFetcher creates a ContentFetcher.
func NewContentFetcher(fetcher sitechat.Fetcher, extractor sitechat.Extractor) *ContentFetcher {
	return &ContentFetcher{Fetcher: fetcher, Extractor: extractor}
}

// Fetch retrieves url and extracts its content.
func (f *ContentFetcher) Fetch(ctx context.Context, url string) *sitechat.PageResult {
	resp, err := f.Fetcher.Fetch(ctx, url)
	if err != nil {
		f.logger().Warn("content fetch failed", "url", url, "error", err)
		return &sitechat.PageResult{URL: url}
	}
	return f.Extract(url, resp)
}

// Extract builds the result for an already fetched response.
func (f *ContentFetcher) Extract(url string, resp *sitechat.Response) *sitechat.PageResult {
	result := &sitechat.PageResult{URL: url}
	if resp == nil {
		return result
	}
	result.StatusCode = resp.StatusCode
	if !resp.OK() {
		f.logger().Info("no content", "url", url, "status", resp.StatusCode)
		return result
	}
	if !resp.IsHTML() {
		f.logger().Info("skipping non-HTML page", "url", url, "content_type", resp.ContentType)
		return result
	}

	extracted, err := f.Extractor.Extract(resp.Body)
	if err != nil {
		f.logger().Warn("content extraction failed", "url", url, "error", err)
		return result
	}
	result.Title = extracted.Title
	result.Content = extracted.Content
	return result
}

func (f *ContentFetcher) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.Logger
}
