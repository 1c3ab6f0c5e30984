package crawl_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/crawl"
	"github.com/fwojciec/sitechat/mock"
	"github.com/stretchr/testify/assert"
)

func staticFetcher(resp *sitechat.Response, err error) *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(context.Context, string) (*sitechat.Response, error) {
			return resp, err
		},
	}
}

func echoExtractor() *mock.Extractor {
	return &mock.Extractor{
		ExtractFn: func(html string) (*sitechat.ExtractResult, error) {
			return &sitechat.ExtractResult{Title: "Title", Content: html}, nil
		},
	}
}

func TestContentFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("extracts content from successful pages", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewContentFetcher(
			staticFetcher(&sitechat.Response{StatusCode: 200, ContentType: "text/html", Body: "hello"}, nil),
			echoExtractor(),
		)

		result := f.Fetch(context.Background(), "https://example.com/a")

		assert.Equal(t, &sitechat.PageResult{
			URL:        "https://example.com/a",
			Title:      "Title",
			Content:    "hello",
			StatusCode: 200,
		}, result)
	})

	t.Run("non-200 yields no content but keeps the status", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewContentFetcher(staticFetcher(&sitechat.Response{StatusCode: 500}, nil), echoExtractor())

		result := f.Fetch(context.Background(), "https://example.com/a")

		assert.Empty(t, result.Content)
		assert.Empty(t, result.Title)
		assert.Equal(t, 500, result.StatusCode)
	})

	t.Run("transport errors yield no content", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewContentFetcher(staticFetcher(nil, errors.New("timeout")), echoExtractor())

		result := f.Fetch(context.Background(), "https://example.com/a")

		assert.Equal(t, &sitechat.PageResult{URL: "https://example.com/a"}, result)
	})

	t.Run("parse errors yield no content", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewContentFetcher(
			staticFetcher(&sitechat.Response{StatusCode: 200, Body: "<"}, nil),
			&mock.Extractor{
				ExtractFn: func(string) (*sitechat.ExtractResult, error) {
					return nil, errors.New("bad markup")
				},
			},
		)

		result := f.Fetch(context.Background(), "https://example.com/a")

		assert.Empty(t, result.Content)
		assert.Equal(t, 200, result.StatusCode)
	})

	t.Run("non-HTML bodies yield no content", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewContentFetcher(
			staticFetcher(&sitechat.Response{StatusCode: 200, ContentType: "application/pdf", Body: "%PDF"}, nil),
			echoExtractor(),
		)

		result := f.Fetch(context.Background(), "https://example.com/a.bin")

		assert.Empty(t, result.Content)
	})
}
