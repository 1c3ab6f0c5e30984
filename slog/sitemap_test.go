package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"testing"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/mock"
	sitechatslog "github.com/fwojciec/sitechat/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingSitemapService_DiscoverURLs(t *testing.T) {
	t.Parallel()

	t.Run("logs the seed and the URLs found", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		var gotFilter *sitechat.URLFilter
		inner := &mock.SitemapService{
			DiscoverURLsFn: func(_ context.Context, seed string, filter *sitechat.URLFilter) ([]string, error) {
				gotFilter = filter
				return []string{"https://example.com/a", "https://example.com/b"}, nil
			},
		}
		filter := &sitechat.URLFilter{Exclude: []*regexp.Regexp{regexp.MustCompile(`\.pdf$`)}}

		svc := sitechatslog.NewLoggingSitemapService(inner, logger)
		urls, err := svc.DiscoverURLs(context.Background(), "https://example.com", filter)

		require.NoError(t, err)
		assert.Len(t, urls, 2)
		assert.Same(t, filter, gotFilter)
		output := buf.String()
		assert.Contains(t, output, "level=INFO")
		assert.Contains(t, output, `msg="sitemap seeds"`)
		assert.Contains(t, output, "seed=https://example.com")
		assert.Contains(t, output, "excludes=1")
		assert.Contains(t, output, "urls=2")
		assert.Contains(t, output, "duration=")
	})

	t.Run("logs failures as warnings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.SitemapService{
			DiscoverURLsFn: func(_ context.Context, seed string, filter *sitechat.URLFilter) ([]string, error) {
				return nil, errors.New("connection failed")
			},
		}

		svc := sitechatslog.NewLoggingSitemapService(inner, logger)
		_, err := svc.DiscoverURLs(context.Background(), "https://example.com", nil)

		require.Error(t, err)
		output := buf.String()
		assert.Contains(t, output, "level=WARN")
		assert.Contains(t, output, "excludes=0")
		assert.Contains(t, output, `err="connection failed"`)
	})
}
