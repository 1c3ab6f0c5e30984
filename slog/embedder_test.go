package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fwojciec/sitechat/mock"
	sitechatslog "github.com/fwojciec/sitechat/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingEmbedder_Embed(t *testing.T) {
	t.Parallel()

	t.Run("logs text size and dimensions", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Embedder{
			EmbedFn: func(ctx context.Context, text string) ([]float32, error) {
				return []float32{0.1, 0.2, 0.3}, nil
			},
		}

		vector, err := sitechatslog.NewLoggingEmbedder(inner, logger).Embed(context.Background(), "hello")

		require.NoError(t, err)
		assert.Len(t, vector, 3)
		output := buf.String()
		assert.Contains(t, output, "msg=embed")
		assert.Contains(t, output, "chars=5")
		assert.Contains(t, output, "dimensions=3")
		assert.Contains(t, output, "duration=")
	})

	t.Run("logs error on failure", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Embedder{
			EmbedFn: func(ctx context.Context, text string) ([]float32, error) {
				return nil, errors.New("quota exceeded")
			},
		}

		_, err := sitechatslog.NewLoggingEmbedder(inner, logger).Embed(context.Background(), "hello")

		require.Error(t, err)
		assert.Contains(t, buf.String(), "err=\"quota exceeded\"")
	})
}
