// Package redis provides a Redis-backed embedding cache.
package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/sitechat"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ sitechat.Embedder = (*EmbeddingCache)(nil)

// DefaultTTL is how long cached embeddings live.
const DefaultTTL = 30 * 24 * time.Hour

const keyPrefix = "sitechat:embedding:"

// EmbeddingCache serves embeddings from Redis and delegates misses to the
// wrapped Embedder. Cache failures are logged and never fail a call.
type EmbeddingCache struct {
	client    *redis.Client
	embedder  sitechat.Embedder
	namespace string

	// TTL is the expiry of stored embeddings. Zero means no expiry.
	TTL time.Duration

	Logger *slog.Logger
}

// NewEmbeddingCache creates a cache in front of embedder. Namespace
// separates vectors of different models and dimensions, for example
// "gemini-embedding-001:1536".
func NewEmbeddingCache(client *redis.Client, embedder sitechat.Embedder, namespace string) *EmbeddingCache {
	return &EmbeddingCache{
		client:    client,
		embedder:  embedder,
		namespace: namespace,
		TTL:       DefaultTTL,
	}
}

// Embed returns the cached embedding of text or computes and stores it.
func (c *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.Key(text)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if vector, ok := decode(data); ok {
			return vector, nil
		}
		c.logger().Warn("discarding malformed cached embedding", "key", key)
	case err != redis.Nil:
		c.logger().Warn("embedding cache read failed", "key", key, "error", err)
	}

	vector, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.client.Set(ctx, key, encode(vector), c.TTL).Err(); err != nil {
		c.logger().Warn("embedding cache write failed", "key", key, "error", err)
	}
	return vector, nil
}

// Key returns the cache key of text.
func (c *EmbeddingCache) Key(text string) string {
	return fmt.Sprintf("%s%s:%016x", keyPrefix, c.namespace, xxhash.Sum64String(text))
}

func (c *EmbeddingCache) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// encode stores v as little-endian float32 values.
func encode(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decode(b []byte) ([]float32, bool) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, true
}
