package crawl_test

import (
	"fmt"
	"testing"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontier(t *testing.T) {
	t.Parallel()

	t.Run("pops in insertion order", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewFrontier()
		f.Push(sitechat.DiscoveredLink{URL: "https://example.com/a", Depth: 0})
		f.Push(sitechat.DiscoveredLink{URL: "https://example.com/b", Depth: 1})
		f.Push(sitechat.DiscoveredLink{URL: "https://example.com/c", Depth: 1})

		var got []string
		for {
			link, ok := f.Pop()
			if !ok {
				break
			}
			got = append(got, link.URL)
		}

		assert.Equal(t, []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"}, got)
	})

	t.Run("rejects URLs already seen", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewFrontier()

		assert.True(t, f.Push(sitechat.DiscoveredLink{URL: "https://example.com/a", Depth: 0}))
		assert.False(t, f.Push(sitechat.DiscoveredLink{URL: "https://example.com/a", Depth: 2}))

		_, ok := f.Pop()
		require.True(t, ok)

		// Still seen after being popped.
		assert.False(t, f.Push(sitechat.DiscoveredLink{URL: "https://example.com/a", Depth: 1}))
		assert.True(t, f.Seen("https://example.com/a"))
	})

	t.Run("strips fragments before deduplication", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewFrontier()

		assert.True(t, f.Push(sitechat.DiscoveredLink{URL: "https://example.com/a#top"}))
		assert.False(t, f.Push(sitechat.DiscoveredLink{URL: "https://example.com/a#bottom"}))
		assert.True(t, f.Seen("https://example.com/a"))

		link, ok := f.Pop()
		require.True(t, ok)
		assert.Equal(t, "https://example.com/a", link.URL)
	})

	t.Run("tracks length across many operations", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewFrontier()
		for i := 0; i < 500; i++ {
			f.Push(sitechat.DiscoveredLink{URL: fmt.Sprintf("https://example.com/%d", i)})
		}
		for i := 0; i < 300; i++ {
			link, ok := f.Pop()
			require.True(t, ok)
			require.Equal(t, fmt.Sprintf("https://example.com/%d", i), link.URL)
		}

		assert.Equal(t, 200, f.Len())

		link, ok := f.Pop()
		require.True(t, ok)
		assert.Equal(t, "https://example.com/300", link.URL)
	})

	t.Run("empty frontier", func(t *testing.T) {
		t.Parallel()

		f := crawl.NewFrontier()

		_, ok := f.Pop()
		assert.False(t, ok)
		assert.Equal(t, 0, f.Len())
	})
}
