package chunk_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/chunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reassemble concatenates chunks, dropping each chunk's overlap with the
// previous one.
func reassemble(chunks []sitechat.TextChunk) string {
	var b strings.Builder
	prevEnd := 0
	for _, c := range chunks {
		r := []rune(c.Text)
		b.WriteString(string(r[prevEnd-c.Start:]))
		prevEnd = c.End
	}
	return b.String()
}

func TestSplitter_Split(t *testing.T) {
	t.Parallel()

	t.Run("empty text yields no chunks", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, chunk.NewSplitter(100, 10).Split(""))
	})

	t.Run("short text is one chunk", func(t *testing.T) {
		t.Parallel()

		chunks := chunk.NewSplitter(100, 10).Split("Hello world.")

		require.Len(t, chunks, 1)
		assert.Equal(t, sitechat.TextChunk{Text: "Hello world.", Start: 0, End: 12}, chunks[0])
	})

	t.Run("prefers paragraph boundaries", func(t *testing.T) {
		t.Parallel()

		text := "First paragraph here.\n\nSecond paragraph. It continues on."
		chunks := chunk.NewSplitter(40, 0).Split(text)

		require.Len(t, chunks, 2)
		assert.Equal(t, "First paragraph here.\n\n", chunks[0].Text)
		assert.Equal(t, "Second paragraph. It continues on.", chunks[1].Text)
	})

	t.Run("falls back to sentence boundaries", func(t *testing.T) {
		t.Parallel()

		text := "One sentence. Two sentence. Three sentence."
		chunks := chunk.NewSplitter(30, 0).Split(text)

		require.Len(t, chunks, 2)
		assert.Equal(t, "One sentence. Two sentence. ", chunks[0].Text)
		assert.Equal(t, "Three sentence.", chunks[1].Text)
	})

	t.Run("falls back to characters without separators", func(t *testing.T) {
		t.Parallel()

		text := strings.Repeat("x", 25)
		chunks := chunk.NewSplitter(10, 2).Split(text)

		require.Len(t, chunks, 3)
		assert.Equal(t, 0, chunks[0].Start)
		assert.Equal(t, 10, chunks[0].End)
		assert.Equal(t, 8, chunks[1].Start)
		assert.Equal(t, 18, chunks[1].End)
		assert.Equal(t, 16, chunks[2].Start)
		assert.Equal(t, 25, chunks[2].End)
	})

	t.Run("consecutive chunks share the overlap", func(t *testing.T) {
		t.Parallel()

		text := strings.Repeat("word ", 100)
		chunks := chunk.NewSplitter(50, 10).Split(text)

		require.Greater(t, len(chunks), 1)
		for i := 1; i < len(chunks); i++ {
			assert.Equal(t, chunks[i-1].End-10, chunks[i].Start)
		}
	})

	t.Run("never exceeds the size", func(t *testing.T) {
		t.Parallel()

		text := strings.Repeat("Lorem ipsum dolor sit amet. ", 200)
		for _, c := range chunk.NewSplitter(120, 20).Split(text) {
			assert.LessOrEqual(t, len([]rune(c.Text)), 120)
		}
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		t.Parallel()

		text := strings.Repeat("żółć ", 10)
		chunks := chunk.NewSplitter(12, 0).Split(text)

		for _, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c.Text)), 12)
		}
		assert.Equal(t, text, reassemble(chunks))
	})

	t.Run("is deterministic", func(t *testing.T) {
		t.Parallel()

		text := strings.Repeat("Alpha beta.\nGamma delta!\n\n", 40)
		s := chunk.NewSplitter(64, 16)

		assert.Equal(t, s.Split(text), s.Split(text))
	})

	t.Run("zero value uses the defaults", func(t *testing.T) {
		t.Parallel()

		text := strings.Repeat("word ", 500)

		chunks := (&chunk.Splitter{}).Split(text)

		require.NotEmpty(t, chunks)
		assert.Equal(t, chunk.NewSplitter(0, 0).Split(text), chunks)
		assert.Equal(t, text, reassemble(chunks))
	})

	t.Run("overlap not below size is clamped", func(t *testing.T) {
		t.Parallel()

		text := strings.Repeat("abcdefghij", 10)

		chunks := (&chunk.Splitter{Size: 10, Overlap: 10}).Split(text)

		require.NotEmpty(t, chunks)
		assert.Equal(t, text, reassemble(chunks))
	})
}

func TestSplitter_Reconstructs(t *testing.T) {
	t.Parallel()

	texts := []string{
		"a",
		strings.Repeat("x", 1001),
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 80),
		strings.Repeat("Para one line.\nLine two!\n\nNext para? Yes. ", 60),
		strings.Repeat("   ", 500),
		strings.Repeat("ümlaut ünïcödé 日本語テキスト。", 90),
	}
	params := [][2]int{{1000, 150}, {100, 15}, {10, 9}, {7, 0}}

	for _, text := range texts {
		for _, p := range params {
			chunks := chunk.NewSplitter(p[0], p[1]).Split(text)
			assert.Equal(t, text, reassemble(chunks), "size=%d overlap=%d", p[0], p[1])
		}
	}
}

func TestNewSplitter(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults", func(t *testing.T) {
		t.Parallel()

		s := chunk.NewSplitter(0, -1)
		assert.Equal(t, chunk.DefaultSize, s.Size)
		assert.Equal(t, 0, s.Overlap)
	})

	t.Run("clamps overlap below size", func(t *testing.T) {
		t.Parallel()

		s := chunk.NewSplitter(10, 50)
		assert.Equal(t, 9, s.Overlap)
	})
}
