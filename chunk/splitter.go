// Package chunk splits page text into overlapping fragments along
// paragraph, line, sentence and word boundaries.
package chunk

import "github.com/fwojciec/sitechat"

// Ensure Splitter implements sitechat.Splitter.
var _ sitechat.Splitter = (*Splitter)(nil)

// Default chunking parameters, in characters.
const (
	DefaultSize    = 1000
	DefaultOverlap = 150
)

// separators in priority order. A chunk ends after the last separator
// of the highest priority found in its window.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune(" "),
}

// Splitter cuts text into chunks of at most Size characters, repeating
// up to Overlap characters between consecutive chunks.
type Splitter struct {
	Size    int
	Overlap int
}

// NewSplitter returns a Splitter. Non-positive size selects DefaultSize;
// overlap is clamped to [0, size).
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Splitter{Size: size, Overlap: overlap}
}

// Split implements sitechat.Splitter. Chunks are exact substrings of text;
// dropping each chunk's overlap with its predecessor and concatenating
// reconstructs text. Empty text yields no chunks. Out-of-range Size and
// Overlap are normalized as by NewSplitter.
func (s *Splitter) Split(text string) []sitechat.TextChunk {
	if s.Size <= 0 || s.Overlap < 0 || s.Overlap >= s.Size {
		s = NewSplitter(s.Size, s.Overlap)
	}
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []sitechat.TextChunk
	start := 0
	for {
		end := start + s.Size
		if end >= n {
			chunks = append(chunks, sitechat.TextChunk{Text: string(runes[start:]), Start: start, End: n})
			return chunks
		}

		cut := s.cut(runes, start, end)
		chunks = append(chunks, sitechat.TextChunk{Text: string(runes[start:cut]), Start: start, End: cut})
		start = cut - s.Overlap
	}
}

// cut picks where the chunk starting at start ends, no later than end.
// The cut always lies beyond start+Overlap so that every chunk advances.
func (s *Splitter) cut(runes []rune, start, end int) int {
	floor := start + s.Overlap
	for _, sep := range separators {
		for i := end - len(sep); i >= start; i-- {
			pos := i + len(sep)
			if pos <= floor {
				break
			}
			if hasPrefix(runes[i:], sep) {
				return pos
			}
		}
	}
	return end
}

func hasPrefix(runes, prefix []rune) bool {
	if len(runes) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if runes[i] != r {
			return false
		}
	}
	return true
}
