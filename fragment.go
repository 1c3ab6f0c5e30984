package sitechat

import (
	"context"
	"time"
)

// Fragment represents an embedded slice of page content, the unit of retrieval.
type Fragment struct {
	ID          string           `json:"id"`
	ContentID   string           `json:"contentId"`
	ChunkIndex  int              `json:"chunkIndex"`
	TotalChunks int              `json:"totalChunks"`
	Text        string           `json:"text"`
	Embedding   []float32        `json:"embedding,omitempty"`
	Metadata    FragmentMetadata `json:"metadata"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// FragmentMetadata contains citation information about a fragment.
type FragmentMetadata struct {
	SourceURL   string    `json:"source"`
	Title       string    `json:"title,omitempty"`
	ChunkIndex  int       `json:"chunkIndex"`
	TotalChunks int       `json:"totalChunks"`
	ContentID   string    `json:"contentId"`
	URLID       string    `json:"urlId"`
	EmbeddedAt  time.Time `json:"timestamp"`
}

// Validate returns an error if the fragment contains invalid fields.
func (f *Fragment) Validate() error {
	if f.ContentID == "" {
		return Errorf(EINVALID, "fragment content ID required")
	}
	if f.Text == "" {
		return Errorf(EINVALID, "fragment text required")
	}
	if len(f.Embedding) == 0 {
		return Errorf(EINVALID, "fragment embedding required")
	}
	if f.TotalChunks <= 0 || f.ChunkIndex < 0 || f.ChunkIndex >= f.TotalChunks {
		return Errorf(EINVALID, "fragment chunk index %d out of range [0,%d)", f.ChunkIndex, f.TotalChunks)
	}
	return nil
}

// CheckFragments verifies that fragments can be added to a content record
// planned with total chunks whose used indices are already stored. Every
// fragment must be valid, belong to contentID, carry the planned total, use
// a free chunk index and share one embedding dimension. used is updated
// with the indices of the batch.
func CheckFragments(contentID string, total int, used map[int]bool, fragments []*Fragment) error {
	dims := 0
	for _, f := range fragments {
		if err := f.Validate(); err != nil {
			return err
		}
		if f.ContentID != contentID {
			return Errorf(EINVALID, "fragment belongs to content %s, not %s", f.ContentID, contentID)
		}
		if f.TotalChunks != total {
			return Errorf(EINVALID, "fragment total chunks %d does not match planned %d", f.TotalChunks, total)
		}
		if used[f.ChunkIndex] {
			return Errorf(EINVALID, "chunk index %d already stored", f.ChunkIndex)
		}
		if dims == 0 {
			dims = len(f.Embedding)
		} else if len(f.Embedding) != dims {
			return Errorf(EINVALID, "fragment embedding has %d dimensions, want %d", len(f.Embedding), dims)
		}
		used[f.ChunkIndex] = true
	}
	return nil
}

// FragmentService represents a service for managing fragments.
type FragmentService interface {
	// FindFragments retrieves fragments matching the filter ordered by chunk index.
	FindFragments(ctx context.Context, filter FragmentFilter) ([]*Fragment, error)

	// PlanFragments deletes all fragments of the content and records
	// totalChunks as its planned fragment count.
	// Returns ENOTFOUND if the content does not exist.
	PlanFragments(ctx context.Context, contentID string, totalChunks int) error

	// CreateFragments persists fragments of one content record atomically.
	// Every fragment must belong to contentID, carry the content's planned
	// TotalChunks and an unused chunk index; otherwise nothing is written
	// and EINVALID is returned.
	CreateFragments(ctx context.Context, contentID string, fragments []*Fragment) error
}

// FragmentFilter represents a filter for FindFragments.
type FragmentFilter struct {
	ContentID *string `json:"contentId"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// FragmentSearcher performs nearest-neighbor search over stored fragments.
type FragmentSearcher interface {
	// NearestNeighbors returns up to limit fragments ordered by increasing
	// cosine distance to vector.
	NearestNeighbors(ctx context.Context, vector []float32, limit int) ([]*SearchResult, error)
}

// SearchResult represents a nearest-neighbor match.
type SearchResult struct {
	Fragment *Fragment `json:"fragment"`
	Distance float64   `json:"distance"`
}

// RetrievedFragment is a fragment together with the query that found it.
// It is never persisted.
type RetrievedFragment struct {
	Fragment *Fragment `json:"fragment"`
	Distance float64   `json:"distance"`
	Query    string    `json:"query"`
}

// TextChunk is one piece of split text. Start and End are rune offsets
// into the source text; consecutive chunks may overlap.
type TextChunk struct {
	Text  string
	Start int
	End   int
}

// Splitter splits text into ordered, overlapping chunks.
// Implementations must be deterministic.
type Splitter interface {
	Split(text string) []TextChunk
}

// Embedder converts text into a fixed-dimension vector.
type Embedder interface {
	// Embed returns the embedding of text. Rate-limit and quota failures
	// are reported with code ERATELIMIT.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CallExecutor runs calls to external APIs under pacing, concurrency and
// retry policy.
type CallExecutor interface {
	Do(ctx context.Context, call func(ctx context.Context) error) error
}
