// Package embedding turns stored page content into persisted fragments.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fwojciec/sitechat"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of content records read per page.
const DefaultBatchSize = 100

// Summary reports the outcome of one EmbedAllPending run.
type Summary struct {
	// Total counts content records examined.
	Total int `json:"total"`
	// Processed counts records that went through chunking and embedding.
	Processed int `json:"processed"`
	// Skipped counts records that were already fully embedded.
	Skipped int `json:"skipped"`
	// Failed counts records whose fragments could not be planned or stored.
	Failed int `json:"failed"`
	// Incomplete counts processed records still missing fragments.
	Incomplete int `json:"incomplete"`
	// Fragments counts fragments persisted during the run.
	Fragments int `json:"fragments"`
}

// ProgressEvent reports progress of an embedding run.
type ProgressEvent struct {
	Type      ProgressType
	ContentID string
	URL       string
	Embedded  int
	Missing   int
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressSkipped ProgressType = iota
	ProgressCompleted
	ProgressIncomplete
	ProgressFailed
)

// ProgressFunc is a callback for reporting embedding progress.
type ProgressFunc func(event ProgressEvent)

// Pipeline embeds every content record that lacks some of its fragments.
type Pipeline struct {
	Contents  sitechat.ContentService
	Fragments sitechat.FragmentService
	Splitter  sitechat.Splitter
	Embedder  sitechat.Embedder

	// Dimensions is the expected vector length. Zero disables the check.
	Dimensions int

	// Concurrency bounds in-flight chunk embeddings per record. The
	// embedder's executor applies its own limit on top of this.
	Concurrency int

	BatchSize int
	Progress  ProgressFunc
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewPipeline creates a Pipeline.
func NewPipeline(contents sitechat.ContentService, fragments sitechat.FragmentService, splitter sitechat.Splitter, embedder sitechat.Embedder) *Pipeline {
	return &Pipeline{
		Contents:    contents,
		Fragments:   fragments,
		Splitter:    splitter,
		Embedder:    embedder,
		Concurrency: 1,
		BatchSize:   DefaultBatchSize,
	}
}

// EmbedAllPending embeds every content record that is not fully embedded.
//
// Records whose planned chunk count matches the current split only have
// their missing chunk indices embedded. Otherwise the record is re-planned
// and all of its fragments are rebuilt. Chunk failures are logged and leave
// a detectable gap; record failures are counted and do not stop the run.
// Only listing errors and context cancellation abort the run.
func (p *Pipeline) EmbedAllPending(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	batch := p.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	for offset := 0; ; offset += batch {
		contents, err := p.Contents.FindContents(ctx, sitechat.ContentFilter{Offset: offset, Limit: batch})
		if err != nil {
			return nil, fmt.Errorf("list contents: %w", err)
		}

		for _, content := range contents {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			summary.Total++

			if content.Embedded() {
				summary.Skipped++
				p.progress(ProgressEvent{Type: ProgressSkipped, ContentID: content.ID, URL: content.SourceURL})
				continue
			}

			res, err := p.embedContent(ctx, content)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err != nil {
				summary.Failed++
				p.logger().Error("failed to embed content",
					"content_id", content.ID,
					"url", content.SourceURL,
					"error", err,
				)
				p.progress(ProgressEvent{Type: ProgressFailed, ContentID: content.ID, URL: content.SourceURL, Error: err})
				continue
			}

			summary.Processed++
			summary.Fragments += res.embedded
			if res.missing > 0 {
				summary.Incomplete++
				p.logger().Warn("content embedded with gaps",
					"content_id", content.ID,
					"url", content.SourceURL,
					"missing", res.missing,
				)
				p.progress(ProgressEvent{Type: ProgressIncomplete, ContentID: content.ID, URL: content.SourceURL, Embedded: res.embedded, Missing: res.missing})
			} else {
				p.progress(ProgressEvent{Type: ProgressCompleted, ContentID: content.ID, URL: content.SourceURL, Embedded: res.embedded})
			}
		}

		if len(contents) < batch {
			break
		}
	}

	p.logger().Info("embedding finished",
		"total", summary.Total,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"incomplete", summary.Incomplete,
	)
	return summary, nil
}

type result struct {
	embedded int
	missing  int
}

func (p *Pipeline) embedContent(ctx context.Context, content *sitechat.PageContent) (result, error) {
	chunks := p.Splitter.Split(content.Content)
	if len(chunks) == 0 {
		return result{}, sitechat.Errorf(sitechat.EINVALID, "content %s produced no chunks", content.ID)
	}
	total := len(chunks)

	done := make(map[int]bool)
	switch {
	case content.TotalChunks != total:
		// First pass, or the split changed since the record was planned.
		if err := p.Fragments.PlanFragments(ctx, content.ID, total); err != nil {
			return result{}, fmt.Errorf("plan fragments: %w", err)
		}
	case content.FragmentCount > 0:
		existing, err := p.Fragments.FindFragments(ctx, sitechat.FragmentFilter{ContentID: &content.ID})
		if err != nil {
			return result{}, fmt.Errorf("find fragments: %w", err)
		}
		for _, f := range existing {
			done[f.ChunkIndex] = true
		}
	}

	var pending []int
	for i := range chunks {
		if !done[i] {
			pending = append(pending, i)
		}
	}

	vectors := p.embedChunks(ctx, content, chunks, pending)

	now := p.now()
	fragments := make([]*sitechat.Fragment, 0, len(pending))
	for i, idx := range pending {
		if vectors[i] == nil {
			continue
		}
		fragments = append(fragments, &sitechat.Fragment{
			ContentID:   content.ID,
			ChunkIndex:  idx,
			TotalChunks: total,
			Text:        chunks[idx].Text,
			Embedding:   vectors[i],
			Metadata: sitechat.FragmentMetadata{
				SourceURL:   content.SourceURL,
				Title:       content.Title,
				ChunkIndex:  idx,
				TotalChunks: total,
				ContentID:   content.ID,
				URLID:       content.URLID,
				EmbeddedAt:  now,
			},
			CreatedAt: now,
		})
	}

	if len(fragments) > 0 {
		if err := p.Fragments.CreateFragments(ctx, content.ID, fragments); err != nil {
			return result{}, fmt.Errorf("create fragments: %w", err)
		}
	}

	return result{
		embedded: len(fragments),
		missing:  len(pending) - len(fragments),
	}, nil
}

// embedChunks embeds the pending chunks and returns their vectors in
// pending order. Failed chunks leave a nil slot.
func (p *Pipeline) embedChunks(ctx context.Context, content *sitechat.PageContent, chunks []sitechat.TextChunk, pending []int) [][]float32 {
	vectors := make([][]float32, len(pending))

	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, idx := range pending {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			vector, err := p.Embedder.Embed(ctx, chunks[idx].Text)
			if err != nil {
				p.logger().Warn("chunk embedding failed",
					"content_id", content.ID,
					"chunk_index", idx,
					"error", err,
				)
				return nil
			}
			if p.Dimensions > 0 && len(vector) != p.Dimensions {
				p.logger().Warn("chunk embedding has wrong dimensions",
					"content_id", content.ID,
					"chunk_index", idx,
					"got", len(vector),
					"want", p.Dimensions,
				)
				return nil
			}
			if len(vector) == 0 {
				p.logger().Warn("chunk embedding is empty", "content_id", content.ID, "chunk_index", idx)
				return nil
			}
			vectors[i] = vector
			return nil
		})
	}
	_ = g.Wait()

	return vectors
}

func (p *Pipeline) progress(event ProgressEvent) {
	if p.Progress != nil {
		p.Progress(event)
	}
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}
