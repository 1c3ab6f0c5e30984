package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fwojciec/sitechat"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Verify interface compliance
var (
	_ sitechat.FragmentService  = (*FragmentService)(nil)
	_ sitechat.FragmentSearcher = (*FragmentService)(nil)
)

// FragmentService implements sitechat.FragmentService and
// sitechat.FragmentSearcher using PostgreSQL with pgvector.
type FragmentService struct {
	db *DB
}

// NewFragmentService creates a new FragmentService.
func NewFragmentService(db *DB) *FragmentService {
	return &FragmentService{db: db}
}

const fragmentColumns = "id, content_id, chunk_index, total_chunks, text, embedding, metadata, created_at"

// FindFragments retrieves fragments matching the filter ordered by chunk index.
func (s *FragmentService) FindFragments(ctx context.Context, filter sitechat.FragmentFilter) ([]*sitechat.Fragment, error) {
	var w where
	if filter.ContentID != nil {
		w.add("content_id = $%d", *filter.ContentID)
	}

	query := "SELECT " + fragmentColumns + " FROM fragments" +
		w.String() + " ORDER BY content_id, chunk_index" + w.paginate(filter.Limit, filter.Offset)

	rows, err := s.db.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fragments []*sitechat.Fragment
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, f)
	}
	return fragments, rows.Err()
}

// PlanFragments deletes the content's fragments and records its planned chunk count.
func (s *FragmentService) PlanFragments(ctx context.Context, contentID string, totalChunks int) error {
	if totalChunks <= 0 {
		return sitechat.Errorf(sitechat.EINVALID, "total chunks must be positive")
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "UPDATE page_content SET total_chunks = $1 WHERE id = $2", totalChunks, contentID)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sitechat.Errorf(sitechat.ENOTFOUND, "content not found")
		}

		_, err = tx.ExecContext(ctx, "DELETE FROM fragments WHERE content_id = $1", contentID)
		return err
	})
}

// CreateFragments persists fragments of one content record atomically.
// The content row is locked for the duration so concurrent writers cannot
// interleave chunk indices.
func (s *FragmentService) CreateFragments(ctx context.Context, contentID string, fragments []*sitechat.Fragment) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		var total int
		err := tx.QueryRowContext(ctx, "SELECT total_chunks FROM page_content WHERE id = $1 FOR UPDATE", contentID).Scan(&total)
		if err == sql.ErrNoRows {
			return sitechat.Errorf(sitechat.ENOTFOUND, "content not found")
		} else if err != nil {
			return err
		}

		used, err := usedIndices(ctx, tx, contentID)
		if err != nil {
			return err
		}
		if err := sitechat.CheckFragments(contentID, total, used, fragments); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fragments (id, content_id, chunk_index, total_chunks, text, embedding, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, f := range fragments {
			if f.ID == "" {
				f.ID = uuid.New().String()
			}
			if f.CreatedAt.IsZero() {
				f.CreatedAt = now()
			}
			metadata, err := json.Marshal(f.Metadata)
			if err != nil {
				return fmt.Errorf("encode metadata: %w", err)
			}
			_, err = stmt.ExecContext(ctx, f.ID, f.ContentID, f.ChunkIndex, f.TotalChunks, f.Text,
				pgvector.NewVector(f.Embedding), metadata, f.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert fragment %d: %w", f.ChunkIndex, err)
			}
		}
		return nil
	})
}

func usedIndices(ctx context.Context, tx *sql.Tx, contentID string) (map[int]bool, error) {
	rows, err := tx.QueryContext(ctx, "SELECT chunk_index FROM fragments WHERE content_id = $1", contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	used := make(map[int]bool)
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		used[idx] = true
	}
	return used, rows.Err()
}

// NearestNeighbors returns up to limit fragments ordered by increasing
// cosine distance to vector. Fragments of a different dimension are ignored.
func (s *FragmentService) NearestNeighbors(ctx context.Context, vector []float32, limit int) ([]*sitechat.SearchResult, error) {
	if len(vector) == 0 {
		return nil, sitechat.Errorf(sitechat.EINVALID, "query vector required")
	}
	if limit <= 0 || isZero(vector) {
		return []*sitechat.SearchResult{}, nil
	}

	rows, err := s.db.db.QueryContext(ctx, `
		SELECT `+fragmentColumns+`, embedding <=> $1 AS distance
		FROM fragments
		WHERE vector_dims(embedding) = $2 AND vector_norm(embedding) > 0
		ORDER BY distance, id
		LIMIT $3
	`, pgvector.NewVector(vector), len(vector), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []*sitechat.SearchResult{}
	for rows.Next() {
		var distance float64
		f, err := scanFragment(rows, &distance)
		if err != nil {
			return nil, err
		}
		results = append(results, &sitechat.SearchResult{Fragment: f, Distance: distance})
	}
	return results, rows.Err()
}

// isZero reports whether v has no direction, so no cosine distance.
func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func scanFragment(rows *sql.Rows, extra ...any) (*sitechat.Fragment, error) {
	var f sitechat.Fragment
	var embedding pgvector.Vector
	var metadata []byte

	dest := append([]any{&f.ID, &f.ContentID, &f.ChunkIndex, &f.TotalChunks, &f.Text, &embedding, &metadata, &f.CreatedAt}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	f.Embedding = embedding.Slice()
	f.CreatedAt = f.CreatedAt.UTC()
	if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &f, nil
}
