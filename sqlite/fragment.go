package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fwojciec/sitechat"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var (
	_ sitechat.FragmentService  = (*FragmentService)(nil)
	_ sitechat.FragmentSearcher = (*FragmentService)(nil)
)

// FragmentService implements sitechat.FragmentService and
// sitechat.FragmentSearcher using SQLite.
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
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + fragmentColumns + " FROM fragments WHERE 1=1")

	if filter.ContentID != nil {
		query.WriteString(" AND content_id = ?")
		args = append(args, *filter.ContentID)
	}

	query.WriteString(" ORDER BY content_id, chunk_index")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
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

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "UPDATE page_content SET total_chunks = ? WHERE id = ?", totalChunks, contentID)
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

	if _, err := tx.ExecContext(ctx, "DELETE FROM fragments WHERE content_id = ?", contentID); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateFragments persists fragments of one content record atomically.
func (s *FragmentService) CreateFragments(ctx context.Context, contentID string, fragments []*sitechat.Fragment) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var total int
	err = tx.QueryRowContext(ctx, "SELECT total_chunks FROM page_content WHERE id = ?", contentID).Scan(&total)
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
		_, err = tx.ExecContext(ctx, `
			INSERT INTO fragments (id, content_id, chunk_index, total_chunks, text, embedding, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, f.ID, f.ContentID, f.ChunkIndex, f.TotalChunks, f.Text, encodeVector(f.Embedding),
			string(metadata), formatTime(f.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert fragment %d: %w", f.ChunkIndex, err)
		}
	}

	return tx.Commit()
}

func usedIndices(ctx context.Context, tx *sql.Tx, contentID string) (map[int]bool, error) {
	rows, err := tx.QueryContext(ctx, "SELECT chunk_index FROM fragments WHERE content_id = ?", contentID)
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
	if limit <= 0 {
		return []*sitechat.SearchResult{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+fragmentColumns+`, distance FROM (
			SELECT `+fragmentColumns+`, cosine_distance(embedding, ?) AS distance
			FROM fragments
		)
		WHERE distance IS NOT NULL
		ORDER BY distance, id
		LIMIT ?
	`, encodeVector(vector), limit)
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

func scanFragment(rows *sql.Rows, extra ...any) (*sitechat.Fragment, error) {
	var f sitechat.Fragment
	var embedding []byte
	var metadata, createdAt string

	dest := append([]any{&f.ID, &f.ContentID, &f.ChunkIndex, &f.TotalChunks, &f.Text, &embedding, &metadata, &createdAt}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	vector, ok := decodeVector(embedding)
	if !ok {
		return nil, fmt.Errorf("fragment %s has a malformed embedding", f.ID)
	}
	f.Embedding = vector
	if err := json.Unmarshal([]byte(metadata), &f.Metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	var err error
	if f.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &f, nil
}
