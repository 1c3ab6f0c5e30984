package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fwojciec/sitechat"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var (
	_ sitechat.URLService = (*URLService)(nil)
	_ sitechat.PageWriter = (*URLService)(nil)
)

// URLService implements sitechat.URLService and sitechat.PageWriter using SQLite.
type URLService struct {
	db *DB
}

// NewURLService creates a new URLService.
func NewURLService(db *DB) *URLService {
	return &URLService{db: db}
}

// SavePage upserts the URL and, when content is non-nil, its content in
// one transaction. Content whose hash changed loses its fragments and its
// planned chunk count.
func (s *URLService) SavePage(ctx context.Context, u *sitechat.DiscoveredURL, content *sitechat.PageContent) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if content != nil {
		if err := content.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if u.DiscoveredAt.IsZero() {
		u.DiscoveredAt = now()
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO urls (id, site_id, url, depth, title, status_code, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (site_id, url) DO UPDATE SET
			depth = excluded.depth,
			title = excluded.title,
			status_code = excluded.status_code
		RETURNING id
	`, uuid.New().String(), u.SiteID, u.URL, u.Depth, u.Title, u.StatusCode, formatTime(u.DiscoveredAt)).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("upsert url: %w", err)
	}

	if content != nil {
		if err := saveContent(ctx, tx, u, content); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func saveContent(ctx context.Context, tx *sql.Tx, u *sitechat.DiscoveredURL, content *sitechat.PageContent) error {
	content.URLID = u.ID
	content.SourceURL = u.URL
	if content.ContentHash == "" {
		content.ContentHash = hashContent(content.Content)
	}
	if content.ScrapedAt.IsZero() {
		content.ScrapedAt = now()
	}

	var id, hash string
	var total int
	err := tx.QueryRowContext(ctx, `
		SELECT id, content_hash, total_chunks FROM page_content WHERE url_id = ?
	`, u.ID).Scan(&id, &hash, &total)
	switch {
	case err == sql.ErrNoRows:
		content.ID = uuid.New().String()
		content.TotalChunks = 0
		content.FragmentCount = 0
		_, err = tx.ExecContext(ctx, `
			INSERT INTO page_content (id, url_id, title, content, content_length, content_hash, total_chunks, scraped_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		`, content.ID, u.ID, content.Title, content.Content, content.ContentLength, content.ContentHash,
			formatTime(content.ScrapedAt))
		if err != nil {
			return fmt.Errorf("insert content: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("find content: %w", err)
	}

	content.ID = id
	if hash != content.ContentHash {
		if _, err := tx.ExecContext(ctx, "DELETE FROM fragments WHERE content_id = ?", id); err != nil {
			return fmt.Errorf("delete stale fragments: %w", err)
		}
		total = 0
	}
	content.TotalChunks = total

	_, err = tx.ExecContext(ctx, `
		UPDATE page_content
		SET title = ?, content = ?, content_length = ?, content_hash = ?, total_chunks = ?, scraped_at = ?
		WHERE id = ?
	`, content.Title, content.Content, content.ContentLength, content.ContentHash, total,
		formatTime(content.ScrapedAt), id)
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	return nil
}

// FindURLByID retrieves a URL by ID.
func (s *URLService) FindURLByID(ctx context.Context, id string) (*sitechat.DiscoveredURL, error) {
	urls, err := s.FindURLs(ctx, sitechat.URLRecordFilter{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, sitechat.Errorf(sitechat.ENOTFOUND, "url not found")
	}
	return urls[0], nil
}

// FindURLs retrieves URLs matching the filter ordered by depth, then URL.
func (s *URLService) FindURLs(ctx context.Context, filter sitechat.URLRecordFilter) ([]*sitechat.DiscoveredURL, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, site_id, url, depth, title, status_code, discovered_at FROM urls WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.SiteID != nil {
		query.WriteString(" AND site_id = ?")
		args = append(args, *filter.SiteID)
	}
	if filter.URL != nil {
		query.WriteString(" AND url = ?")
		args = append(args, *filter.URL)
	}

	query.WriteString(" ORDER BY depth, url")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []*sitechat.DiscoveredURL
	for rows.Next() {
		var u sitechat.DiscoveredURL
		var discoveredAt string

		if err := rows.Scan(&u.ID, &u.SiteID, &u.URL, &u.Depth, &u.Title, &u.StatusCode, &discoveredAt); err != nil {
			return nil, err
		}
		if u.DiscoveredAt, err = parseRFC3339(discoveredAt, "discovered_at"); err != nil {
			return nil, err
		}
		urls = append(urls, &u)
	}

	return urls, rows.Err()
}
