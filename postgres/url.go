package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/sitechat"
	"github.com/google/uuid"
)

// Verify interface compliance
var (
	_ sitechat.URLService = (*URLService)(nil)
	_ sitechat.PageWriter = (*URLService)(nil)
)

// URLService implements sitechat.URLService and sitechat.PageWriter using PostgreSQL.
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

	if u.DiscoveredAt.IsZero() {
		u.DiscoveredAt = now()
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO urls (id, site_id, url, depth, title, status_code, discovered_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (site_id, url) DO UPDATE SET
				depth = EXCLUDED.depth,
				title = EXCLUDED.title,
				status_code = EXCLUDED.status_code
			RETURNING id
		`, uuid.New().String(), u.SiteID, u.URL, u.Depth, u.Title, u.StatusCode, u.DiscoveredAt).Scan(&u.ID)
		if err != nil {
			return fmt.Errorf("upsert url: %w", err)
		}

		if content == nil {
			return nil
		}
		return saveContent(ctx, tx, u, content)
	})
}

func saveContent(ctx context.Context, tx *sql.Tx, u *sitechat.DiscoveredURL, content *sitechat.PageContent) error {
	content.URLID = u.ID
	content.SourceURL = u.URL
	if content.ContentHash == "" {
		content.ContentHash = fmt.Sprintf("%016x", xxhash.Sum64String(content.Content))
	}
	if content.ScrapedAt.IsZero() {
		content.ScrapedAt = now()
	}

	var id, hash string
	var total int
	err := tx.QueryRowContext(ctx, `
		SELECT id, content_hash, total_chunks FROM page_content WHERE url_id = $1 FOR UPDATE
	`, u.ID).Scan(&id, &hash, &total)
	switch {
	case err == sql.ErrNoRows:
		content.ID = uuid.New().String()
		content.TotalChunks = 0
		content.FragmentCount = 0
		_, err = tx.ExecContext(ctx, `
			INSERT INTO page_content (id, url_id, title, content, content_length, content_hash, total_chunks, scraped_at)
			VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
		`, content.ID, u.ID, content.Title, content.Content, content.ContentLength, content.ContentHash, content.ScrapedAt)
		if err != nil {
			return fmt.Errorf("insert content: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("find content: %w", err)
	}

	content.ID = id
	if hash != content.ContentHash {
		if _, err := tx.ExecContext(ctx, "DELETE FROM fragments WHERE content_id = $1", id); err != nil {
			return fmt.Errorf("delete stale fragments: %w", err)
		}
		total = 0
	}
	content.TotalChunks = total

	_, err = tx.ExecContext(ctx, `
		UPDATE page_content
		SET title = $1, content = $2, content_length = $3, content_hash = $4, total_chunks = $5, scraped_at = $6
		WHERE id = $7
	`, content.Title, content.Content, content.ContentLength, content.ContentHash, total, content.ScrapedAt, id)
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
	var w where
	if filter.ID != nil {
		w.add("id = $%d", *filter.ID)
	}
	if filter.SiteID != nil {
		w.add("site_id = $%d", *filter.SiteID)
	}
	if filter.URL != nil {
		w.add("url = $%d", *filter.URL)
	}

	query := "SELECT id, site_id, url, depth, title, status_code, discovered_at FROM urls" +
		w.String() + " ORDER BY depth, url" + w.paginate(filter.Limit, filter.Offset)

	rows, err := s.db.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []*sitechat.DiscoveredURL
	for rows.Next() {
		var u sitechat.DiscoveredURL
		if err := rows.Scan(&u.ID, &u.SiteID, &u.URL, &u.Depth, &u.Title, &u.StatusCode, &u.DiscoveredAt); err != nil {
			return nil, err
		}
		u.DiscoveredAt = u.DiscoveredAt.UTC()
		urls = append(urls, &u)
	}
	return urls, rows.Err()
}
