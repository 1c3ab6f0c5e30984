package sqlite

import (
	"context"
	"strings"

	"github.com/fwojciec/sitechat"
)

// Compile-time interface verification.
var _ sitechat.ContentService = (*ContentService)(nil)

// ContentService implements sitechat.ContentService using SQLite.
type ContentService struct {
	db *DB
}

// NewContentService creates a new ContentService.
func NewContentService(db *DB) *ContentService {
	return &ContentService{db: db}
}

// FindContentByID retrieves content by ID.
func (s *ContentService) FindContentByID(ctx context.Context, id string) (*sitechat.PageContent, error) {
	contents, err := s.FindContents(ctx, sitechat.ContentFilter{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, sitechat.Errorf(sitechat.ENOTFOUND, "content not found")
	}
	return contents[0], nil
}

// FindContents retrieves content records matching the filter in scrape order.
func (s *ContentService) FindContents(ctx context.Context, filter sitechat.ContentFilter) ([]*sitechat.PageContent, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`
		SELECT c.id, c.url_id, u.url, c.title, c.content, c.content_length, c.content_hash,
			c.total_chunks, c.scraped_at,
			(SELECT COUNT(*) FROM fragments f WHERE f.content_id = c.id)
		FROM page_content c
		JOIN urls u ON u.id = c.url_id
		WHERE 1=1`)

	if filter.ID != nil {
		query.WriteString(" AND c.id = ?")
		args = append(args, *filter.ID)
	}
	if filter.SiteID != nil {
		query.WriteString(" AND u.site_id = ?")
		args = append(args, *filter.SiteID)
	}
	if filter.URLID != nil {
		query.WriteString(" AND c.url_id = ?")
		args = append(args, *filter.URLID)
	}

	query.WriteString(" ORDER BY c.rowid")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contents []*sitechat.PageContent
	for rows.Next() {
		var c sitechat.PageContent
		var scrapedAt string

		if err := rows.Scan(&c.ID, &c.URLID, &c.SourceURL, &c.Title, &c.Content, &c.ContentLength,
			&c.ContentHash, &c.TotalChunks, &scrapedAt, &c.FragmentCount); err != nil {
			return nil, err
		}
		if c.ScrapedAt, err = parseRFC3339(scrapedAt, "scraped_at"); err != nil {
			return nil, err
		}
		contents = append(contents, &c)
	}

	return contents, rows.Err()
}
