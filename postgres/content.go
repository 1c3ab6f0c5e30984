package postgres

import (
	"context"

	"github.com/fwojciec/sitechat"
)

// Verify interface compliance
var _ sitechat.ContentService = (*ContentService)(nil)

// ContentService implements sitechat.ContentService using PostgreSQL.
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
	var w where
	if filter.ID != nil {
		w.add("c.id = $%d", *filter.ID)
	}
	if filter.SiteID != nil {
		w.add("u.site_id = $%d", *filter.SiteID)
	}
	if filter.URLID != nil {
		w.add("c.url_id = $%d", *filter.URLID)
	}

	query := `
		SELECT c.id, c.url_id, u.url, c.title, c.content, c.content_length, c.content_hash,
			c.total_chunks, c.scraped_at,
			(SELECT COUNT(*) FROM fragments f WHERE f.content_id = c.id)
		FROM page_content c
		JOIN urls u ON u.id = c.url_id` +
		w.String() + " ORDER BY c.seq" + w.paginate(filter.Limit, filter.Offset)

	rows, err := s.db.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contents []*sitechat.PageContent
	for rows.Next() {
		var c sitechat.PageContent
		if err := rows.Scan(&c.ID, &c.URLID, &c.SourceURL, &c.Title, &c.Content, &c.ContentLength,
			&c.ContentHash, &c.TotalChunks, &c.ScrapedAt, &c.FragmentCount); err != nil {
			return nil, err
		}
		c.ScrapedAt = c.ScrapedAt.UTC()
		contents = append(contents, &c)
	}
	return contents, rows.Err()
}
