package postgres

import (
	"context"
	"database/sql"

	"github.com/fwojciec/sitechat"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Verify interface compliance
var _ sitechat.SiteService = (*SiteService)(nil)

// SiteService implements sitechat.SiteService using PostgreSQL.
type SiteService struct {
	db *DB
}

// NewSiteService creates a new SiteService.
func NewSiteService(db *DB) *SiteService {
	return &SiteService{db: db}
}

const siteColumns = "id, name, base_urls, max_depth, created_at, updated_at"

// FindSiteByName retrieves a site by its unique name.
func (s *SiteService) FindSiteByName(ctx context.Context, name string) (*sitechat.Site, error) {
	site, err := scanSite(s.db.db.QueryRowContext(ctx, "SELECT "+siteColumns+" FROM sites WHERE name = $1", name))
	if err == sql.ErrNoRows {
		return nil, sitechat.Errorf(sitechat.ENOTFOUND, "site %q not found", name)
	}
	return site, err
}

// FindSites retrieves all sites ordered by name.
func (s *SiteService) FindSites(ctx context.Context) ([]*sitechat.Site, error) {
	rows, err := s.db.db.QueryContext(ctx, "SELECT "+siteColumns+" FROM sites ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []*sitechat.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// UpsertSite creates the site or updates the existing site with the same name.
func (s *SiteService) UpsertSite(ctx context.Context, site *sitechat.Site) error {
	if err := site.Validate(); err != nil {
		return err
	}

	baseURLs := site.BaseURLs
	if baseURLs == nil {
		baseURLs = []string{}
	}

	ts := now()
	return s.db.db.QueryRowContext(ctx, `
		INSERT INTO sites (id, name, base_urls, max_depth, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (name) DO UPDATE SET
			base_urls = EXCLUDED.base_urls,
			max_depth = EXCLUDED.max_depth,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`, uuid.New().String(), site.Name, pq.Array(baseURLs), site.MaxDepth, ts).
		Scan(&site.ID, &site.CreatedAt, &site.UpdatedAt)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(row scanner) (*sitechat.Site, error) {
	var site sitechat.Site
	err := row.Scan(&site.ID, &site.Name, pq.Array(&site.BaseURLs), &site.MaxDepth, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		return nil, err
	}
	site.CreatedAt = site.CreatedAt.UTC()
	site.UpdatedAt = site.UpdatedAt.UTC()
	return &site, nil
}
