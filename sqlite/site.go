package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fwojciec/sitechat"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ sitechat.SiteService = (*SiteService)(nil)

// SiteService implements sitechat.SiteService using SQLite.
type SiteService struct {
	db *DB
}

// NewSiteService creates a new SiteService.
func NewSiteService(db *DB) *SiteService {
	return &SiteService{db: db}
}

// FindSiteByName retrieves a site by its unique name.
func (s *SiteService) FindSiteByName(ctx context.Context, name string) (*sitechat.Site, error) {
	site, err := scanSite(s.db.QueryRowContext(ctx, `
		SELECT id, name, base_urls, max_depth, created_at, updated_at
		FROM sites
		WHERE name = ?
	`, name))
	if err == sql.ErrNoRows {
		return nil, sitechat.Errorf(sitechat.ENOTFOUND, "site %q not found", name)
	}
	return site, err
}

// FindSites retrieves all sites ordered by name.
func (s *SiteService) FindSites(ctx context.Context) ([]*sitechat.Site, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, base_urls, max_depth, created_at, updated_at
		FROM sites
		ORDER BY name
	`)
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

	baseURLs, err := json.Marshal(nonNil(site.BaseURLs))
	if err != nil {
		return fmt.Errorf("encode base urls: %w", err)
	}

	ts := now()
	var createdAt, updatedAt string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO sites (id, name, base_urls, max_depth, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			base_urls = excluded.base_urls,
			max_depth = excluded.max_depth,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at
	`, uuid.New().String(), site.Name, string(baseURLs), site.MaxDepth, formatTime(ts), formatTime(ts)).
		Scan(&site.ID, &createdAt, &updatedAt)
	if err != nil {
		return err
	}

	if site.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return err
	}
	site.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at")
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(row scanner) (*sitechat.Site, error) {
	var site sitechat.Site
	var baseURLs, createdAt, updatedAt string

	if err := row.Scan(&site.ID, &site.Name, &baseURLs, &site.MaxDepth, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(baseURLs), &site.BaseURLs); err != nil {
		return nil, fmt.Errorf("failed to parse base_urls: %w", err)
	}

	var err error
	if site.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if site.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &site, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
