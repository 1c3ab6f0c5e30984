package sqlite

import (
	"context"

	"github.com/fwojciec/sitechat"
)

// Compile-time interface verification.
var _ sitechat.StatsService = (*StatsService)(nil)

// StatsService implements sitechat.StatsService using SQLite.
type StatsService struct {
	db *DB
}

// NewStatsService creates a new StatsService.
func NewStatsService(db *DB) *StatsService {
	return &StatsService{db: db}
}

// SiteStats returns statistics for every stored site ordered by name.
func (s *StatsService) SiteStats(ctx context.Context) ([]*sitechat.SiteStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH cs AS (
			SELECT u.site_id, c.total_chunks,
				(SELECT COUNT(*) FROM fragments f WHERE f.content_id = c.id) AS n
			FROM page_content c
			JOIN urls u ON u.id = c.url_id
		)
		SELECT s.name,
			(SELECT COUNT(*) FROM urls u WHERE u.site_id = s.id),
			(SELECT COUNT(*) FROM cs WHERE cs.site_id = s.id),
			(SELECT COUNT(*) FROM cs WHERE cs.site_id = s.id AND cs.total_chunks > 0 AND cs.n = cs.total_chunks),
			(SELECT COUNT(*) FROM cs WHERE cs.site_id = s.id AND cs.n > 0 AND cs.n <> cs.total_chunks),
			(SELECT COALESCE(SUM(cs.n), 0) FROM cs WHERE cs.site_id = s.id)
		FROM sites s
		ORDER BY s.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*sitechat.SiteStats
	for rows.Next() {
		var st sitechat.SiteStats
		if err := rows.Scan(&st.Site, &st.URLs, &st.Contents, &st.Embedded, &st.Partial, &st.Fragments); err != nil {
			return nil, err
		}
		stats = append(stats, &st)
	}
	return stats, rows.Err()
}
