package postgres

import (
	"context"

	"github.com/fwojciec/sitechat"
)

// Verify interface compliance
var _ sitechat.StatsService = (*StatsService)(nil)

// StatsService implements sitechat.StatsService using PostgreSQL.
type StatsService struct {
	db *DB
}

// NewStatsService creates a new StatsService.
func NewStatsService(db *DB) *StatsService {
	return &StatsService{db: db}
}

// SiteStats returns statistics for every stored site ordered by name.
func (s *StatsService) SiteStats(ctx context.Context) ([]*sitechat.SiteStats, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		WITH cs AS (
			SELECT u.site_id, c.total_chunks, COUNT(f.id) AS n
			FROM page_content c
			JOIN urls u ON u.id = c.url_id
			LEFT JOIN fragments f ON f.content_id = c.id
			GROUP BY u.site_id, c.id, c.total_chunks
		)
		SELECT s.name,
			(SELECT COUNT(*) FROM urls u WHERE u.site_id = s.id),
			COUNT(cs.site_id),
			COUNT(*) FILTER (WHERE cs.total_chunks > 0 AND cs.n = cs.total_chunks),
			COUNT(*) FILTER (WHERE cs.n > 0 AND cs.n <> cs.total_chunks),
			COALESCE(SUM(cs.n), 0)
		FROM sites s
		LEFT JOIN cs ON cs.site_id = s.id
		GROUP BY s.id, s.name
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
