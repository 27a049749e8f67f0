package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/utils"
)

type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UsageRepository = (*AnalyticsRepository)(nil)

func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

func (r *AnalyticsRepository) TeamUsageSince(ctx context.Context, since time.Time) ([]domain.TeamUsage, error) {
	const query = `
SELECT t.id,
       t.name,
       COUNT(h.id) AS created_count,
       COUNT(h.id) FILTER (WHERE h.status = 'pending') AS pending_count,
       COUNT(h.id) FILTER (WHERE h.status = 'resolved') AS resolved_count
FROM teams t
LEFT JOIN help_requests h ON h.team_id = t.id AND h.created_at >= $1
GROUP BY t.id, t.name
ORDER BY created_count DESC, t.name
`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, utils.ToTimestamptz(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.TeamUsage, 0)
	for rows.Next() {
		var (
			teamID                  pgtype.UUID
			name                    string
			created, pending, fixed int64
		)
		if err := rows.Scan(&teamID, &name, &created, &pending, &fixed); err != nil {
			return nil, err
		}

		items = append(items, domain.TeamUsage{
			TeamID:   utils.FromUUID(teamID),
			TeamName: name,
			Created:  int(created),
			Pending:  int(pending),
			Resolved: int(fixed),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *AnalyticsRepository) MeanResolutionSince(ctx context.Context, since time.Time) (time.Duration, error) {
	const query = `
SELECT AVG(EXTRACT(EPOCH FROM (h.resolved_at - h.created_at)))::float8
FROM help_requests h
WHERE h.created_at >= $1
  AND h.resolved_at IS NOT NULL
`

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query, utils.ToTimestamptz(since))
	var avgSeconds pgtype.Float8
	if err := row.Scan(&avgSeconds); err != nil {
		return 0, err
	}
	if !avgSeconds.Valid {
		return 0, nil
	}
	return time.Duration(avgSeconds.Float64 * float64(time.Second)).Round(time.Second), nil
}
