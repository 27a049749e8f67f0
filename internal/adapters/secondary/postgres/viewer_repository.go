package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/utils"
)

// ViewerRepository reads role and team membership from the users table.
// Accounts themselves are provisioned by the auth provider.
type ViewerRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ViewerRepository = (*ViewerRepository)(nil)

func NewViewerRepository(pool *pgxpool.Pool) *ViewerRepository {
	return &ViewerRepository{pool: pool}
}

func (r *ViewerRepository) GetViewer(ctx context.Context, userID uuid.UUID) (domain.Viewer, error) {
	const query = `SELECT id, role, team_id FROM users WHERE id = $1`

	var (
		id, teamID pgtype.UUID
		role       string
	)
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, utils.ToUUID(userID)).Scan(&id, &role, &teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Viewer{}, apperrors.ErrUserNotFound
		}
		return domain.Viewer{}, err
	}

	return domain.Viewer{
		UserID: utils.FromUUID(id),
		Role:   domain.ParseRole(role),
		TeamID: utils.FromNullUUID(teamID),
	}, nil
}

// Upsert stores a user's role and team, creating the row if needed.
func (r *ViewerRepository) Upsert(ctx context.Context, viewer domain.Viewer, fullName string) error {
	const query = `
INSERT INTO users (id, full_name, role, team_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET full_name = EXCLUDED.full_name, role = EXCLUDED.role, team_id = EXCLUDED.team_id`

	if viewer.UserID == uuid.Nil || viewer.Role == "" {
		return apperrors.ErrBadRequest
	}

	_, err := GetDBTX(ctx, r.pool).Exec(ctx, query,
		utils.ToUUID(viewer.UserID),
		fullName,
		string(viewer.Role),
		utils.ToNullUUID(viewer.TeamID),
	)
	return mapPgError(err)
}
