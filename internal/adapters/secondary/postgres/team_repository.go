package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/utils"
)

type TeamRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TeamRepository = (*TeamRepository)(nil)

func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

func (r *TeamRepository) Exists(ctx context.Context, teamID uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)`

	var exists bool
	if err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, utils.ToUUID(teamID)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts a team and returns its id.
func (r *TeamRepository) Create(ctx context.Context, name string) (uuid.UUID, error) {
	const query = `INSERT INTO teams (name) VALUES ($1) RETURNING id`

	var id pgtype.UUID
	if err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, name).Scan(&id); err != nil {
		return uuid.Nil, mapPgError(err)
	}
	return utils.FromUUID(id), nil
}
