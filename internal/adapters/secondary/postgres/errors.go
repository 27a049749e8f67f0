package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// mapPgError translates constraint violations into domain errors.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgForeignKeyViolation:
		switch pgErr.ConstraintName {
		case "help_requests_team_id_fkey", "users_team_id_fkey":
			return apperrors.ErrTeamNotFound
		case "help_requests_creator_id_fkey", "help_requests_resolved_by_fkey":
			return apperrors.ErrUserNotFound
		}
		return apperrors.ErrNotFound
	case pgUniqueViolation:
		return apperrors.ErrConflict
	case pgCheckViolation:
		return apperrors.ErrBadRequest
	}
	return err
}
