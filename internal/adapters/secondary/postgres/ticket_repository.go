package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/utils"
)

const ticketColumns = `id, team_id, creator_id, message, status, created_at, resolved_at, resolved_by`

// TicketRepository is the secondary adapter for help request persistence.
type TicketRepository struct {
	pool *pgxpool.Pool
	tm   *TransactionManager
}

// Ensure TicketRepository implements the ports.TicketRepository interface.
var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool, tm *TransactionManager) *TicketRepository {
	if tm == nil {
		tm = NewTransactionManager(pool)
	}
	return &TicketRepository{pool: pool, tm: tm}
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		id, teamID, creatorID, resolvedBy pgtype.UUID
		message, status                   string
		createdAt, resolvedAt             pgtype.Timestamptz
	)
	if err := row.Scan(&id, &teamID, &creatorID, &message, &status, &createdAt, &resolvedAt, &resolvedBy); err != nil {
		return nil, err
	}

	return &domain.Ticket{
		ID:         utils.FromUUID(id),
		TeamID:     utils.FromUUID(teamID),
		CreatorID:  utils.FromUUID(creatorID),
		Message:    message,
		Status:     domain.TicketStatus(status),
		CreatedAt:  createdAt.Time.UTC(),
		ResolvedAt: utils.FromNullTimestamptz(resolvedAt),
		ResolvedBy: utils.FromNullUUID(resolvedBy),
	}, nil
}

func collectTickets(rows pgx.Rows) ([]*domain.Ticket, error) {
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// CreateWithinQuota counts and inserts under a per-team advisory lock, so
// concurrent creates from any number of processes cannot exceed limit.
func (r *TicketRepository) CreateWithinQuota(ctx context.Context, ticket *domain.Ticket, since time.Time, limit int) (*domain.Ticket, error) {
	const insert = `
INSERT INTO help_requests (id, team_id, creator_id, message, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + ticketColumns

	var created *domain.Ticket
	err := r.tm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := LockKey(ctx, tx, "help_requests:team:"+ticket.TeamID.String()); err != nil {
			return err
		}

		used, err := r.CountByTeamSince(ctx, ticket.TeamID, since)
		if err != nil {
			return err
		}
		if used >= limit {
			return apperrors.ErrQuotaExceeded
		}

		created, err = scanTicket(tx.QueryRow(ctx, insert,
			utils.ToUUID(ticket.ID),
			utils.ToUUID(ticket.TeamID),
			utils.ToUUID(ticket.CreatorID),
			ticket.Message,
			string(ticket.Status),
			utils.ToTimestamptz(ticket.CreatedAt),
		))
		return err
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return created, nil
}

// GetByID retrieves a single ticket by its ID.
func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM help_requests WHERE id = $1`

	ticket, err := scanTicket(GetDBTX(ctx, r.pool).QueryRow(ctx, query, utils.ToUUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// MarkResolved writes the resolution only while the row is still pending.
// When another resolver got there first, the stored row is returned with
// applied=false.
func (r *TicketRepository) MarkResolved(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, bool, error) {
	const update = `
UPDATE help_requests
SET status = 'resolved', resolved_at = $2, resolved_by = $3
WHERE id = $1 AND status = 'pending'
RETURNING ` + ticketColumns

	updated, err := scanTicket(GetDBTX(ctx, r.pool).QueryRow(ctx, update,
		utils.ToUUID(ticket.ID),
		utils.ToNullTimestamptz(ticket.ResolvedAt),
		utils.ToNullUUID(ticket.ResolvedBy),
	))
	if err == nil {
		return updated, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, mapPgError(err)
	}

	current, err := r.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

// ListUnresolved returns pending tickets, oldest first.
func (r *TicketRepository) ListUnresolved(ctx context.Context) ([]*domain.Ticket, error) {
	const query = `
SELECT ` + ticketColumns + `
FROM help_requests
WHERE status = 'pending'
ORDER BY created_at ASC, id ASC`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

// ListByTeamSince returns a team's tickets created at or after since,
// newest first.
func (r *TicketRepository) ListByTeamSince(ctx context.Context, teamID uuid.UUID, since time.Time) ([]*domain.Ticket, error) {
	const query = `
SELECT ` + ticketColumns + `
FROM help_requests
WHERE team_id = $1 AND created_at >= $2
ORDER BY created_at DESC, id DESC`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, utils.ToUUID(teamID), utils.ToTimestamptz(since))
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

// CountByTeamSince counts a team's tickets created at or after since.
func (r *TicketRepository) CountByTeamSince(ctx context.Context, teamID uuid.UUID, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM help_requests WHERE team_id = $1 AND created_at >= $2`

	var count int
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, utils.ToUUID(teamID), utils.ToTimestamptz(since)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
