package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
)

// TicketRepository is the data access interface over the help request table.
type TicketRepository interface {
	// CreateWithinQuota inserts the ticket unless the team already has
	// limit tickets created at or after since. Implementations must make the
	// count and the insert atomic and return errors.ErrQuotaExceeded on refusal.
	CreateWithinQuota(ctx context.Context, ticket *domain.Ticket, since time.Time, limit int) (*domain.Ticket, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	// MarkResolved applies the resolution only if the ticket is still
	// pending. It reports false when another writer resolved it first.
	MarkResolved(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, bool, error)
	// ListUnresolved returns pending tickets ordered by created_at ascending.
	ListUnresolved(ctx context.Context) ([]*domain.Ticket, error)
	// ListByTeamSince returns a team's tickets created at or after since,
	// newest first.
	ListByTeamSince(ctx context.Context, teamID uuid.UUID, since time.Time) ([]*domain.Ticket, error)
	CountByTeamSince(ctx context.Context, teamID uuid.UUID, since time.Time) (int, error)
}

// TeamRepository answers whether a team row exists.
type TeamRepository interface {
	Exists(ctx context.Context, teamID uuid.UUID) (bool, error)
}

// UsageRepository aggregates help request activity per team.
type UsageRepository interface {
	// TeamUsageSince returns every team with its tickets created at or
	// after since, busiest first.
	TeamUsageSince(ctx context.Context, since time.Time) ([]domain.TeamUsage, error)
	// MeanResolutionSince averages resolved_at - created_at over tickets
	// created at or after since. It is zero when none are resolved.
	MeanResolutionSince(ctx context.Context, since time.Time) (time.Duration, error)
}

// ViewerRepository fetches role and team membership keyed by user id.
type ViewerRepository interface {
	GetViewer(ctx context.Context, userID uuid.UUID) (domain.Viewer, error)
}

// Clock abstracts the current time so day boundaries can be simulated.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns the function's result.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)
