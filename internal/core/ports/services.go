package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
)

// AuthorizationService defines the port for checking role permissions.
type AuthorizationService interface {
	Can(viewer domain.Viewer, permission string) bool
}

// IdentityService resolves the viewer behind an authenticated user id.
type IdentityService interface {
	Resolve(ctx context.Context, userID uuid.UUID) domain.Viewer
}

// CreateTicketParams defines the required input for raising a help request.
type CreateTicketParams struct {
	TeamID    uuid.UUID
	CreatorID uuid.UUID
	Message   string
}

// CreateTicketResult carries the new ticket and the team's quota after it.
type CreateTicketResult struct {
	Ticket *domain.Ticket
	Quota  domain.Quota
}

// TicketService defines the core operations of the ticket store.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*CreateTicketResult, error)
	ResolveTicket(ctx context.Context, ticketID, resolverID uuid.UUID) (*domain.Ticket, error)
	ListUnresolved(ctx context.Context) ([]*domain.Ticket, error)
	ListTeamTickets(ctx context.Context, teamID uuid.UUID) ([]*domain.Ticket, error)
	GetQuota(ctx context.Context, teamID uuid.UUID) (domain.Quota, error)
	Shutdown()
}

// UsageService reports today's wildcard usage across teams.
type UsageService interface {
	Report(ctx context.Context) (*domain.UsageReport, error)
}
