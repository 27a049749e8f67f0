package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/metrics"
)

// TicketService implements the help request store: quota-checked creation,
// idempotent resolution and the unresolved queue.
type TicketService struct {
	ticketRepo ports.TicketRepository
	ledger     *QuotaLedger
	publisher  ports.ChangePublisher
	clock      ports.Clock
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// Events leave through one worker so a ticket's created event always
	// reaches the feed before its update.
	mu      sync.RWMutex
	closed  bool
	events  chan domain.ChangeEvent
	drained chan struct{}
}

// publishQueueSize bounds the events waiting for the feed.
const publishQueueSize = 256

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service
func NewTicketService(
	ticketRepo ports.TicketRepository,
	ledger *QuotaLedger,
	publisher ports.ChangePublisher,
	clock ports.Clock,
	logger *slog.Logger,
	m *metrics.Metrics,
) *TicketService {
	if clock == nil {
		clock = ports.SystemClock
	}
	s := &TicketService{
		ticketRepo: ticketRepo,
		ledger:     ledger,
		publisher:  publisher,
		clock:      clock,
		logger:     logger.With("component", "ticket_service"),
		metrics:    m,
		events:     make(chan domain.ChangeEvent, publishQueueSize),
		drained:    make(chan struct{}),
	}
	go s.runPublisher()
	return s
}

// CreateTicket raises a help request for a team. Validation runs before
// any store access; an exhausted quota returns the exhausted quota along
// with an error wrapping ErrQuotaExceeded.
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*ports.CreateTicketResult, error) {
	// 1. Validate input
	ticketParams := domain.TicketParams{
		TeamID:    params.TeamID,
		CreatorID: params.CreatorID,
		Message:   params.Message,
	}
	if err := ticketParams.Validate(); err != nil {
		return nil, err
	}

	// 2. Reserve a wildcard (serializes creates for the team)
	quota, reservation, err := s.ledger.CheckAndReserve(ctx, params.TeamID)
	if err != nil {
		if errors.Is(err, apperrors.ErrQuotaExceeded) {
			return &ports.CreateTicketResult{Quota: quota}, err
		}
		return nil, err
	}
	defer reservation.Release()

	ticket, err := domain.NewTicket(ticketParams, reservation.Now())
	if err != nil {
		return nil, err
	}

	// 3. Persist. Once sent, the write is not abandoned on cancellation.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	created, err := s.ticketRepo.CreateWithinQuota(
		context.WithoutCancel(ctx), ticket, reservation.Since(), s.ledger.Limit(),
	)
	if err != nil {
		if errors.Is(err, apperrors.ErrQuotaExceeded) {
			s.metrics.QuotaRejected()
			limit := s.ledger.Limit()
			return &ports.CreateTicketResult{Quota: domain.Exhausted(limit, limit)},
				apperrors.NewQuotaExceededError(limit, limit)
		}
		return nil, err
	}

	s.metrics.TicketCreated()

	// 4. Announce on the change feed (async)
	s.publish(domain.ChangeEvent{Kind: domain.ChangeCreated, Ticket: *created})

	return &ports.CreateTicketResult{
		Ticket: created,
		Quota:  quota.AfterCreate(),
	}, nil
}

// ResolveTicket marks a ticket resolved. Resolving an already resolved
// ticket returns it unchanged and emits nothing.
func (s *TicketService) ResolveTicket(ctx context.Context, ticketID, resolverID uuid.UUID) (*domain.Ticket, error) {
	if resolverID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if !ticket.Resolve(resolverID, s.clock.Now()) {
		return ticket, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	updated, applied, err := s.ticketRepo.MarkResolved(context.WithoutCancel(ctx), ticket)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Another resolver won; theirs is the one resolution.
		return updated, nil
	}

	s.metrics.TicketResolved()
	s.publish(domain.ChangeEvent{Kind: domain.ChangeUpdated, Ticket: *updated})

	return updated, nil
}

// ListUnresolved returns a snapshot of pending tickets, oldest first.
func (s *TicketService) ListUnresolved(ctx context.Context) ([]*domain.Ticket, error) {
	return s.ticketRepo.ListUnresolved(ctx)
}

// ListTeamTickets returns the tickets a team raised in the current window.
func (s *TicketService) ListTeamTickets(ctx context.Context, teamID uuid.UUID) ([]*domain.Ticket, error) {
	if teamID == uuid.Nil {
		return nil, apperrors.ErrTeamRequired
	}
	return s.ticketRepo.ListByTeamSince(ctx, teamID, s.ledger.DayStart())
}

// GetQuota reports the team's remaining wildcards for today.
func (s *TicketService) GetQuota(ctx context.Context, teamID uuid.UUID) (domain.Quota, error) {
	return s.ledger.Check(ctx, teamID)
}

// publish queues the event for the feed without blocking the caller. A full
// queue drops the event; delivery is at-most-once.
func (s *TicketService) publish(event domain.ChangeEvent) {
	if s.publisher == nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Warn("dropping change event after shutdown",
			"kind", event.Kind,
			"ticket_id", event.Ticket.ID,
		)
		return
	}

	select {
	case s.events <- event:
	default:
		s.metrics.EventDropped()
		s.logger.Warn("publish queue full, dropping change event",
			"kind", event.Kind,
			"ticket_id", event.Ticket.ID,
		)
	}
}

func (s *TicketService) runPublisher() {
	defer close(s.drained)

	for event := range s.events {
		// The request context may already be gone.
		if err := s.publisher.Publish(context.Background(), event); err != nil {
			s.logger.Warn("failed to publish change event",
				"kind", event.Kind,
				"ticket_id", event.Ticket.ID,
				"error", err,
			)
		}
	}
}

// Shutdown stops accepting events and waits until the queued ones have
// been handed to the feed. Safe to call more than once.
func (s *TicketService) Shutdown() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()

	<-s.drained
}
