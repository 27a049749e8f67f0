package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
)

// MaxMessageLength bounds the free-text description of a help request.
const MaxMessageLength = 2000

// TicketStatus represents the possible states of a help request.
type TicketStatus string

const (
	StatusPending  TicketStatus = "pending"
	StatusResolved TicketStatus = "resolved"
)

// IsValid reports whether s is a known status.
func (s TicketStatus) IsValid() bool {
	return s == StatusPending || s == StatusResolved
}

// Ticket is a help request ("comodín") raised by a team.
type Ticket struct {
	ID         uuid.UUID
	TeamID     uuid.UUID
	CreatorID  uuid.UUID
	Message    string
	Status     TicketStatus
	CreatedAt  time.Time
	ResolvedAt *time.Time
	ResolvedBy *uuid.UUID
}

// TicketParams holds the submitter-provided fields of a new ticket.
type TicketParams struct {
	TeamID    uuid.UUID
	CreatorID uuid.UUID
	Message   string
}

// Validate checks the params before anything touches the store.
func (p TicketParams) Validate() error {
	if p.TeamID == uuid.Nil {
		return apperrors.ErrTeamRequired
	}
	if p.CreatorID == uuid.Nil {
		return apperrors.ErrCreatorRequired
	}
	message := strings.TrimSpace(p.Message)
	if message == "" {
		return apperrors.ErrMessageRequired
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return apperrors.ErrMessageTooLong
	}
	return nil
}

// NewTicket builds a pending ticket from validated params.
func NewTicket(params TicketParams, now time.Time) (*Ticket, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Ticket{
		ID:        uuid.New(),
		TeamID:    params.TeamID,
		CreatorID: params.CreatorID,
		Message:   strings.TrimSpace(params.Message),
		Status:    StatusPending,
		CreatedAt: now.UTC(),
	}, nil
}

// IsResolved reports whether the ticket reached its terminal state.
func (t *Ticket) IsResolved() bool {
	return t.Status == StatusResolved
}

// Resolve moves the ticket to resolved. It returns false when the ticket
// was already resolved, leaving resolved_at and resolved_by untouched.
func (t *Ticket) Resolve(resolverID uuid.UUID, now time.Time) bool {
	if t.IsResolved() {
		return false
	}
	at := now.UTC()
	by := resolverID
	t.Status = StatusResolved
	t.ResolvedAt = &at
	t.ResolvedBy = &by
	return true
}

// BelongsTo reports whether the ticket was raised by the given team.
func (t *Ticket) BelongsTo(teamID uuid.UUID) bool {
	return teamID != uuid.Nil && t.TeamID == teamID
}
