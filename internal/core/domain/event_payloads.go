package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
)

// TicketSnapshot matches the API and feed wire shape for tickets.
type TicketSnapshot struct {
	ID         string  `json:"id"`
	TeamID     string  `json:"teamId"`
	CreatorID  string  `json:"creatorId"`
	Message    string  `json:"message"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"createdAt"`
	ResolvedAt *string `json:"resolvedAt"`
	ResolvedBy *string `json:"resolvedBy"`
}

// ChangeEventSnapshot is the serialized form of a ChangeEvent.
type ChangeEventSnapshot struct {
	Kind   string         `json:"kind"`
	Ticket TicketSnapshot `json:"ticket"`
}

// NewTicketSnapshot builds a snapshot from a domain ticket.
func NewTicketSnapshot(ticket *Ticket) TicketSnapshot {
	var resolvedAt *string
	if ticket.ResolvedAt != nil {
		value := ticket.ResolvedAt.UTC().Format(time.RFC3339Nano)
		resolvedAt = &value
	}

	var resolvedBy *string
	if ticket.ResolvedBy != nil {
		value := ticket.ResolvedBy.String()
		resolvedBy = &value
	}

	return TicketSnapshot{
		ID:         ticket.ID.String(),
		TeamID:     ticket.TeamID.String(),
		CreatorID:  ticket.CreatorID.String(),
		Message:    ticket.Message,
		Status:     string(ticket.Status),
		CreatedAt:  ticket.CreatedAt.UTC().Format(time.RFC3339Nano),
		ResolvedAt: resolvedAt,
		ResolvedBy: resolvedBy,
	}
}

// NewChangeEventSnapshot builds a snapshot from a change event.
func NewChangeEventSnapshot(event ChangeEvent) ChangeEventSnapshot {
	return ChangeEventSnapshot{
		Kind:   string(event.Kind),
		Ticket: NewTicketSnapshot(&event.Ticket),
	}
}

// ToTicket validates a snapshot received from the wire and converts it
// back into a typed ticket.
func (s TicketSnapshot) ToTicket() (Ticket, error) {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return Ticket{}, fmt.Errorf("ticket id: %w", err)
	}
	teamID, err := uuid.Parse(s.TeamID)
	if err != nil {
		return Ticket{}, fmt.Errorf("team id: %w", err)
	}
	creatorID, err := uuid.Parse(s.CreatorID)
	if err != nil {
		return Ticket{}, fmt.Errorf("creator id: %w", err)
	}
	status := TicketStatus(s.Status)
	if !status.IsValid() {
		return Ticket{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, s.Status)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, s.CreatedAt)
	if err != nil {
		return Ticket{}, fmt.Errorf("created at: %w", err)
	}

	ticket := Ticket{
		ID:        id,
		TeamID:    teamID,
		CreatorID: creatorID,
		Message:   s.Message,
		Status:    status,
		CreatedAt: createdAt,
	}
	if s.ResolvedAt != nil {
		resolvedAt, err := time.Parse(time.RFC3339Nano, *s.ResolvedAt)
		if err != nil {
			return Ticket{}, fmt.Errorf("resolved at: %w", err)
		}
		ticket.ResolvedAt = &resolvedAt
	}
	if s.ResolvedBy != nil {
		resolvedBy, err := uuid.Parse(*s.ResolvedBy)
		if err != nil {
			return Ticket{}, fmt.Errorf("resolved by: %w", err)
		}
		ticket.ResolvedBy = &resolvedBy
	}
	return ticket, nil
}

// ToChangeEvent validates and converts a wire snapshot.
func (s ChangeEventSnapshot) ToChangeEvent() (ChangeEvent, error) {
	kind := ChangeKind(s.Kind)
	if kind != ChangeCreated && kind != ChangeUpdated {
		return ChangeEvent{}, fmt.Errorf("unknown change kind %q", s.Kind)
	}
	ticket, err := s.Ticket.ToTicket()
	if err != nil {
		return ChangeEvent{}, err
	}
	return ChangeEvent{Kind: kind, Ticket: ticket}, nil
}
