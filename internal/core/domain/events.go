package domain

import (
	"slices"

	"github.com/google/uuid"
)

// ChangeKind is the row-level change carried by the feed.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
)

// ChangeEvent is emitted whenever a ticket row is inserted or updated.
type ChangeEvent struct {
	Kind   ChangeKind
	Ticket Ticket
}

// FeedFilter narrows a feed subscription. Empty Kinds matches every kind,
// a nil TeamID matches every team.
type FeedFilter struct {
	Kinds  []ChangeKind
	TeamID *uuid.UUID
}

// Matches reports whether the event passes the filter.
func (f FeedFilter) Matches(event ChangeEvent) bool {
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, event.Kind) {
		return false
	}
	if f.TeamID != nil && event.Ticket.TeamID != *f.TeamID {
		return false
	}
	return true
}

// NotificationType identifies what a viewer is told.
type NotificationType string

const (
	NotificationNewTicket      NotificationType = "NEW_TICKET"
	NotificationTicketResolved NotificationType = "TICKET_RESOLVED"
)

// UnresolvedTicketsPath is where staff jump to from a new-ticket notification.
const UnresolvedTicketsPath = "/wildcards/unresolved"

// Notification is what the router hands to a connected viewer.
type Notification struct {
	Type     NotificationType `json:"type"`
	TicketID uuid.UUID        `json:"ticketId"`
	TeamID   uuid.UUID        `json:"teamId"`
	Message  string           `json:"message"`
	Action   string           `json:"action,omitempty"`
}
