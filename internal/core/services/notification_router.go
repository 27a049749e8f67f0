package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/metrics"
)

// RouterState is the lifecycle of a router's feed subscription.
type RouterState string

const (
	StateDisconnected RouterState = "disconnected"
	StateSubscribing  RouterState = "subscribing"
	StateSubscribed   RouterState = "subscribed"
)

// NotificationRouter watches the change feed on behalf of one connected
// viewer and forwards the events that concern them to a sink. It never
// returns errors to its caller: a failed subscription leaves it
// disconnected and a failed event is logged and skipped.
type NotificationRouter struct {
	feed    ports.ChangeFeed
	sink    ports.NotificationSink
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	state  RouterState
	viewer domain.Viewer
	sub    ports.Subscription
	done   chan struct{}
}

// NewNotificationRouter creates a disconnected router.
func NewNotificationRouter(
	feed ports.ChangeFeed,
	sink ports.NotificationSink,
	logger *slog.Logger,
	m *metrics.Metrics,
) *NotificationRouter {
	return &NotificationRouter{
		feed:    feed,
		sink:    sink,
		logger:  logger.With("component", "notification_router"),
		metrics: m,
		state:   StateDisconnected,
	}
}

// FilterFor returns the feed filter for a viewer, or false when the viewer
// gets no notifications at all.
func FilterFor(viewer domain.Viewer) (domain.FeedFilter, bool) {
	switch {
	case viewer.IsAnonymous():
		return domain.FeedFilter{}, false
	case viewer.Role.IsStaff():
		return domain.FeedFilter{Kinds: []domain.ChangeKind{domain.ChangeCreated}}, true
	case viewer.Role == domain.RoleStudent && viewer.HasTeam():
		teamID := viewer.Team()
		return domain.FeedFilter{
			Kinds:  []domain.ChangeKind{domain.ChangeUpdated},
			TeamID: &teamID,
		}, true
	default:
		return domain.FeedFilter{}, false
	}
}

// Route decides what, if anything, a viewer is shown for an event.
func Route(viewer domain.Viewer, event domain.ChangeEvent) (domain.Notification, bool) {
	ticket := event.Ticket

	switch {
	case viewer.IsAnonymous():
		return domain.Notification{}, false

	case viewer.Role.IsStaff():
		if event.Kind != domain.ChangeCreated {
			return domain.Notification{}, false
		}
		return domain.Notification{
			Type:     domain.NotificationNewTicket,
			TicketID: ticket.ID,
			TeamID:   ticket.TeamID,
			Message:  ticket.Message,
			Action:   domain.UnresolvedTicketsPath,
		}, true

	case viewer.Role == domain.RoleStudent && viewer.HasTeam():
		if event.Kind != domain.ChangeUpdated || !ticket.BelongsTo(viewer.Team()) {
			return domain.Notification{}, false
		}
		// Updates other than a resolution are not surfaced.
		if ticket.Status != domain.StatusResolved {
			return domain.Notification{}, false
		}
		return domain.Notification{
			Type:     domain.NotificationTicketResolved,
			TicketID: ticket.ID,
			TeamID:   ticket.TeamID,
			Message:  ticket.Message,
		}, true

	default:
		return domain.Notification{}, false
	}
}

// Attach subscribes on behalf of viewer, replacing any previous
// subscription.
func (r *NotificationRouter) Attach(ctx context.Context, viewer domain.Viewer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.detachLocked()
	r.viewer = viewer
	r.attachLocked(ctx)
}

// UpdateViewer re-subscribes when the viewer's identity changed. The
// previous subscription is fully released before the new one is opened.
func (r *NotificationRouter) UpdateViewer(ctx context.Context, viewer domain.Viewer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if viewer.Equal(r.viewer) && (r.state == StateSubscribed || !isRoutable(viewer)) {
		return
	}

	r.logger.Info("viewer context changed, re-subscribing",
		"user_id", viewer.UserID,
		"role", viewer.Role,
		"team_id", viewer.Team(),
	)

	r.detachLocked()
	r.viewer = viewer
	r.attachLocked(ctx)
}

// Close releases the subscription. It is safe to call more than once.
func (r *NotificationRouter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detachLocked()
}

// State returns the current subscription state.
func (r *NotificationRouter) State() RouterState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Viewer returns the viewer the router currently serves.
func (r *NotificationRouter) Viewer() domain.Viewer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewer
}

func isRoutable(viewer domain.Viewer) bool {
	_, ok := FilterFor(viewer)
	return ok
}

func (r *NotificationRouter) attachLocked(ctx context.Context) {
	filter, ok := FilterFor(r.viewer)
	if !ok {
		r.logger.Debug("viewer receives no notifications",
			"user_id", r.viewer.UserID,
			"role", r.viewer.Role,
		)
		return
	}

	r.state = StateSubscribing
	sub, err := r.feed.Subscribe(ctx, filter)
	if err != nil {
		r.state = StateDisconnected
		r.metrics.SubscribeFailed()
		r.logger.Warn("notifications unavailable, change feed subscription failed",
			"user_id", r.viewer.UserID,
			"role", r.viewer.Role,
			"error", err,
		)
		return
	}

	done := make(chan struct{})
	r.sub = sub
	r.done = done
	r.state = StateSubscribed
	r.metrics.SubscriptionOpened()

	go r.pump(r.viewer, sub, done)
}

func (r *NotificationRouter) detachLocked() {
	if r.sub == nil {
		r.state = StateDisconnected
		return
	}

	r.sub.Unsubscribe()
	<-r.done

	r.sub = nil
	r.done = nil
	r.state = StateDisconnected
	r.metrics.SubscriptionClosed()
}

// pump runs until the subscription's channel is closed.
func (r *NotificationRouter) pump(viewer domain.Viewer, sub ports.Subscription, done chan struct{}) {
	defer close(done)

	for event := range sub.Events() {
		r.handle(viewer, event)
	}
}

func (r *NotificationRouter) handle(viewer domain.Viewer, event domain.ChangeEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.metrics.EventHandlingFailed()
			r.logger.Error("panic while routing change event",
				"ticket_id", event.Ticket.ID,
				"panic", p,
			)
		}
	}()

	notification, ok := Route(viewer, event)
	if !ok {
		return
	}

	if err := r.sink.Deliver(notification); err != nil {
		r.metrics.EventHandlingFailed()
		r.logger.Warn("failed to deliver notification",
			"user_id", viewer.UserID,
			"ticket_id", notification.TicketID,
			"error", err,
		)
		return
	}

	r.metrics.NotificationDelivered(string(notification.Type))
}
