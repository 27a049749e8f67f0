package ports

import (
	"context"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
)

// ChangePublisher emits ticket change events.
type ChangePublisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// Subscription is a live, filtered stream of change events. The owner must
// call Unsubscribe when done; it is safe to call more than once and closes
// the Events channel.
type Subscription interface {
	ID() string
	Events() <-chan domain.ChangeEvent
	Unsubscribe()
}

// ChangeFeed is the publish/subscribe primitive over the ticket table.
type ChangeFeed interface {
	ChangePublisher
	Subscribe(ctx context.Context, filter domain.FeedFilter) (Subscription, error)
}

// NotificationSink receives the notifications routed to one viewer.
type NotificationSink interface {
	Deliver(notification domain.Notification) error
}
