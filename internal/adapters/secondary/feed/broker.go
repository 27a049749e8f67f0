// Package feed provides the change feed implementations: an in-process
// broker and a Redis relay that fans out across instances.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/metrics"
)

// DefaultBufferSize is the per-subscriber event buffer.
const DefaultBufferSize = 64

// Broker fans change events out to filtered subscribers in process.
// Publishing never blocks: a subscriber whose buffer is full misses the
// event.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	buffer int
	closed bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

var _ ports.ChangeFeed = (*Broker)(nil)

// NewBroker creates a broker. A non-positive buffer uses DefaultBufferSize.
func NewBroker(buffer int, logger *slog.Logger, m *metrics.Metrics) *Broker {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	return &Broker{
		subs:    make(map[string]*subscription),
		buffer:  buffer,
		logger:  logger.With("component", "feed_broker"),
		metrics: m,
	}
}

// Publish delivers event to every matching subscriber.
func (b *Broker) Publish(_ context.Context, event domain.ChangeEvent) error {
	if err := b.Dispatch(event); err != nil {
		return err
	}
	b.metrics.EventPublished(string(event.Kind))
	return nil
}

// Dispatch hands an event to local subscribers. Relays call it for events
// that were already counted where they were published.
func (b *Broker) Dispatch(event domain.ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return apperrors.ErrFeedClosed
	}

	for _, sub := range b.subs {
		if !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			b.metrics.EventDropped()
			b.logger.Warn("subscriber buffer full, dropping event",
				"subscription_id", sub.id,
				"kind", event.Kind,
				"ticket_id", event.Ticket.ID,
			)
		}
	}
	return nil
}

// Subscribe registers a filtered subscriber.
func (b *Broker) Subscribe(ctx context.Context, filter domain.FeedFilter) (ports.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, apperrors.ErrFeedClosed
	}

	sub := &subscription{
		id:     uuid.NewString(),
		filter: filter,
		events: make(chan domain.ChangeEvent, b.buffer),
		broker: b,
	}
	b.subs[sub.id] = sub

	b.logger.Debug("subscription opened",
		"subscription_id", sub.id,
		"kinds", filter.Kinds,
		"total_subscriptions", len(b.subs),
	)
	return sub, nil
}

// SubscriberCount returns the number of open subscriptions.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription and refuses new ones.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.events)
	}
}

func (b *Broker) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub.id]; !ok {
		// Already closed by Close.
		return
	}
	delete(b.subs, sub.id)
	close(sub.events)

	b.logger.Debug("subscription closed",
		"subscription_id", sub.id,
		"total_subscriptions", len(b.subs),
	)
}

type subscription struct {
	id     string
	filter domain.FeedFilter
	events chan domain.ChangeEvent
	broker *Broker
	once   sync.Once
}

func (s *subscription) ID() string { return s.id }

func (s *subscription) Events() <-chan domain.ChangeEvent { return s.events }

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.broker.remove(s) })
}
