package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/metrics"
)

// DefaultRedisChannel carries serialized change events.
const DefaultRedisChannel = "wildcards:changes"

// RedisFeed publishes change events on a Redis channel and relays what it
// receives into a local broker, so every instance sees every change.
type RedisFeed struct {
	client  *redis.Client
	channel string
	local   *Broker
	pubsub  *redis.PubSub

	logger  *slog.Logger
	metrics *metrics.Metrics

	done      chan struct{}
	closeOnce sync.Once
}

var _ ports.ChangeFeed = (*RedisFeed)(nil)

// NewRedisFeed subscribes to channel and starts the relay. It fails when
// Redis cannot confirm the subscription.
func NewRedisFeed(
	ctx context.Context,
	client *redis.Client,
	channel string,
	local *Broker,
	logger *slog.Logger,
	m *metrics.Metrics,
) (*RedisFeed, error) {
	if channel == "" {
		channel = DefaultRedisChannel
	}

	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %v", apperrors.ErrFeedUnavailable, channel, err)
	}

	f := &RedisFeed{
		client:  client,
		channel: channel,
		local:   local,
		pubsub:  pubsub,
		logger:  logger.With("component", "redis_feed", "channel", channel),
		metrics: m,
		done:    make(chan struct{}),
	}
	go f.relay()

	return f, nil
}

// Publish sends the event to every instance, including this one.
func (f *RedisFeed) Publish(ctx context.Context, event domain.ChangeEvent) error {
	payload, err := json.Marshal(domain.NewChangeEventSnapshot(event))
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}

	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFeedUnavailable, err)
	}

	f.metrics.EventPublished(string(event.Kind))
	return nil
}

// Subscribe registers with the local broker.
func (f *RedisFeed) Subscribe(ctx context.Context, filter domain.FeedFilter) (ports.Subscription, error) {
	return f.local.Subscribe(ctx, filter)
}

// Close stops the relay and closes all local subscriptions.
func (f *RedisFeed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		err = f.pubsub.Close()
		<-f.done
		f.local.Close()
	})
	return err
}

func (f *RedisFeed) relay() {
	defer close(f.done)

	for msg := range f.pubsub.Channel() {
		var snapshot domain.ChangeEventSnapshot
		if err := json.Unmarshal([]byte(msg.Payload), &snapshot); err != nil {
			f.metrics.EventHandlingFailed()
			f.logger.Warn("discarding malformed change event", "error", err)
			continue
		}

		event, err := snapshot.ToChangeEvent()
		if err != nil {
			f.metrics.EventHandlingFailed()
			f.logger.Warn("discarding invalid change event", "error", err)
			continue
		}

		if err := f.local.Dispatch(event); err != nil {
			f.logger.Debug("local broker closed, stopping relay")
			return
		}
	}
}
