package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/adapters/secondary/feed"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/metrics"
)

// DefaultNotifyChannel is the LISTEN/NOTIFY channel for ticket changes.
const DefaultNotifyChannel = "help_request_changes"

const listenRetryDelay = time.Second

// notifyPayload references the changed row. NOTIFY payloads are capped
// at 8000 bytes, so the listener reads the ticket back instead of
// receiving it inline.
type notifyPayload struct {
	Kind     string `json:"kind"`
	TicketID string `json:"ticketId"`
}

// NotifyFeed publishes change events with pg_notify and relays what a
// dedicated LISTEN connection receives into a local broker.
type NotifyFeed struct {
	pool    *pgxpool.Pool
	tickets ports.TicketRepository
	channel string
	local   *feed.Broker

	logger  *slog.Logger
	metrics *metrics.Metrics

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

var _ ports.ChangeFeed = (*NotifyFeed)(nil)

// NewNotifyFeed starts listening on channel. The initial LISTEN must
// succeed; later connection losses are retried in the background.
func NewNotifyFeed(
	ctx context.Context,
	pool *pgxpool.Pool,
	tickets ports.TicketRepository,
	channel string,
	local *feed.Broker,
	logger *slog.Logger,
	m *metrics.Metrics,
) (*NotifyFeed, error) {
	if channel == "" {
		channel = DefaultNotifyChannel
	}

	f := &NotifyFeed{
		pool:    pool,
		tickets: tickets,
		channel: channel,
		local:   local,
		logger:  logger.With("component", "notify_feed", "channel", channel),
		metrics: m,
		done:    make(chan struct{}),
	}

	conn, err := f.listen(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFeedUnavailable, err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go f.run(listenCtx, conn)

	return f, nil
}

// Publish notifies every listener, including this process.
func (f *NotifyFeed) Publish(ctx context.Context, event domain.ChangeEvent) error {
	payload, err := json.Marshal(notifyPayload{
		Kind:     string(event.Kind),
		TicketID: event.Ticket.ID.String(),
	})
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}

	if _, err := f.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, f.channel, string(payload)); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFeedUnavailable, err)
	}

	f.metrics.EventPublished(string(event.Kind))
	return nil
}

// Subscribe registers with the local broker.
func (f *NotifyFeed) Subscribe(ctx context.Context, filter domain.FeedFilter) (ports.Subscription, error) {
	return f.local.Subscribe(ctx, filter)
}

// Close stops listening and closes all local subscriptions.
func (f *NotifyFeed) Close() {
	f.closeOnce.Do(func() {
		f.cancel()
		<-f.done
		f.local.Close()
	})
}

func (f *NotifyFeed) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, err
	}
	return conn, nil
}

func (f *NotifyFeed) run(ctx context.Context, conn *pgxpool.Conn) {
	defer close(f.done)

	for {
		err := f.consume(ctx, conn)
		// The connection may hold LISTEN state or be broken; never reuse it.
		_ = conn.Conn().Close(context.Background())
		conn.Release()

		if ctx.Err() != nil {
			return
		}
		f.logger.Warn("listen connection lost, reconnecting", "error", err)

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(listenRetryDelay):
			}

			conn, err = f.listen(ctx)
			if err == nil {
				f.logger.Info("listening again")
				break
			}
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn("listen failed", "error", err)
		}
	}
}

func (f *NotifyFeed) consume(ctx context.Context, conn *pgxpool.Conn) error {
	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		event, err := f.decode(ctx, notification.Payload)
		if err != nil {
			f.metrics.EventHandlingFailed()
			f.logger.Warn("discarding change notification", "payload", notification.Payload, "error", err)
			continue
		}

		if err := f.local.Dispatch(event); err != nil {
			return err
		}
	}
}

func (f *NotifyFeed) decode(ctx context.Context, raw string) (domain.ChangeEvent, error) {
	var payload notifyPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return domain.ChangeEvent{}, err
	}

	kind := domain.ChangeKind(payload.Kind)
	if kind != domain.ChangeCreated && kind != domain.ChangeUpdated {
		return domain.ChangeEvent{}, fmt.Errorf("unknown change kind %q", payload.Kind)
	}

	ticketID, err := uuid.Parse(payload.TicketID)
	if err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("ticket id: %w", err)
	}

	ticket, err := f.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTicketNotFound) {
			return domain.ChangeEvent{}, fmt.Errorf("ticket %s no longer exists", ticketID)
		}
		return domain.ChangeEvent{}, err
	}

	return domain.ChangeEvent{Kind: kind, Ticket: *ticket}, nil
}
