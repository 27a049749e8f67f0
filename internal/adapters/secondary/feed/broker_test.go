package feed

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func changeEvent(kind domain.ChangeKind, teamID uuid.UUID) domain.ChangeEvent {
	return domain.ChangeEvent{
		Kind: kind,
		Ticket: domain.Ticket{
			ID:        uuid.New(),
			TeamID:    teamID,
			CreatorID: uuid.New(),
			Message:   "no funciona el CSS",
			Status:    domain.StatusPending,
			CreatedAt: time.Now().UTC(),
		},
	}
}

func receive(t *testing.T, ch <-chan domain.ChangeEvent) domain.ChangeEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "subscription channel closed")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return domain.ChangeEvent{}
	}
}

func assertEmpty(t *testing.T, ch <-chan domain.ChangeEvent) {
	t.Helper()
	select {
	case event := <-ch:
		t.Fatalf("unexpected event %+v", event)
	default:
	}
}

func TestBroker_FiltersByKindAndTeam(t *testing.T) {
	ctx := context.Background()
	broker := NewBroker(8, discardLogger(), nil)
	defer broker.Close()

	teamB := uuid.New()
	teamC := uuid.New()

	staff, err := broker.Subscribe(ctx, domain.FeedFilter{Kinds: []domain.ChangeKind{domain.ChangeCreated}})
	require.NoError(t, err)
	teamSub, err := broker.Subscribe(ctx, domain.FeedFilter{
		Kinds:  []domain.ChangeKind{domain.ChangeUpdated},
		TeamID: &teamB,
	})
	require.NoError(t, err)

	created := changeEvent(domain.ChangeCreated, teamB)
	updatedB := changeEvent(domain.ChangeUpdated, teamB)
	updatedC := changeEvent(domain.ChangeUpdated, teamC)

	for _, event := range []domain.ChangeEvent{created, updatedB, updatedC} {
		require.NoError(t, broker.Publish(ctx, event))
	}

	assert.Equal(t, created.Ticket.ID, receive(t, staff.Events()).Ticket.ID)
	assertEmpty(t, staff.Events())

	assert.Equal(t, updatedB.Ticket.ID, receive(t, teamSub.Events()).Ticket.ID)
	assertEmpty(t, teamSub.Events())
}

func TestBroker_DropsForFullSubscriber(t *testing.T) {
	ctx := context.Background()
	broker := NewBroker(1, discardLogger(), nil)
	defer broker.Close()

	slow, err := broker.Subscribe(ctx, domain.FeedFilter{})
	require.NoError(t, err)
	fast, err := broker.Subscribe(ctx, domain.FeedFilter{})
	require.NoError(t, err)

	first := changeEvent(domain.ChangeCreated, uuid.New())
	second := changeEvent(domain.ChangeCreated, uuid.New())

	require.NoError(t, broker.Publish(ctx, first))
	assert.Equal(t, first.Ticket.ID, receive(t, fast.Events()).Ticket.ID)

	// slow never drained; the publish must not block on it.
	done := make(chan struct{})
	go func() {
		_ = broker.Publish(ctx, second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	assert.Equal(t, second.Ticket.ID, receive(t, fast.Events()).Ticket.ID)
	assert.Equal(t, first.Ticket.ID, receive(t, slow.Events()).Ticket.ID)
	assertEmpty(t, slow.Events())
}

func TestBroker_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	broker := NewBroker(4, discardLogger(), nil)

	sub, err := broker.Subscribe(ctx, domain.FeedFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, broker.SubscriberCount())

	sub.Unsubscribe()
	sub.Unsubscribe()

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.Zero(t, broker.SubscriberCount())

	other, err := broker.Subscribe(ctx, domain.FeedFilter{})
	require.NoError(t, err)

	broker.Close()
	_, ok = <-other.Events()
	assert.False(t, ok)
	other.Unsubscribe()

	_, err = broker.Subscribe(ctx, domain.FeedFilter{})
	assert.ErrorIs(t, err, apperrors.ErrFeedClosed)
	assert.ErrorIs(t, broker.Publish(ctx, changeEvent(domain.ChangeCreated, uuid.New())), apperrors.ErrFeedClosed)
}

func TestBroker_SubscribeWithCancelledContext(t *testing.T) {
	broker := NewBroker(4, discardLogger(), nil)
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := broker.Subscribe(ctx, domain.FeedFilter{})
	assert.ErrorIs(t, err, context.Canceled)
}
