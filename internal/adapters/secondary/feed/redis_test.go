package feed

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisFeed_RelaysAcrossInstances(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	channel := "wildcards:test:" + uuid.NewString()

	publisher, err := NewRedisFeed(ctx, client, channel, NewBroker(8, discardLogger(), nil), discardLogger(), nil)
	require.NoError(t, err)
	defer publisher.Close()

	listener, err := NewRedisFeed(ctx, client, channel, NewBroker(8, discardLogger(), nil), discardLogger(), nil)
	require.NoError(t, err)
	defer listener.Close()

	teamID := uuid.New()
	sub, err := listener.Subscribe(ctx, domain.FeedFilter{
		Kinds:  []domain.ChangeKind{domain.ChangeUpdated},
		TeamID: &teamID,
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	resolvedAt := time.Now().UTC()
	resolver := uuid.New()
	event := changeEvent(domain.ChangeUpdated, teamID)
	event.Ticket.Status = domain.StatusResolved
	event.Ticket.ResolvedAt = &resolvedAt
	event.Ticket.ResolvedBy = &resolver

	// Filtered out on the receiving side.
	require.NoError(t, publisher.Publish(ctx, changeEvent(domain.ChangeCreated, teamID)))
	require.NoError(t, publisher.Publish(ctx, event))

	got := receive(t, sub.Events())
	assert.Equal(t, event.Ticket.ID, got.Ticket.ID)
	assert.Equal(t, domain.StatusResolved, got.Ticket.Status)
	assert.Equal(t, resolver, *got.Ticket.ResolvedBy)
	assert.True(t, resolvedAt.Equal(*got.Ticket.ResolvedAt))
}

func TestRedisFeed_DiscardsMalformedPayloads(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	channel := "wildcards:test:" + uuid.NewString()

	f, err := NewRedisFeed(ctx, client, channel, NewBroker(8, discardLogger(), nil), discardLogger(), nil)
	require.NoError(t, err)
	defer f.Close()

	sub, err := f.Subscribe(ctx, domain.FeedFilter{})
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, channel, "not json").Err())
	require.NoError(t, client.Publish(ctx, channel, `{"kind":"deleted","ticket":{}}`).Err())

	event := changeEvent(domain.ChangeCreated, uuid.New())
	require.NoError(t, f.Publish(ctx, event))

	assert.Equal(t, event.Ticket.ID, receive(t, sub.Events()).Ticket.ID)
}

func TestRedisFeed_CloseEndsSubscriptions(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	f, err := NewRedisFeed(ctx, client, "wildcards:test:"+uuid.NewString(), NewBroker(8, discardLogger(), nil), discardLogger(), nil)
	require.NoError(t, err)

	sub, err := f.Subscribe(ctx, domain.FeedFilter{})
	require.NoError(t, err)

	require.NoError(t, f.Close())
	_, ok := <-sub.Events()
	assert.False(t, ok)
}
