package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
)

type fakeSession struct {
	viewer    domain.Viewer
	refreshed domain.Viewer
	closes    atomic.Int32
}

func (s *fakeSession) Viewer() domain.Viewer { return s.viewer }

func (s *fakeSession) Refresh(context.Context) domain.Viewer {
	s.viewer = s.refreshed
	return s.viewer
}

func (s *fakeSession) Close() { s.closes.Add(1) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(hub *Hub) *Client {
	return NewClient(hub, nil, uuid.New(), discardLogger())
}

func TestClient_DeliverQueuesNotification(t *testing.T) {
	client := newTestClient(nil)

	notification := domain.Notification{Type: domain.NotificationNewTicket, Message: "no funciona el CSS"}
	require.NoError(t, client.Deliver(notification))

	msg := <-client.send
	assert.Equal(t, MessageNotification, msg.Type)
	assert.Equal(t, notification, msg.Payload)
}

func TestClient_DeliverNeverBlocks(t *testing.T) {
	client := newTestClient(nil)

	for i := 0; i < sendBufferSize; i++ {
		require.NoError(t, client.Deliver(domain.Notification{}))
	}
	assert.ErrorIs(t, client.Deliver(domain.Notification{}), ErrSendBufferFull)
}

func TestClient_CloseReleasesSessionOnce(t *testing.T) {
	client := newTestClient(nil)
	session := &fakeSession{}
	client.Bind(session)

	client.close()
	client.close()

	assert.Equal(t, int32(1), session.closes.Load())
	assert.ErrorIs(t, client.Deliver(domain.Notification{}), ErrClientClosed)
}

func TestClient_BindGreetsWithContext(t *testing.T) {
	client := newTestClient(nil)
	teamID := uuid.New()
	viewer := domain.Viewer{UserID: uuid.New(), Role: domain.RoleStudent, TeamID: &teamID}

	client.Bind(&fakeSession{viewer: viewer})

	msg := <-client.send
	require.Equal(t, MessageContext, msg.Type)
	payload := msg.Payload.(ContextPayload)
	assert.Equal(t, "student", payload.Role)
	require.NotNil(t, payload.TeamID)
	assert.Equal(t, teamID.String(), *payload.TeamID)
}

func TestClient_HandleIncomingMessages(t *testing.T) {
	client := newTestClient(nil)
	teamID := uuid.New()
	session := &fakeSession{
		viewer:    domain.Viewer{UserID: client.UserID, Role: domain.RoleStudent},
		refreshed: domain.Viewer{UserID: client.UserID, Role: domain.RoleStudent, TeamID: &teamID},
	}
	client.Bind(session)
	<-client.send // greeting

	client.handleIncomingMessage([]byte(`{"type":"PING"}`))
	assert.Equal(t, MessagePong, (<-client.send).Type)

	client.handleIncomingMessage([]byte(`{"type":"REFRESH_CONTEXT"}`))
	msg := <-client.send
	require.Equal(t, MessageContext, msg.Type)
	assert.Equal(t, teamID.String(), *msg.Payload.(ContextPayload).TeamID)

	// Garbage and unknown types are ignored.
	client.handleIncomingMessage([]byte(`not json`))
	client.handleIncomingMessage([]byte(`{"type":"SUBSCRIBE_TO_TICKET"}`))
	assert.Empty(t, client.send)
}

func TestOutboundMessage_JSONShape(t *testing.T) {
	ticketID := uuid.New()
	raw, err := json.Marshal(OutboundMessage{
		Type:    MessageNotification,
		Payload: domain.Notification{Type: domain.NotificationTicketResolved, TicketID: ticketID},
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "NOTIFICATION", decoded["type"])
	payload := decoded["payload"].(map[string]any)
	assert.Equal(t, "TICKET_RESOLVED", payload["type"])
	assert.Equal(t, ticketID.String(), payload["ticketId"])
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newTestClient(hub)
	session := &fakeSession{}
	client.Bind(session)

	require.True(t, hub.Register(client))
	assert.Eventually(t, func() bool { return hub.IsUserConnected(client.UserID) }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.GetClientCount())

	hub.Unregister(client)
	assert.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), session.closes.Load())
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := newTestClient(hub)
	session := &fakeSession{}
	client.Bind(session)
	require.True(t, hub.Register(client))

	cancel()
	<-stopped

	assert.Equal(t, int32(1), session.closes.Load())
	assert.False(t, hub.Register(newTestClient(hub)))

	// Unregistering after shutdown must not block.
	hub.Unregister(client)
}
