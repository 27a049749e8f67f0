package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Outbound messages buffered per connection.
	sendBufferSize = 64

	// Upper bound for re-resolving the viewer on REFRESH_CONTEXT.
	refreshTimeout = 5 * time.Second
)

// Message types exchanged with the browser.
const (
	MessageNotification   = "NOTIFICATION"
	MessageContext        = "CONTEXT"
	MessagePong           = "PONG"
	MessagePing           = "PING"
	MessageRefreshContext = "REFRESH_CONTEXT"
)

var (
	// ErrClientClosed is returned by Deliver after the connection closed.
	ErrClientClosed = errors.New("websocket client closed")
	// ErrSendBufferFull is returned by Deliver when the client cannot keep up.
	ErrSendBufferFull = errors.New("websocket send buffer full")
)

// Session is the identity context the client drives. *services.Session
// satisfies it.
type Session interface {
	Viewer() domain.Viewer
	Refresh(ctx context.Context) domain.Viewer
	Close()
}

// OutboundMessage is the envelope for everything the server sends.
type OutboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ContextPayload describes the viewer a connection is routed for.
type ContextPayload struct {
	UserID string  `json:"userId"`
	Role   string  `json:"role"`
	TeamID *string `json:"teamId"`
}

// Client is a middleman between the websocket connection and the hub. It
// is also the notification sink of its session's router.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan OutboundMessage

	// User ID for this client.
	UserID uuid.UUID

	session Session

	// mu guards closed and the send channel close.
	mu     sync.Mutex
	closed bool

	// logger for this client
	logger *slog.Logger
}

var _ ports.NotificationSink = (*Client)(nil)

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, logger *slog.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan OutboundMessage, sendBufferSize),
		UserID: userID,
		logger: logger.With("user_id", userID.String()),
	}
}

// Bind attaches the session whose router delivers into this client and
// greets the browser with the viewer it is routed as.
func (c *Client) Bind(session Session) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	c.reply(OutboundMessage{Type: MessageContext, Payload: NewContextPayload(session.Viewer())})
}

// Deliver queues a notification without blocking. It never panics on a
// closed client.
func (c *Client) Deliver(notification domain.Notification) error {
	return c.enqueue(OutboundMessage{Type: MessageNotification, Payload: notification})
}

func (c *Client) enqueue(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// close releases the session and closes the send channel exactly once.
func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	session := c.session
	close(c.send)
	c.mu.Unlock()

	// The router may be mid-Deliver; it only ever sees ErrClientClosed now.
	if session != nil {
		session.Close()
	}
}

// Start launches the I/O pumps.
func (c *Client) Start() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump pumps messages from the websocket connection to the session.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The client was closed. Send close message.
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(msg); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON message to the websocket connection
func (c *Client) writeJSON(msg OutboundMessage) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(msg); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Message Handling ---

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// handleIncomingMessage processes messages received from the client
func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case MessageRefreshContext:
		c.handleRefresh()

	case MessagePing:
		// Client-side keep-alive, respond with pong
		c.reply(OutboundMessage{Type: MessagePong})

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

// handleRefresh re-resolves the viewer after, e.g., a team change and
// tells the browser who it is now routed as.
func (c *Client) handleRefresh() {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	viewer := session.Refresh(ctx)
	c.reply(OutboundMessage{Type: MessageContext, Payload: NewContextPayload(viewer)})
}

func (c *Client) reply(msg OutboundMessage) {
	if err := c.enqueue(msg); err != nil {
		c.logger.Debug("dropping reply", "type", msg.Type, "error", err)
	}
}

// NewContextPayload describes viewer for the browser.
func NewContextPayload(viewer domain.Viewer) ContextPayload {
	payload := ContextPayload{
		UserID: viewer.UserID.String(),
		Role:   string(viewer.Role),
	}
	if viewer.HasTeam() {
		teamID := viewer.Team().String()
		payload.TeamID = &teamID
	}
	return payload
}
