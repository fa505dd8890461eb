package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/tekuonline/uptivalab/internal/auth"
	"github.com/tekuonline/uptivalab/internal/metrics"
	"github.com/tekuonline/uptivalab/internal/models"
)

// Message types
const (
	TypeCheckResult = "check_result"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
	TypePong        = "pong"
)

const bufferSize = 256

// Message represents a WebSocket message
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscriptionPayload is the payload of subscribe and unsubscribe messages
type SubscriptionPayload struct {
	MonitorIDs []int `json:"monitor_ids"`
}

type outbound struct {
	monitorID int // 0 for messages every client receives
	data      []byte
}

// Client represents a WebSocket client
type Client struct {
	ID      string
	Subject string
	Conn    *websocket.Conn
	Hub     *Hub
	Send    chan []byte

	mu       sync.RWMutex
	filtered bool
	monitors map[int]struct{}
}

// Hub maintains active clients and broadcasts messages
type Hub struct {
	clients        map[*Client]struct{}
	broadcast      chan outbound
	register       chan *Client
	unregister     chan *Client
	done           chan struct{}
	mu             sync.RWMutex
	verifier       *auth.Verifier
	allowedOrigins []string
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

// NewHub creates a new Hub
func NewHub(verifier *auth.Verifier, allowedOrigins []string, m *metrics.Metrics, logger *zap.Logger) *Hub {
	return &Hub{
		clients:        make(map[*Client]struct{}),
		broadcast:      make(chan outbound, bufferSize),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
		verifier:       verifier,
		allowedOrigins: allowedOrigins,
		metrics:        m,
		logger:         logger,
	}
}

// Run starts the hub and returns once ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.Send)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("websocket client connected",
				zap.String("client", client.ID), zap.String("subject", client.Subject))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Debug("websocket client disconnected", zap.String("client", client.ID))
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(msg.monitorID) {
					continue
				}
				select {
				case client.Send <- msg.data:
				default:
					// Slow consumer
					close(client.Send)
					delete(h.clients, client)
					h.logger.Warn("dropping slow websocket client", zap.String("client", client.ID))
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// EmitResult publishes a check result to subscribed clients. It never
// blocks: when the hub buffer is full the message is dropped.
func (h *Hub) EmitResult(result *models.CheckResult) {
	data, err := encode(TypeCheckResult, result)
	if err != nil {
		h.logger.Error("failed to encode check result", zap.Error(err))
		return
	}
	h.enqueue(outbound{monitorID: result.MonitorID, data: data})
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msgType string, payload interface{}) error {
	data, err := encode(msgType, payload)
	if err != nil {
		return err
	}
	h.enqueue(outbound{data: data})
	return nil
}

func (h *Hub) enqueue(msg outbound) {
	select {
	case h.broadcast <- msg:
	default:
		h.metrics.BroadcastDropped()
		h.logger.Warn("websocket broadcast buffer full, message dropped",
			zap.Int("monitor_id", msg.monitorID))
	}
}

func encode(msgType string, payload interface{}) ([]byte, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: msgType, Payload: payloadJSON})
}

// HandleWebSocket handles WebSocket connections
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	subject, err := h.verifier.Verify(auth.FromRequest(r))
	if err != nil {
		h.logger.Info("websocket connection rejected",
			zap.String("remote", r.RemoteAddr), zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(h.allowedOrigins),
	})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:       uuid.NewString(),
		Subject:  subject,
		Conn:     conn,
		Hub:      h,
		Send:     make(chan []byte, bufferSize),
		monitors: make(map[int]struct{}),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go client.writePump(ctx)
	go client.readPump(ctx)
}

// wants reports whether the client receives messages for monitorID. A
// client that never subscribed, or reset with an empty unsubscribe,
// receives everything.
func (c *Client) wants(monitorID int) bool {
	if monitorID == 0 {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.filtered {
		return true
	}
	_, ok := c.monitors[monitorID]
	return ok
}

func (c *Client) subscribe(ids []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(ids) == 0 {
		return
	}
	c.filtered = true
	for _, id := range ids {
		c.monitors[id] = struct{}{}
	}
}

func (c *Client) unsubscribe(ids []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(ids) == 0 {
		c.filtered = false
		clear(c.monitors)
		return
	}
	c.filtered = true
	for _, id := range ids {
		delete(c.monitors, id)
	}
}

// readPump reads messages from the WebSocket connection
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.Conn.Read(ctx)
		if err != nil {
			if !isNormalClose(err) {
				c.Hub.logger.Warn("websocket read error", zap.String("client", c.ID), zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.Hub.logger.Debug("failed to parse websocket message", zap.Error(err))
			continue
		}

		if reply := c.handleMessage(msg); reply != nil {
			if err := c.Conn.Write(ctx, websocket.MessageText, reply); err != nil {
				return
			}
		}
	}
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump(ctx context.Context) {
	for message := range c.Send {
		if err := c.Conn.Write(ctx, websocket.MessageText, message); err != nil {
			if !isNormalClose(err) {
				c.Hub.logger.Warn("websocket write error", zap.String("client", c.ID), zap.Error(err))
			}
			return
		}
	}
	c.Conn.Close(websocket.StatusNormalClosure, "")
}

// handleMessage applies a client message and returns the reply, if any
func (c *Client) handleMessage(msg Message) []byte {
	switch msg.Type {
	case TypeSubscribe, TypeUnsubscribe:
		var payload SubscriptionPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				c.Hub.logger.Debug("invalid subscription payload", zap.String("client", c.ID), zap.Error(err))
				return nil
			}
		}
		if msg.Type == TypeSubscribe {
			c.subscribe(payload.MonitorIDs)
		} else {
			c.unsubscribe(payload.MonitorIDs)
		}
		return nil
	case TypePing:
		response, _ := json.Marshal(Message{Type: TypePong, Payload: json.RawMessage(`{}`)})
		return response
	default:
		c.Hub.logger.Debug("unknown websocket message type", zap.String("type", msg.Type))
		return nil
	}
}

// originPatterns converts CORS origins into the host patterns Accept matches
func originPatterns(origins []string) []string {
	if len(origins) == 0 {
		return []string{"localhost:3000"}
	}
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, origin)
	}
	return patterns
}

func isNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway, websocket.StatusNoStatusRcvd:
		return true
	}
	return false
}
