package websocket

import (
	"context"
	"sync"
	"time"

	wstypes "storefront/internal/domain/websocket"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendQueueSize  = 256
)

// ClientAuth is who a connection belongs to, as established at upgrade time.
type ClientAuth struct {
	IdentityID string
	SessionID  string
	Email      string
	Device     string
}

// subscriptionSet is the channels one connection listens on.
type subscriptionSet struct {
	mu       sync.RWMutex
	channels map[wstypes.ChannelType]struct{}
}

// add subscribes to every known channel in chs and returns those accepted.
func (s *subscriptionSet) add(chs []wstypes.ChannelType) []wstypes.ChannelType {
	s.mu.Lock()
	defer s.mu.Unlock()
	accepted := make([]wstypes.ChannelType, 0, len(chs))
	for _, ch := range chs {
		if !ch.Valid() {
			continue
		}
		s.channels[ch] = struct{}{}
		accepted = append(accepted, ch)
	}
	return accepted
}

func (s *subscriptionSet) remove(chs []wstypes.ChannelType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range chs {
		delete(s.channels, ch)
	}
}

func (s *subscriptionSet) has(ch wstypes.ChannelType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.channels[ch]
	return ok
}

// Client is one upgraded connection. ReadPump and WritePump each run on their
// own goroutine; everything else may be called from any goroutine.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	auth ClientAuth
	subs subscriptionSet

	send      chan []byte
	sendMu    sync.Mutex
	closed    bool
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, auth *ClientAuth) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:    hub,
		conn:   conn,
		auth:   *auth,
		subs:   subscriptionSet{channels: make(map[wstypes.ChannelType]struct{})},
		send:   make(chan []byte, sendQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Subscribe adds a channel. Unknown channels are refused.
func (c *Client) Subscribe(channel wstypes.ChannelType) bool {
	return len(c.subs.add([]wstypes.ChannelType{channel})) == 1
}

func (c *Client) Unsubscribe(channel wstypes.ChannelType) {
	c.subs.remove([]wstypes.ChannelType{channel})
}

func (c *Client) IsSubscribed(channel wstypes.ChannelType) bool { return c.subs.has(channel) }

func (c *Client) GetIdentityID() string { return c.auth.IdentityID }

func (c *Client) GetSessionID() string { return c.auth.SessionID }

// ReadPump reads frames until the peer goes away or a pong is missed.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.requestUnregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for c.ctx.Err() == nil {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", zap.String("identity_id", c.auth.IdentityID), zap.Error(err))
			}
			return
		}
		c.handleMessage(data)
	}
}

// WritePump owns all writes to the connection. It pings every pingPeriod and,
// once the client is closed, flushes the queue and sends a close frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.drain()
			return
		case data := <-c.send:
			if c.writeFrame(websocket.TextMessage, data) != nil {
				return
			}
		case <-ticker.C:
			if c.writeFrame(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}

func (c *Client) writeFrame(kind int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(kind, data)
}

func (c *Client) drain() {
	for {
		select {
		case data := <-c.send:
			if c.writeFrame(websocket.TextMessage, data) != nil {
				return
			}
		default:
			_ = c.writeFrame(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	msg, err := wstypes.ParseMessage(data)
	if err != nil {
		c.SendError("invalid_message", "Failed to parse message", err.Error())
		return
	}

	switch msg.Type {
	case wstypes.EventTypePing:
		c.SendMessage(wstypes.NewMessage(wstypes.EventTypePong, nil))
	case wstypes.EventTypeSubscribe:
		if !c.handleSubscribe(msg) {
			return
		}
	case wstypes.EventTypeUnsubscribe:
		if !c.handleUnsubscribe(msg) {
			return
		}
	}

	// Registered handlers see subscribe only after the channels are live, so
	// a snapshot they publish reaches this client.
	if err := c.hub.HandleClientMessage(c.ctx, c, msg); err != nil {
		c.SendError("handler_error", "Failed to process message", err.Error())
	}
}

func (c *Client) handleSubscribe(msg *wstypes.WSMessage) bool {
	var req wstypes.SubscribeRequest
	if err := msg.Decode(&req); err != nil {
		c.SendError("invalid_subscribe", "Invalid subscribe request", err.Error())
		return false
	}
	c.SendMessage(wstypes.NewMessage(wstypes.EventTypeSubscribe, map[string]interface{}{
		"channels": c.subs.add(req.Channels),
		"status":   "subscribed",
	}))
	return true
}

func (c *Client) handleUnsubscribe(msg *wstypes.WSMessage) bool {
	var req wstypes.UnsubscribeRequest
	if err := msg.Decode(&req); err != nil {
		c.SendError("invalid_unsubscribe", "Invalid unsubscribe request", err.Error())
		return false
	}
	c.subs.remove(req.Channels)
	c.SendMessage(wstypes.NewMessage(wstypes.EventTypeUnsubscribe, map[string]interface{}{
		"channels": req.Channels,
		"status":   "unsubscribed",
	}))
	return true
}

// SendMessage queues a message. A client whose queue is full is dropped.
func (c *Client) SendMessage(msg *wstypes.WSMessage) {
	data, err := msg.ToJSON()
	if err != nil {
		c.hub.logger.Error("failed to marshal message", zap.Error(err))
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("client send queue full, disconnecting", zap.String("identity_id", c.auth.IdentityID))
		c.closed = true
		c.cancel()
		c.hub.requestUnregister(c)
	}
}

func (c *Client) SendError(code, message, details string) {
	c.SendMessage(wstypes.NewMessage(wstypes.EventTypeError, wstypes.ErrorData{
		Code:    code,
		Message: message,
		Details: details,
	}))
}

// Close stops the client's pumps after flushing queued messages.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.closed = true
		c.sendMu.Unlock()
		c.cancel()
	})
}
