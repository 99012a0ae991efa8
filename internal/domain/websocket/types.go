// internal/domain/websocket/types.go
package websocket

import (
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Collection snapshots (server -> client)
	EventTypeCartSnapshot     EventType = "cart:snapshot"
	EventTypeWishlistSnapshot EventType = "wishlist:snapshot"
	EventTypeOrdersSnapshot   EventType = "orders:snapshot"

	// Session events
	EventTypeSessionExpired EventType = "session:expired"
	EventTypeForceLogout    EventType = "session:force_logout"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	ID        string          `json:"id,omitempty"`
}

// Subscription channels that clients can subscribe to
type ChannelType string

const (
	ChannelCart     ChannelType = "cart"
	ChannelWishlist ChannelType = "wishlist"
	ChannelOrders   ChannelType = "orders"
	ChannelSystem   ChannelType = "system"
)

// SnapshotEvent returns the event type carrying full snapshots for ch.
func (ch ChannelType) SnapshotEvent() EventType {
	return EventType(string(ch) + ":snapshot")
}

// Valid reports whether ch is a channel clients may subscribe to.
func (ch ChannelType) Valid() bool {
	switch ch {
	case ChannelCart, ChannelWishlist, ChannelOrders, ChannelSystem:
		return true
	}
	return false
}

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// UnsubscribeRequest sent by client to unsubscribe from channels
type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SessionEventData for session events
type SessionEventData struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}

// NewMessage builds a message with a fresh id. Data that cannot be encoded is dropped.
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	msg := &WSMessage{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		ID:        ulid.MustNew(ulid.Now(), rand.Reader).String(),
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			msg.Data = raw
		}
	}
	return msg
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Decode unmarshals the message payload into target.
func (m *WSMessage) Decode(target interface{}) error {
	if len(m.Data) == 0 {
		return nil
	}
	return json.Unmarshal(m.Data, target)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

// Publisher pushes events to the connected clients of one identity.
type Publisher interface {
	Publish(identityID string, channel ChannelType, event EventType, data interface{})
}
