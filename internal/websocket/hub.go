// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "storefront/internal/domain/websocket"
	"storefront/internal/pkg/jwt"
	"storefront/internal/pkg/session"

	"go.uber.org/zap"
)

type Hub struct {
	// Registered clients by identity ID
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	// Registration/unregistration
	Register   chan *Client
	unregister chan *Client

	// Broadcasting
	broadcast chan *BroadcastMessage
	done      chan struct{}
	stopOnce  sync.Once

	// Handler registry for modular message handling
	handlerRegistry *HandlerRegistry

	// Auth dependencies
	jwtVerifier    *jwt.Verifier
	sessionManager *session.Manager
	logger         *zap.Logger
}

type BroadcastMessage struct {
	IdentityIDs []string
	Channel     wstypes.ChannelType
	Message     *wstypes.WSMessage
	// SessionID limits delivery to one session when set.
	SessionID string
	// Always delivers regardless of channel subscriptions.
	Always bool
	// Disconnect closes the receiving clients once the message is flushed.
	Disconnect bool
}

var _ wstypes.Publisher = (*Hub)(nil)

func NewHub(jwtVerifier *jwt.Verifier, sessionManager *session.Manager, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		Register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		done:            make(chan struct{}),
		handlerRegistry: NewHandlerRegistry(),
		jwtVerifier:     jwtVerifier,
		sessionManager:  sessionManager,
		logger:          logger,
	}
}

// AuthenticateClient validates the JWT token and creates an authenticated client
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	claims, err := h.jwtVerifier.VerifyAccessToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	blacklisted, err := h.sessionManager.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, ErrTokenBlacklisted
	}

	sessionData, err := h.sessionManager.GetSession(ctx, claims.IdentityID, claims.SessionID)
	if err != nil {
		return nil, ErrSessionExpired
	}

	return &ClientAuth{
		IdentityID: claims.IdentityID,
		SessionID:  claims.SessionID,
		Email:      sessionData.Email,
		Device:     claims.Device,
	}, nil
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage passes a client message to the registered handlers.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error {
	return h.handlerRegistry.Dispatch(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.auth.IdentityID] == nil {
		h.clients[client.auth.IdentityID] = make(map[*Client]bool)
	}
	h.clients[client.auth.IdentityID][client] = true

	h.logger.Info("websocket client connected",
		zap.String("identity_id", client.auth.IdentityID),
		zap.String("session_id", client.auth.SessionID),
		zap.Int("total", h.totalClients()),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"identity_id": client.auth.IdentityID,
		"session_id":  client.auth.SessionID,
		"device":      client.auth.Device,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.auth.IdentityID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.auth.IdentityID)
			}

			h.logger.Info("websocket client disconnected",
				zap.String("identity_id", client.auth.IdentityID),
				zap.String("session_id", client.auth.SessionID),
				zap.Int("total", h.totalClients()),
			)
		}
	}
}

// requestUnregister hands a client back to the run loop without blocking
// callers that already hold the hub lock.
func (h *Hub) requestUnregister(client *Client) {
	go func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
	}()
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	deliver := func(client *Client) {
		if msg.SessionID != "" && client.auth.SessionID != msg.SessionID {
			return
		}
		if msg.Always || client.IsSubscribed(msg.Channel) {
			client.SendMessage(msg.Message)
			if msg.Disconnect {
				client.Close()
				h.requestUnregister(client)
			}
		}
	}

	if msg.IdentityIDs == nil {
		for _, clients := range h.clients {
			for client := range clients {
				deliver(client)
			}
		}
		return
	}

	for _, identityID := range msg.IdentityIDs {
		for client := range h.clients[identityID] {
			deliver(client)
		}
	}
}

func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Warn("broadcast queue full, dropping message",
			zap.String("type", string(msg.Message.Type)),
		)
	}
}

func (h *Hub) GetConnectedClients(identityID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[identityID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

// Publish sends a snapshot or event to the identity's clients subscribed to channel.
func (h *Hub) Publish(identityID string, channel wstypes.ChannelType, event wstypes.EventType, data interface{}) {
	h.enqueue(&BroadcastMessage{
		IdentityIDs: []string{identityID},
		Channel:     channel,
		Message:     wstypes.NewMessage(event, data),
	})
}

// ForceLogout tells the clients of a session that it has ended. An empty
// sessionID addresses every session of the identity.
func (h *Hub) ForceLogout(identityID, sessionID, reason string) {
	h.enqueue(&BroadcastMessage{
		IdentityIDs: []string{identityID},
		Channel:     wstypes.ChannelSystem,
		SessionID:   sessionID,
		Always:      true,
		Disconnect:  true,
		Message: wstypes.NewMessage(wstypes.EventTypeForceLogout, wstypes.SessionEventData{
			SessionID: sessionID,
			Reason:    reason,
			Message:   "You have been logged out",
		}),
	})
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(identityID string) bool {
	return h.GetConnectedClients(identityID) > 0
}

// DisconnectUser forcefully disconnects all sessions for a user
func (h *Hub) DisconnectUser(identityID, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[identityID]; ok {
		disconnectMsg := wstypes.NewMessage(wstypes.EventTypeDisconnected, map[string]interface{}{
			"reason": reason,
		})

		for client := range clients {
			client.SendMessage(disconnectMsg)
			client.Close()
		}

		delete(h.clients, identityID)
		h.logger.Info("disconnected all clients",
			zap.String("identity_id", identityID),
			zap.String("reason", reason),
		)
	}
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
		delete(h.clients, id)
	}
}
