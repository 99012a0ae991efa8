package websocket

import (
	"context"
	"errors"
	"sync"

	wstypes "storefront/internal/domain/websocket"
)

// MessageHandler reacts to client events after the client's built-in
// processing of the same event (subscriptions are already registered).
type MessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error
	SupportedEvents() []wstypes.EventType
}

// HandlerRegistry fans an event out to every handler registered for it, in
// registration order.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[wstypes.EventType][]MessageHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[wstypes.EventType][]MessageHandler)}
}

func (r *HandlerRegistry) Register(handler MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range handler.SupportedEvents() {
		r.handlers[event] = append(r.handlers[event], handler)
	}
}

// Dispatch runs every handler for msg.Type. One failing handler does not stop
// the rest; their errors are joined.
func (r *HandlerRegistry) Dispatch(ctx context.Context, client *Client, msg *wstypes.WSMessage) error {
	r.mu.RLock()
	handlers := r.handlers[msg.Type]
	r.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h.HandleMessage(ctx, client, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
