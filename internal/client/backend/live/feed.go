// Package live follows collections over the storefront websocket.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	wstypes "storefront/internal/domain/websocket"
	xerrors "storefront/internal/pkg/errors"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
	// Servers ping well inside this window.
	readWait = 90 * time.Second
)

// TokenSource yields the bearer used to open a connection. *storage.Vault satisfies it.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

type Feed struct {
	url    string
	tokens TokenSource
	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewFeed connects to wsURL, the API's /ws endpoint.
func NewFeed(wsURL string, tokens TokenSource, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		url:    wsURL,
		tokens: tokens,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		logger: logger,
	}
}

// Subscription owns one connection and its reader goroutine.
type Subscription struct {
	conn    *websocket.Conn
	channel wstypes.ChannelType
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool

	once sync.Once
	done chan struct{}
}

// Subscribe opens a connection for ownerID and follows channel. onData gets
// every snapshot payload; onError gets the failure that ended the
// subscription. Neither is called after Close returns.
func (f *Feed) Subscribe(ctx context.Context, ownerID string, channel wstypes.ChannelType, onData func(json.RawMessage), onError func(error)) (*Subscription, error) {
	token := f.tokens.AccessToken(ctx)
	if token == "" {
		return nil, xerrors.New(xerrors.KindUnauthenticated, xerrors.CodeAuthFailed, "please sign in to continue")
	}

	u, err := url.Parse(f.url)
	if err != nil {
		return nil, &xerrors.Error{Kind: xerrors.KindNetworkFailure, Message: "invalid websocket url", Err: err}
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := f.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, &xerrors.Error{Kind: xerrors.KindUnauthenticated, Code: xerrors.CodeTokenExpired, Status: resp.StatusCode, Message: "websocket authentication failed", Err: err}
		}
		return nil, xerrors.Transport(err)
	}

	fail := func(err error) (*Subscription, error) {
		_ = conn.Close()
		return nil, err
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	first, err := readMessage(conn)
	if err != nil {
		return fail(xerrors.Transport(err))
	}
	if first.Type != wstypes.EventTypeConnected {
		return fail(xerrors.New(xerrors.KindRejected, "", fmt.Sprintf("unexpected first event %q", first.Type)))
	}
	var hello struct {
		IdentityID string `json:"identity_id"`
	}
	if err := first.Decode(&hello); err != nil {
		return fail(xerrors.New(xerrors.KindRejected, "", "malformed connected event"))
	}
	if ownerID != "" && hello.IdentityID != ownerID {
		return fail(xerrors.New(xerrors.KindRejected, "", "connection belongs to another account"))
	}

	sub := &Subscription{
		conn:    conn,
		channel: channel,
		logger:  f.logger.With(zap.String("channel", string(channel))),
		done:    make(chan struct{}),
	}

	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})
	_ = conn.SetReadDeadline(time.Now().Add(readWait))

	req := wstypes.NewMessage(wstypes.EventTypeSubscribe, wstypes.SubscribeRequest{Channels: []wstypes.ChannelType{channel}})
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(req); err != nil {
		return fail(xerrors.Transport(err))
	}

	go sub.read(onData, onError)
	return sub, nil
}

func (s *Subscription) read(onData func(json.RawMessage), onError func(error)) {
	defer close(s.done)
	defer s.conn.Close()

	snapshot := s.channel.SnapshotEvent()
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if !s.isClosed() {
				s.logger.Debug("live feed read failed", zap.Error(err))
				s.deliver(func() { onError(xerrors.Transport(err)) })
			}
			return
		}
		msg, err := wstypes.ParseMessage(raw)
		if err != nil {
			s.logger.Warn("skipping malformed live message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case snapshot:
			s.deliver(func() { onData(msg.Data) })

		case wstypes.EventTypeForceLogout, wstypes.EventTypeSessionExpired:
			var data wstypes.SessionEventData
			_ = msg.Decode(&data)
			s.deliver(func() {
				onError(&xerrors.Error{
					Kind:    xerrors.KindSessionExpired,
					Code:    xerrors.CodeTokenExpired,
					Message: "signed out: " + data.Reason,
				})
			})
			return

		case wstypes.EventTypeError:
			var data wstypes.ErrorData
			_ = msg.Decode(&data)
			s.logger.Warn("live feed error", zap.String("code", data.Code), zap.String("message", data.Message))
		}
	}
}

// deliver runs fn unless the subscription was closed. Close waits for a
// running delivery to finish.
func (s *Subscription) deliver(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		fn()
	}
}

func (s *Subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops deliveries, closes the connection and waits for the reader.
// It must not be called from onData or onError.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = s.conn.Close()
	})
	<-s.done
}

func readMessage(conn *websocket.Conn) (*wstypes.WSMessage, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	msg, err := wstypes.ParseMessage(data)
	if err != nil {
		return nil, errors.Join(errors.New("malformed websocket message"), err)
	}
	return msg, nil
}
