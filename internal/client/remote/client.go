// Package remote issues authenticated JSON requests against the storefront API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"storefront/internal/client/storage"
	"storefront/internal/domain/auth"
	xerrors "storefront/internal/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultRefreshPath = "/auth/refresh"
	maxResponseBytes   = 4 << 20
	maxRotations       = 64
)

// errOtherSession means the persisted session is no longer the one a request
// was sent with. The request is not replayed.
var errOtherSession = errors.New("persisted session changed during the request")

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Debug       bool
	RefreshPath string
	// HTTPClient overrides the transport. Its Timeout is replaced by Timeout when unset.
	HTTPClient *http.Client
}

// Client attaches the persisted bearer token, decodes the API envelope and
// refreshes an expired access token once per logical request.
type Client struct {
	cfg    Config
	http   *http.Client
	vault  *storage.Vault
	logger *zap.Logger

	refreshGroup singleflight.Group

	// rotations maps each access token replaced by a refresh to its successor.
	rotMu     sync.Mutex
	rotations map[string]string

	mu          sync.RWMutex
	onExpired   []func()
	onRefreshed []func(auth.TokenPair)
}

func New(cfg Config, vault *storage.Vault, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = DefaultRefreshPath
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if hc.Timeout == 0 {
		cp := *hc
		cp.Timeout = cfg.Timeout
		hc = &cp
	}

	return &Client{cfg: cfg, http: hc, vault: vault, logger: logger, rotations: make(map[string]string)}
}

// OnSessionExpired registers fn to run after a terminal refresh failure has
// cleared the persisted session.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = append(c.onExpired, fn)
}

// OnRefreshed registers fn to run with every rotated pair after it was persisted.
func (c *Client) OnRefreshed(fn func(auth.TokenPair)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRefreshed = append(c.onRefreshed, fn)
}

type requestOptions struct {
	token     string
	noAuth    bool
	noRefresh bool
}

type RequestOption func(*requestOptions)

// WithToken sends tok instead of the persisted access token. Such requests are never refreshed.
func WithToken(tok string) RequestOption {
	return func(o *requestOptions) { o.token = tok }
}

// WithoutAuth sends no Authorization header.
func WithoutAuth() RequestOption {
	return func(o *requestOptions) { o.noAuth = true }
}

// WithoutRefresh surfaces a 401 as-is instead of refreshing.
func WithoutRefresh() RequestOption {
	return func(o *requestOptions) { o.noRefresh = true }
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out, opts...)
}

// Do sends one logical request and decodes the envelope's data into out.
// Every failure is a *xerrors.Error.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	token := o.token
	if token == "" && !o.noAuth {
		token = c.vault.AccessToken(ctx)
	}

	res, err := c.send(ctx, method, path, body, token)
	if err != nil {
		return err
	}

	canRefresh := res.status == http.StatusUnauthorized &&
		token != "" && o.token == "" && !o.noAuth && !o.noRefresh &&
		res.env.code() != xerrors.CodeInvalidCredentials
	if canRefresh {
		fresh, err := c.refresh(ctx, token)
		if errors.Is(err, errOtherSession) {
			c.logger.Debug("session changed mid-request, not replaying", zap.String("path", path))
			return &xerrors.Error{
				Kind:    xerrors.KindUnauthenticated,
				Code:    xerrors.CodeAuthFailed,
				Message: "signed-in account changed, request not retried",
				Status:  http.StatusUnauthorized,
				Err:     err,
			}
		}
		if k := xerrors.KindOf(err); k == xerrors.KindNetworkFailure || k == xerrors.KindTimeout {
			// The server never answered; the refresh token may still be good.
			return err
		}
		if err != nil {
			c.logger.Info("token refresh failed, ending session", zap.Error(err))
			return c.expire(ctx, err)
		}

		res, err = c.send(ctx, method, path, body, fresh)
		if err != nil {
			return err
		}
		if res.status == http.StatusUnauthorized {
			return c.expire(ctx, res.failure())
		}
	}

	if res.status < 200 || res.status > 299 {
		return res.failure()
	}
	if out != nil && len(res.env.Data) > 0 && string(res.env.Data) != "null" {
		if err := json.Unmarshal(res.env.Data, out); err != nil {
			return &xerrors.Error{Kind: xerrors.KindRejected, Status: res.status, Message: "malformed response body", Err: err}
		}
	}
	return nil
}

// refresh exchanges the persisted refresh token once for all callers that saw
// stale fail. Callers arriving after a completed refresh reuse its result, but
// only when the persisted token descends from stale through refreshes; a token
// from a later sign-in yields errOtherSession.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	v, err, _ := c.refreshGroup.Do(stale, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)

		pair, ok, err := c.vault.Tokens(ctx)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errOtherSession
		}
		if pair.AccessToken != stale {
			if c.descends(stale, pair.AccessToken) {
				return pair.AccessToken, nil
			}
			return "", errOtherSession
		}
		if pair.RefreshToken == "" {
			return "", errors.New("no refresh token")
		}

		res, err := c.send(ctx, http.MethodPost, c.cfg.RefreshPath, auth.RefreshRequest{RefreshToken: pair.RefreshToken}, "")
		if err != nil {
			return "", err
		}
		if res.status < 200 || res.status > 299 {
			return "", res.failure()
		}

		var login auth.LoginResponse
		if err := json.Unmarshal(res.env.Data, &login); err != nil || login.AccessToken == "" {
			return "", fmt.Errorf("malformed refresh response: %v", err)
		}
		next := login.Tokens()
		if next.RefreshToken == "" {
			next.RefreshToken = pair.RefreshToken
		}
		if err := c.vault.SaveTokens(ctx, next); err != nil {
			return "", err
		}
		c.recordRotation(stale, next.AccessToken)

		c.mu.RLock()
		listeners := append([]func(auth.TokenPair){}, c.onRefreshed...)
		c.mu.RUnlock()
		for _, fn := range listeners {
			fn(next)
		}
		return next.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) recordRotation(from, to string) {
	c.rotMu.Lock()
	defer c.rotMu.Unlock()
	if len(c.rotations) >= maxRotations {
		clear(c.rotations)
	}
	c.rotations[from] = to
}

// descends reports whether refreshes turned from into to.
func (c *Client) descends(from, to string) bool {
	c.rotMu.Lock()
	defer c.rotMu.Unlock()
	for range maxRotations {
		next, ok := c.rotations[from]
		if !ok {
			return false
		}
		if next == to {
			return true
		}
		from = next
	}
	return false
}

// expire clears the persisted session and notifies listeners.
func (c *Client) expire(ctx context.Context, cause error) error {
	if err := c.vault.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("failed to clear session", zap.Error(err))
	}

	c.mu.RLock()
	listeners := append([]func(){}, c.onExpired...)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}

	return &xerrors.Error{
		Kind:    xerrors.KindSessionExpired,
		Code:    xerrors.CodeTokenExpired,
		Message: "session expired, please sign in again",
		Status:  http.StatusUnauthorized,
		Err:     cause,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e envelope) code() string {
	if e.Error == nil {
		return ""
	}
	return e.Error.Code
}

type result struct {
	status int
	env    envelope
}

// failure maps a non-2xx response onto the client error taxonomy.
func (r result) failure() *xerrors.Error {
	code := r.env.code()
	msg := ""
	if r.env.Error != nil {
		msg = r.env.Error.Message
	}
	if msg == "" {
		msg = r.env.Message
	}
	if msg == "" {
		msg = http.StatusText(r.status)
	}

	kind := xerrors.KindRejected
	switch {
	case r.status == http.StatusUnauthorized && code == xerrors.CodeInvalidCredentials:
		kind = xerrors.KindInvalidCredentials
	case r.status == http.StatusUnauthorized:
		kind = xerrors.KindUnauthenticated
	case (r.status == http.StatusBadRequest || r.status == http.StatusUnprocessableEntity) && strings.HasPrefix(code, "VAL_"):
		kind = xerrors.KindValidationFailure
	}
	return &xerrors.Error{Kind: kind, Code: code, Message: msg, Status: r.status}
}

func (c *Client) send(ctx context.Context, method, path string, body any, token string) (result, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return result{}, xerrors.Validation("cannot encode request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return result{}, &xerrors.Error{Kind: xerrors.KindNetworkFailure, Message: "invalid request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return result{}, xerrors.Transport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return result{}, xerrors.Transport(err)
	}
	if c.cfg.Debug {
		c.logger.Debug("api request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", time.Since(start)),
		)
	}

	res := result{status: resp.StatusCode}
	if len(raw) > 0 {
		// Non-JSON bodies (proxies, gateways) leave the envelope empty.
		_ = json.Unmarshal(raw, &res.env)
	}
	return res, nil
}
