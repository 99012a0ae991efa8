package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"

	xerrors "storefront/internal/pkg/errors"
	"storefront/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubValidator map[string]*jwt.Claims

func (s stubValidator) ValidateToken(_ context.Context, token string) (*jwt.Claims, error) {
	if token == "expired" {
		return nil, xerrors.ErrSessionExpired
	}
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, xerrors.ErrUnauthorized
}

func newEngine(m *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryMiddleware(zap.NewNop()), CORSMiddleware([]string{"http://shop.local"}))
	r.GET("/me", m.Auth(), func(c *gin.Context) {
		c.String(http.StatusOK, MustGetIdentityID(c)+"/"+GetSessionID(c))
	})
	r.GET("/maybe", m.OptionalAuth(), func(c *gin.Context) {
		if IsAuthenticated(c) {
			c.String(http.StatusOK, "yes")
			return
		}
		c.String(http.StatusOK, "no")
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := newEngine(NewAuthMiddleware(stubValidator{
		"good": {IdentityID: "u1", SessionID: "s1"},
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer good", http.StatusOK, "u1/s1"},
		{"missing header", "", http.StatusUnauthorized, xerrors.CodeAuthFailed},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, xerrors.CodeAuthFailed},
		{"expired session", "Bearer expired", http.StatusUnauthorized, xerrors.CodeTokenExpired},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, xerrors.CodeAuthFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	r := newEngine(NewAuthMiddleware(stubValidator{"good": {IdentityID: "u1"}}))

	for header, want := range map[string]string{"": "no", "Bearer good": "yes", "Bearer bad": "no"} {
		req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Body.String(), header)
	}
}

func TestCORSAndRecovery(t *testing.T) {
	r := newEngine(NewAuthMiddleware(stubValidator{}))

	req := httptest.NewRequest(http.MethodOptions, "/me", nil)
	req.Header.Set("Origin", "http://shop.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://shop.local", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/me", nil)
	req.Header.Set("Origin", "http://evil.local")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), xerrors.CodeInternal)
}

func TestRecoveryStaysQuietWhenClientIsGone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RecoveryMiddleware(zap.New(core)))
	r.GET("/gone", func(c *gin.Context) {
		panic(fmt.Errorf("write tcp: %w", syscall.EPIPE))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gone", nil))
	assert.Empty(t, w.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zap.WarnLevel, logs.All()[0].Level)
}
