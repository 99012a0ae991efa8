// Package apptest runs the storefront API in-process for client tests.
package apptest

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/pkg/jwt"
	authUsecase "storefront/internal/service/auth"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DevCode is accepted for every one-time code.
const DevCode = "424242"

type Server struct {
	*httptest.Server
	App   *app.App
	Redis *miniredis.Miniredis
}

// Start serves a fresh API backed by miniredis and in-memory repositories.
// Everything is torn down with the test.
func Start(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	ctx, cancel := context.WithCancel(context.Background())

	cfg := config.AppConfig{
		JWT:            jwt.Config{Issuer: "storefront-test", Audience: "storefront-test", TTL: 15 * time.Minute},
		OTPTTL:         5 * time.Minute,
		OTPDevCode:     DevCode,
		AllowedOrigins: []string{"*"},
	}
	// Server goroutines may outlive the test body, so nothing logs through t.
	logger := zap.NewNop()
	a, err := app.Build(ctx, app.Deps{
		Config:   cfg,
		Redis:    client,
		Notifier: authUsecase.NewLogNotifier(logger),
		Logger:   logger,
	})
	if err != nil {
		cancel()
		t.Fatalf("build app: %v", err)
	}

	srv := httptest.NewServer(a.Engine)
	t.Cleanup(func() {
		srv.CloseClientConnections()
		srv.Close()
		cancel()
		_ = client.Close()
	})
	return &Server{Server: srv, App: a, Redis: mr}
}
