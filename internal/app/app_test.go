package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/auth"
	"storefront/internal/domain/shop"
	"storefront/internal/pkg/jwt"
	authUsecase "storefront/internal/service/auth"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const devCode = "111111"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := config.AppConfig{
		JWT:            jwt.Config{Issuer: "test", Audience: "test", TTL: 15 * time.Minute},
		OTPTTL:         time.Minute,
		OTPDevCode:     devCode,
		AllowedOrigins: []string{"*"},
	}
	a, err := Build(ctx, Deps{
		Config:   cfg,
		Redis:    client,
		Notifier: authUsecase.NewLogNotifier(zap.NewNop()),
	})
	require.NoError(t, err)
	return a
}

func do(t *testing.T, a *App, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func signup(t *testing.T, a *App, email string) *auth.LoginResponse {
	t.Helper()
	code, env := do(t, a, http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": "secret123", "first_name": "Asha",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	var ch auth.ChallengeResponse
	require.NoError(t, json.Unmarshal(env.Data, &ch))

	code, env = do(t, a, http.MethodPost, "/auth/verify-otp", "", auth.VerifyOTPRequest{
		UserID: ch.UserID, OTP: devCode, Purpose: auth.PurposeSignupVerification,
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	var res auth.VerifyOTPResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotNil(t, res.Login)
	return res.Login
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	a.Engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginErrorCodes(t *testing.T) {
	a := newTestApp(t)
	signup(t, a, "asha@example.com")

	code, env := do(t, a, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "AUTH_003", env.Error.Code)

	code, env = do(t, a, http.MethodPost, "/auth/login", "", map[string]string{"email": "bad"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VAL_001", env.Error.Code)
}

func TestCartFlow(t *testing.T) {
	a := newTestApp(t)
	login := signup(t, a, "asha@example.com")

	code, _ := do(t, a, http.MethodGet, "/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := do(t, a, http.MethodPost, "/cart/items", login.AccessToken, shop.AddItemRequest{ID: "p1", Name: "Shirt", Price: 250, Quantity: 2})
	require.Equal(t, http.StatusOK, code, env.Message)
	code, env = do(t, a, http.MethodPost, "/cart/items", login.AccessToken, shop.AddItemRequest{ID: "p2", Name: "Cap", Price: 2})
	require.Equal(t, http.StatusOK, code, env.Message)

	var cart shop.Cart
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Len(t, cart.Items, 2)

	code, env = do(t, a, http.MethodPut, "/cart/items/p2", login.AccessToken, shop.UpdateQuantityRequest{Quantity: 0})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Len(t, cart.Items, 1)

	code, env = do(t, a, http.MethodPost, "/orders", login.AccessToken, shop.CreateOrderRequest{})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var order shop.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, 500.0, order.Total)

	code, env = do(t, a, http.MethodPut, "/orders/"+order.ID+"/status", login.AccessToken, shop.UpdateOrderStatusRequest{Status: shop.OrderShipped})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ORDER_001", env.Error.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	a := newTestApp(t)
	login := signup(t, a, "asha@example.com")

	code, env := do(t, a, http.MethodPost, "/auth/refresh", "", auth.RefreshRequest{RefreshToken: login.RefreshToken})
	require.Equal(t, http.StatusOK, code, env.Message)
	var next auth.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &next))

	code, _ = do(t, a, http.MethodGet, "/users/profile", next.AccessToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, a, http.MethodPost, "/auth/logout", next.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = do(t, a, http.MethodGet, "/users/profile", next.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.NotEqual(t, "AUTH_003", env.Error.Code)
}

func TestAddressRoutes(t *testing.T) {
	a := newTestApp(t)
	login := signup(t, a, "asha@example.com")

	code, env := do(t, a, http.MethodPost, "/addresses", login.AccessToken, map[string]interface{}{
		"first_name": "Asha", "address_line_1": "1 MG Road", "city": "Pune",
		"state": "Maharashtra", "pincode": "411001",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = do(t, a, http.MethodGet, "/addresses/default/shipping", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	var item struct {
		Address struct {
			City      string `json:"city"`
			IsDefault bool   `json:"is_default"`
		} `json:"address"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, "Pune", item.Address.City)
	assert.True(t, item.Address.IsDefault)

	code, _ = do(t, a, http.MethodPost, "/addresses", login.AccessToken, map[string]interface{}{
		"first_name": "Asha", "address_line_1": "1 MG Road", "city": "Pune",
		"state": "Maharashtra", "pincode": "011001",
	})
	assert.Equal(t, http.StatusBadRequest, code)
}
