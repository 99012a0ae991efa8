// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"errors"
	"strings"

	xerrors "storefront/internal/pkg/errors"
	"storefront/internal/pkg/jwt"
	"storefront/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxIdentityID = "identity_id"
	ctxSessionID  = "session_id"
	ctxJTI        = "jti"
	ctxClaims     = "claims"
	ctxDevice     = "device"
)

// TokenValidator checks an access token against the live session store.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Auth is the base authentication middleware that validates JWT tokens
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, xerrors.CodeAuthFailed, "missing authorization token")
			return
		}

		claims, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			code := xerrors.CodeAuthFailed
			if errors.Is(err, xerrors.ErrSessionExpired) {
				code = xerrors.CodeTokenExpired
			}
			response.Unauthorized(c, code, "invalid or expired token")
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth middleware that doesn't abort if no token is provided
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(ctxIdentityID, claims.IdentityID)
	c.Set(ctxSessionID, claims.SessionID)
	c.Set(ctxJTI, claims.ID)
	c.Set(ctxDevice, claims.Device)
	c.Set(ctxClaims, claims)
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Fields(authHeader)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// GetIdentityID returns the authenticated identity.
func GetIdentityID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxIdentityID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// GetClaims returns the verified token claims.
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ctxClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}
