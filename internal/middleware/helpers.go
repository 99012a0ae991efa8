// internal/middleware/helpers.go
package middleware

import (
	"storefront/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// MustGetIdentityID gets identity ID from context or panics
func MustGetIdentityID(c *gin.Context) string {
	identityID, exists := GetIdentityID(c)
	if !exists {
		panic("identity_id not found in context")
	}
	return identityID
}

// MustGetClaims gets the token claims from context or panics
func MustGetClaims(c *gin.Context) *jwt.Claims {
	claims, exists := GetClaims(c)
	if !exists {
		panic("claims not found in context")
	}
	return claims
}

// GetSessionID returns the session the request was authenticated with.
func GetSessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}

// GetDevice returns the device label carried by the access token.
func GetDevice(c *gin.Context) string {
	return c.GetString(ctxDevice)
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := GetIdentityID(c)
	return exists
}
