package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes carried in the session_purpose claim.
const (
	PurposeAccess        = "access"
	PurposeRefresh       = "refresh"
	PurposePasswordReset = "password_reset"
)

// Claims identify a storefront account, the session that minted the token,
// and what the token may be used for.
type Claims struct {
	IdentityID     string `json:"identity_id"`
	SessionID      string `json:"sid,omitempty"`
	Email          string `json:"email,omitempty"`
	Device         string `json:"device,omitempty"`
	IsTemp         bool   `json:"is_temp"`
	SessionPurpose string `json:"session_purpose"`
	jwt.RegisteredClaims
}

// Remaining is how long the token stays valid after now. Tokens without an
// expiry, or already past it, report zero.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if d := c.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
