// internal/pkg/jwt/generator.go
package jwt

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
	resetTokenTTL     = 30 * time.Minute
)

type Generator struct {
	priv       *rsa.PrivateKey
	issuer     string
	audience   string
	kid        string // key id for rotation
	Ttl        time.Duration
	RefreshTtl time.Duration
}

func NewGenerator(priv *rsa.PrivateKey, issuer, audience, kid string, ttl time.Duration) *Generator {
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	return &Generator{
		priv:       priv,
		issuer:     issuer,
		audience:   audience,
		kid:        kid,
		Ttl:        ttl,
		RefreshTtl: DefaultRefreshTTL,
	}
}

// Generate signs a token and returns it with its JTI.
func (g *Generator) Generate(identityID, sessionID, email, device, purpose string, ttl time.Duration, isTemp bool) (string, string, error) {
	if g.priv == nil {
		return "", "", fmt.Errorf("jwt generator has nil private key")
	}

	now := time.Now()
	jti := ulid.Make().String()

	claims := &Claims{
		IdentityID:     identityID,
		SessionID:      sessionID,
		Email:          email,
		Device:         device,
		IsTemp:         isTemp,
		SessionPurpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   identityID,
			Audience:  []string{g.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if g.kid != "" {
		tok.Header["kid"] = g.kid
	}

	signed, err := tok.SignedString(g.priv)
	return signed, jti, err
}

// GenerateAccessToken generates a standard access token bound to a session
func (g *Generator) GenerateAccessToken(identityID, sessionID, email, device string) (string, string, error) {
	return g.Generate(identityID, sessionID, email, device, PurposeAccess, g.Ttl, false)
}

// GenerateRefreshToken generates a refresh token (longer TTL)
func (g *Generator) GenerateRefreshToken(identityID, sessionID, device string) (string, string, error) {
	return g.Generate(identityID, sessionID, "", device, PurposeRefresh, g.RefreshTtl, false)
}

// GeneratePasswordResetToken generates a temporary token for password reset
func (g *Generator) GeneratePasswordResetToken(identityID, email string) (string, string, error) {
	return g.Generate(identityID, "", email, "", PurposePasswordReset, resetTokenTTL, true)
}
