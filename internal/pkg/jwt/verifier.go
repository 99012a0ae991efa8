package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoPublicKey  = errors.New("jwt verifier has no public key")
	ErrWrongPurpose = errors.New("token used for the wrong purpose")
)

// Verifier checks RS256 tokens minted by a Generator sharing its issuer and audience.
type Verifier struct {
	pub    *rsa.PublicKey
	parser *jwt.Parser
}

func NewVerifier(pub *rsa.PublicKey, issuer, audience string) *Verifier {
	return &Verifier{
		pub: pub,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(5*time.Second),
		),
	}
}

// Verify checks signature, issuer, audience and expiry and returns the claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if v.pub == nil {
		return nil, ErrNoPublicKey
	}
	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.pub, nil
	}); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

func (v *Verifier) verifyPurpose(tokenString, purpose string, temp bool) (*Claims, error) {
	claims, err := v.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.SessionPurpose != purpose || claims.IsTemp != temp {
		return nil, fmt.Errorf("%w: want %s", ErrWrongPurpose, purpose)
	}
	return claims, nil
}

// VerifyAccessToken accepts only non-temporary access tokens.
func (v *Verifier) VerifyAccessToken(tokenString string) (*Claims, error) {
	return v.verifyPurpose(tokenString, PurposeAccess, false)
}

func (v *Verifier) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return v.verifyPurpose(tokenString, PurposeRefresh, false)
}

// VerifyPasswordResetToken accepts only the temporary tokens issued by forgot-password.
func (v *Verifier) VerifyPasswordResetToken(tokenString string) (*Claims, error) {
	return v.verifyPurpose(tokenString, PurposePasswordReset, true)
}
