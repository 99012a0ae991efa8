package jwt

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey *rsa.PrivateKey

func manager(t *testing.T) *Manager {
	t.Helper()
	if testKey == nil {
		k, err := GenerateEphemeralKey()
		require.NoError(t, err)
		testKey = k
	}
	return Build(testKey, &testKey.PublicKey, Config{Issuer: "storefront", Audience: "storefront-web", TTL: time.Minute})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := manager(t)

	tok, jti, err := m.Generator.GenerateAccessToken("01HUSER", "01HSESS", "a@b.co", "cli")
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	claims, err := m.Verifier.VerifyAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "01HUSER", claims.IdentityID)
	assert.Equal(t, "a@b.co", claims.Email)
	assert.Equal(t, jti, claims.ID)
	assert.Equal(t, "01HSESS", claims.SessionID)
}

func TestPurposeMismatch(t *testing.T) {
	m := manager(t)

	refresh, _, err := m.Generator.GenerateRefreshToken("01HUSER", "01HSESS", "")
	require.NoError(t, err)

	_, err = m.Verifier.VerifyAccessToken(refresh)
	assert.Error(t, err)

	_, err = m.Verifier.VerifyRefreshToken(refresh)
	assert.NoError(t, err)

	reset, _, err := m.Generator.GeneratePasswordResetToken("01HUSER", "a@b.co")
	require.NoError(t, err)
	_, err = m.Verifier.VerifyAccessToken(reset)
	assert.Error(t, err)
	_, err = m.Verifier.VerifyPasswordResetToken(reset)
	assert.NoError(t, err)
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	m := manager(t)
	other := Build(testKey, &testKey.PublicKey, Config{Issuer: "elsewhere", Audience: "storefront-web"})

	tok, _, err := other.Generator.GenerateAccessToken("01HUSER", "", "", "")
	require.NoError(t, err)

	_, err = m.Verifier.Verify(tok)
	assert.Error(t, err)
}

func TestLoadAndBuildEphemeral(t *testing.T) {
	m, err := LoadAndBuild(Config{Issuer: "i", Audience: "a"})
	require.NoError(t, err)
	assert.True(t, m.Ephemeral)
	assert.Equal(t, DefaultAccessTTL, m.Generator.Ttl)
}

func TestLoadKeysFromPEMFiles(t *testing.T) {
	m := manager(t)
	dir := t.TempDir()

	pkcs8, err := x509.MarshalPKCS8PrivateKey(testKey)
	require.NoError(t, err)
	pkix, err := x509.MarshalPKIXPublicKey(&testKey.PublicKey)
	require.NoError(t, err)

	privPath := filepath.Join(dir, "priv.pem")
	pubPath := filepath.Join(dir, "pub.pem")
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8}), 0o600))
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pkix}), 0o600))

	loaded, err := LoadAndBuild(Config{PrivPath: privPath, PubPath: pubPath, Issuer: "storefront", Audience: "storefront-web"})
	require.NoError(t, err)
	assert.False(t, loaded.Ephemeral)

	tok, _, err := loaded.Generator.GenerateAccessToken("01HUSER", "01HSESS", "", "")
	require.NoError(t, err)
	_, err = m.Verifier.VerifyAccessToken(tok)
	assert.NoError(t, err, "a key loaded from disk verifies against the same pair in memory")

	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(testKey)})
	priv, err := ParseRSAPrivateKey(pkcs1)
	require.NoError(t, err)
	assert.True(t, priv.Equal(testKey))

	_, err = ParseRSAPublicKey(pkcs1)
	assert.Error(t, err)
	_, err = ParseRSAPrivateKey([]byte("garbage"))
	assert.Error(t, err)
}

func TestRemaining(t *testing.T) {
	now := time.Now()
	c := &Claims{}
	assert.Zero(t, c.Remaining(now))

	c.ExpiresAt = jwtlib.NewNumericDate(now.Add(time.Minute))
	assert.InDelta(t, time.Minute, c.Remaining(now), float64(time.Second))

	c.ExpiresAt = jwtlib.NewNumericDate(now.Add(-time.Minute))
	assert.Zero(t, c.Remaining(now))
}
