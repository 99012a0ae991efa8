package websocket

import (
	"errors"

	xerrors "storefront/internal/pkg/errors"
)

// Reasons Hub.AuthenticateClient refuses a connection.
var (
	ErrTokenBlacklisted = errors.New("token has been revoked")
	ErrSessionExpired   = errors.New("session has expired")
	ErrInvalidToken     = errors.New("invalid token")
)

// AuthErrorCode is the API error code sent with the 401 that refuses an upgrade.
func AuthErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrTokenBlacklisted), errors.Is(err, ErrSessionExpired):
		return xerrors.CodeTokenExpired
	default:
		return xerrors.CodeAuthFailed
	}
}
