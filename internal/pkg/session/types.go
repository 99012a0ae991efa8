// internal/pkg/session/types.go
package session

import "time"

// SessionData is one signed-in device. It lives as long as its refresh token.
type SessionData struct {
	ID             string    `json:"id"`
	IdentityID     string    `json:"identity_id"`
	RefreshJTI     string    `json:"refresh_jti"`
	AccessJTI      string    `json:"access_jti"`
	Email          string    `json:"email"`
	Device         string    `json:"device,omitempty"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	LoginAt        time.Time `json:"login_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// OTPRecord is an issued one-time code awaiting verification.
type OTPRecord struct {
	Code     string    `json:"code"`
	Contact  string    `json:"contact"`
	IssuedAt time.Time `json:"issued_at"`
}
