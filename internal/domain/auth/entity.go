// internal/domain/auth/entity.go
package auth

import (
	"database/sql"
	"strings"
	"time"
)

// User is the stored account row.
type User struct {
	ID             string       `json:"id" db:"id"`
	Email          string       `json:"email" db:"email"`
	PasswordHash   string       `json:"-" db:"password_hash"`
	FirstName      string       `json:"first_name" db:"first_name"`
	LastName       string       `json:"last_name" db:"last_name"`
	Mobile         string       `json:"mobile" db:"mobile"`
	EmailVerified  bool         `json:"email_verified" db:"email_verified"`
	MobileVerified bool         `json:"mobile_verified" db:"mobile_verified"`
	Status         string       `json:"status" db:"status"` // active, pending_verification, suspended
	LastLogin      sql.NullTime `json:"-" db:"last_login"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

const (
	StatusActive              = "active"
	StatusPendingVerification = "pending_verification"
	StatusSuspended           = "suspended"
)

// Identity is the public view of a user shared with clients.
type Identity struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Mobile         string `json:"mobile"`
	EmailVerified  bool   `json:"email_verified"`
	MobileVerified bool   `json:"mobile_verified"`
}

// Identity projects the stored user onto its public identity.
func (u *User) Identity() Identity {
	return Identity{
		ID:             u.ID,
		Email:          u.Email,
		DisplayName:    DisplayName(u.FirstName, u.LastName, u.Email),
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Mobile:         u.Mobile,
		EmailVerified:  u.EmailVerified,
		MobileVerified: u.MobileVerified,
	}
}

// DisplayName joins first and last name, falling back to the email local part.
func DisplayName(first, last, email string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name != "" {
		return name
	}
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

// TokenPair is the bearer credential pair handed out on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Valid reports whether an access token is present.
func (p TokenPair) Valid() bool {
	return p.AccessToken != ""
}

// Session is the client-held credential state for one identity.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	// ExpiresImplicitly is set when the access token carries no readable expiry;
	// the session then lives until the server rejects it.
	ExpiresImplicitly bool `json:"expires_implicitly"`
}

// Purpose names the reason a one-time code was issued.
type Purpose string

const (
	PurposeSignupVerification Purpose = "signup-verification"
	PurposePasswordReset      Purpose = "password-reset"
	PurposeMobileVerification Purpose = "mobile-verification"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeSignupVerification, PurposePasswordReset, PurposeMobileVerification:
		return true
	}
	return false
}
