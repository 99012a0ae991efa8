// internal/domain/auth/dto.go
package auth

import "time"

// RegisterRequest for user registration
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Mobile    string `json:"mobile"`
	Phone     string `json:"phone"`
}

// ChallengeResponse is returned whenever a one-time code was issued.
type ChallengeResponse struct {
	UserID    string    `json:"user_id"`
	Contact   string    `json:"contact"`
	Purpose   Purpose   `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginRequest for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Device   string `json:"device"`
}

// LoginResponse successful login response
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// Tokens returns the credential pair carried by the response.
func (r *LoginResponse) Tokens() TokenPair {
	return TokenPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// VerifyOTPRequest submits a one-time code for a challenge.
type VerifyOTPRequest struct {
	UserID  string  `json:"user_id" binding:"required"`
	OTP     string  `json:"otp" binding:"required"`
	Purpose Purpose `json:"purpose" binding:"required"`
}

// VerifyOTPResponse carries a session (signup) or a reset token (password reset).
type VerifyOTPResponse struct {
	Verified   bool           `json:"verified"`
	Login      *LoginResponse `json:"login,omitempty"`
	ResetToken string         `json:"reset_token,omitempty"`
}

// ResendOTPRequest re-issues the code for an existing challenge.
type ResendOTPRequest struct {
	UserID  string  `json:"user_id" binding:"required"`
	Purpose Purpose `json:"purpose" binding:"required"`
}

// ForgotPasswordRequest for password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	ResetToken  string `json:"reset_token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// VerifyMobileRequest confirms the mobile number of the signed-in user.
type VerifyMobileRequest struct {
	OTP string `json:"otp" binding:"required"`
}

// UpdateProfileRequest partially updates the profile.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Mobile    *string `json:"mobile,omitempty"`
}
