// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/auth"
	xerrors "storefront/internal/pkg/errors"
	"storefront/internal/pkg/jwt"
	"storefront/internal/pkg/session"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SessionEvents is notified when a session ends server-side.
type SessionEvents interface {
	ForceLogout(identityID, sessionID, reason string)
}

type AuthService struct {
	users          auth.UserRepository
	jwtManager     *jwt.Manager
	sessionManager *session.Manager
	rateLimiter    *session.RateLimiter
	otps           *session.OTPStore
	notifier       Notifier
	events         SessionEvents
	logger         *zap.Logger
}

func NewAuthService(
	users auth.UserRepository,
	jwtManager *jwt.Manager,
	sessionManager *session.Manager,
	rateLimiter *session.RateLimiter,
	otps *session.OTPStore,
	notifier Notifier,
	events SessionEvents,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &AuthService{
		users:          users,
		jwtManager:     jwtManager,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
		otps:           otps,
		notifier:       notifier,
		events:         events,
		logger:         logger,
	}
}

// ClientInfo describes the caller of a login or refresh.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// ========== Registration ==========

// Register creates an unverified account and issues a signup verification code.
// No session exists until the code is verified.
func (s *AuthService) Register(ctx context.Context, req *auth.RegisterRequest) (*auth.ChallengeResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	mobile := req.Mobile
	if mobile == "" {
		mobile = req.Phone
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, xerrors.ErrDuplicateEntry
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &auth.User{
		ID:           ulid.Make().String(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Mobile:       mobile,
		Status:       auth.StatusPendingVerification,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.issueChallenge(ctx, user, auth.PurposeSignupVerification)
}

// ========== Login ==========

// Login authenticates a user with email/password
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest, info ClientInfo) (*auth.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	allowed, _, err := s.rateLimiter.CheckLoginAttempt(ctx, info.IPAddress, email)
	if err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		return nil, xerrors.ErrRateLimited
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, xerrors.ErrInvalidCredentials
	}

	switch user.Status {
	case auth.StatusPendingVerification:
		return nil, xerrors.ErrNotVerified
	case auth.StatusSuspended:
		return nil, xerrors.ErrForbidden
	}

	if err := s.rateLimiter.ResetLoginAttempts(ctx, info.IPAddress, email); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}
	return s.startSession(ctx, user, req.Device, info)
}

// startSession registers a new session and issues its token pair.
func (s *AuthService) startSession(ctx context.Context, user *auth.User, device string, info ClientInfo) (*auth.LoginResponse, error) {
	sessionID := ulid.Make().String()
	gen := s.jwtManager.Generator

	accessToken, accessJTI, err := gen.GenerateAccessToken(user.ID, sessionID, user.Email, device)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, refreshJTI, err := gen.GenerateRefreshToken(user.ID, sessionID, device)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now()
	if err := s.sessionManager.CreateSession(ctx, &session.SessionData{
		ID:             sessionID,
		IdentityID:     user.ID,
		RefreshJTI:     refreshJTI,
		AccessJTI:      accessJTI,
		Email:          user.Email,
		Device:         device,
		IPAddress:      info.IPAddress,
		UserAgent:      info.UserAgent,
		LoginAt:        now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(gen.RefreshTtl),
	}); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Error("failed to update last login", zap.Error(err))
	}

	return s.loginResponse(user, accessToken, refreshToken, now), nil
}

func (s *AuthService) loginResponse(user *auth.User, accessToken, refreshToken string, issuedAt time.Time) *auth.LoginResponse {
	ttl := s.jwtManager.Generator.Ttl
	return &auth.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(ttl.Seconds()),
		ExpiresAt:    issuedAt.Add(ttl),
		User:         user.Identity(),
	}
}

// ========== Refresh ==========

// Refresh rotates the token pair of the session the refresh token belongs to.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.LoginResponse, error) {
	claims, err := s.jwtManager.Verifier.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, xerrors.ErrSessionExpired
	}

	user, err := s.users.FindByID(ctx, claims.IdentityID)
	if err != nil {
		return nil, xerrors.ErrSessionExpired
	}

	gen := s.jwtManager.Generator
	accessToken, accessJTI, err := gen.GenerateAccessToken(user.ID, claims.SessionID, user.Email, claims.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	newRefresh, refreshJTI, err := gen.GenerateRefreshToken(user.ID, claims.SessionID, claims.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if _, err := s.sessionManager.Rotate(ctx, user.ID, claims.SessionID, claims.ID, refreshJTI, accessJTI); err != nil {
		return nil, err
	}

	return s.loginResponse(user, accessToken, newRefresh, time.Now()), nil
}

// ========== Logout ==========

// Logout ends the session behind the presented access token.
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if err := s.sessionManager.InvalidateSession(ctx, claims.IdentityID, claims.SessionID); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	if err := s.sessionManager.BlacklistToken(ctx, claims.ID, claims.Remaining(time.Now())); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	if s.events != nil {
		s.events.ForceLogout(claims.IdentityID, claims.SessionID, "User logged out")
	}
	return nil
}

// ValidateToken validates a JWT token and session
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.Verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrUnauthorized, err)
	}

	blacklisted, err := s.sessionManager.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		return nil, xerrors.ErrSessionExpired
	}

	if _, err := s.sessionManager.GetSession(ctx, claims.IdentityID, claims.SessionID); err != nil {
		return nil, err
	}
	return claims, nil
}

// ========== One-time codes ==========

func (s *AuthService) issueChallenge(ctx context.Context, user *auth.User, purpose auth.Purpose) (*auth.ChallengeResponse, error) {
	contact := user.Email
	if purpose == auth.PurposeMobileVerification {
		contact = user.Mobile
	}

	rec, err := s.otps.Issue(ctx, string(purpose), user.ID, contact)
	if err != nil {
		return nil, err
	}

	name := auth.DisplayName(user.FirstName, user.LastName, user.Email)
	if err := s.notifier.SendOTP(ctx, user.Email, name, rec.Code, purpose); err != nil {
		s.logger.Error("failed to deliver otp", zap.String("user_id", user.ID), zap.Error(err))
	}

	return &auth.ChallengeResponse{
		UserID:    user.ID,
		Contact:   contact,
		Purpose:   purpose,
		ExpiresAt: rec.IssuedAt.Add(s.otps.TTL()),
	}, nil
}

// checkCode verifies and consumes a code, counting the attempt against the rate limit.
func (s *AuthService) checkCode(ctx context.Context, userID string, purpose auth.Purpose, code string) error {
	allowed, err := s.rateLimiter.CheckOTPAttempt(ctx, userID)
	if err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		return xerrors.ErrRateLimited
	}

	ok, err := s.otps.Verify(ctx, string(purpose), userID, code)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.ErrInvalidOTP
	}

	if err := s.rateLimiter.ResetOTPAttempts(ctx, userID); err != nil {
		s.logger.Warn("failed to reset otp attempts", zap.Error(err))
	}
	return nil
}

// VerifyOTP resolves a signup or password reset challenge.
func (s *AuthService) VerifyOTP(ctx context.Context, req *auth.VerifyOTPRequest, device string, info ClientInfo) (*auth.VerifyOTPResponse, error) {
	if req.Purpose != auth.PurposeSignupVerification && req.Purpose != auth.PurposePasswordReset {
		return nil, fmt.Errorf("%w: unsupported purpose %q", xerrors.ErrInvalidInput, req.Purpose)
	}

	if err := s.checkCode(ctx, req.UserID, req.Purpose, req.OTP); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	switch req.Purpose {
	case auth.PurposeSignupVerification:
		if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to verify email: %w", err)
		}
		user.EmailVerified = true
		user.Status = auth.StatusActive

		login, err := s.startSession(ctx, user, device, info)
		if err != nil {
			return nil, err
		}
		return &auth.VerifyOTPResponse{Verified: true, Login: login}, nil

	default:
		resetToken, _, err := s.jwtManager.Generator.GeneratePasswordResetToken(user.ID, user.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to generate reset token: %w", err)
		}
		return &auth.VerifyOTPResponse{Verified: true, ResetToken: resetToken}, nil
	}
}

// ResendOTP re-issues the code of an existing challenge.
func (s *AuthService) ResendOTP(ctx context.Context, req *auth.ResendOTPRequest) (*auth.ChallengeResponse, error) {
	if !req.Purpose.Valid() {
		return nil, fmt.Errorf("%w: unknown purpose %q", xerrors.ErrInvalidInput, req.Purpose)
	}

	allowed, err := s.rateLimiter.CheckOTPResend(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		return nil, xerrors.ErrRateLimited
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if req.Purpose == auth.PurposeSignupVerification && user.EmailVerified {
		return nil, fmt.Errorf("%w: email already verified", xerrors.ErrConflict)
	}
	return s.issueChallenge(ctx, user, req.Purpose)
}

// ========== Password Management ==========

// ForgotPassword issues a password reset code. Unknown emails receive a
// challenge that can never verify, so callers cannot probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*auth.ChallengeResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	allowed, err := s.rateLimiter.CheckPasswordResetAttempt(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		return nil, xerrors.ErrRateLimited
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, xerrors.ErrNotFound) {
		return &auth.ChallengeResponse{
			UserID:    ulid.Make().String(),
			Contact:   email,
			Purpose:   auth.PurposePasswordReset,
			ExpiresAt: time.Now().Add(s.otps.TTL()),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.issueChallenge(ctx, user, auth.PurposePasswordReset)
}

// ResetPassword sets a new password using a reset token and ends every session.
func (s *AuthService) ResetPassword(ctx context.Context, req *auth.ResetPasswordRequest) error {
	claims, err := s.jwtManager.Verifier.VerifyPasswordResetToken(req.ResetToken)
	if err != nil {
		return fmt.Errorf("%w: invalid or expired reset token", xerrors.ErrUnauthorized)
	}

	// A token whose use cannot be recorded is refused. A failed update below
	// still spends it; the user asks for a new code.
	claimed, err := s.sessionManager.ClaimToken(ctx, claims.ID, claims.Remaining(time.Now()))
	if err != nil {
		return err
	}
	if !claimed {
		return fmt.Errorf("%w: reset token already used", xerrors.ErrUnauthorized)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, claims.IdentityID, string(hashedPassword)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return s.LogoutAllSessions(ctx, claims.IdentityID)
}

// LogoutAllSessions invalidates all sessions for a user
func (s *AuthService) LogoutAllSessions(ctx context.Context, identityID string) error {
	if err := s.sessionManager.InvalidateAllUserSessions(ctx, identityID); err != nil {
		return fmt.Errorf("failed to invalidate sessions: %w", err)
	}
	if s.events != nil {
		s.events.ForceLogout(identityID, "", "All sessions logged out")
	}
	return nil
}

// ========== Mobile verification ==========

// SendMobileOTP issues a code for the mobile number on the profile.
func (s *AuthService) SendMobileOTP(ctx context.Context, userID string) (*auth.ChallengeResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Mobile == "" {
		return nil, fmt.Errorf("%w: no mobile number on profile", xerrors.ErrInvalidInput)
	}
	if user.MobileVerified {
		return nil, fmt.Errorf("%w: mobile already verified", xerrors.ErrConflict)
	}
	return s.issueChallenge(ctx, user, auth.PurposeMobileVerification)
}

// VerifyMobile confirms the mobile number and returns the updated identity.
func (s *AuthService) VerifyMobile(ctx context.Context, userID, code string) (*auth.Identity, error) {
	if err := s.checkCode(ctx, userID, auth.PurposeMobileVerification, code); err != nil {
		return nil, err
	}
	if err := s.users.MarkMobileVerified(ctx, userID); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// ========== Profile ==========

// GetProfile retrieves the public identity of a user
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*auth.Identity, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	id := user.Identity()
	return &id, nil
}

// UpdateProfile applies a partial update. Changing the mobile number clears its verification.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req *auth.UpdateProfileRequest) (*auth.Identity, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Mobile != nil && *req.Mobile != user.Mobile {
		user.Mobile = *req.Mobile
		user.MobileVerified = false
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	id := user.Identity()
	return &id, nil
}

// ========== Session Management ==========

// GetActiveSessions lists the live sessions of a user.
func (s *AuthService) GetActiveSessions(ctx context.Context, identityID string) ([]*session.SessionData, error) {
	return s.sessionManager.GetUserActiveSessions(ctx, identityID)
}

// RevokeSession ends one session of a user.
func (s *AuthService) RevokeSession(ctx context.Context, identityID, sessionID string) error {
	if _, err := s.sessionManager.GetSession(ctx, identityID, sessionID); err != nil {
		return xerrors.ErrNotFound
	}
	if err := s.sessionManager.InvalidateSession(ctx, identityID, sessionID); err != nil {
		return err
	}
	if s.events != nil {
		s.events.ForceLogout(identityID, sessionID, "Session revoked")
	}
	return nil
}
