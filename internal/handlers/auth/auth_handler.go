// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	"storefront/internal/domain/auth"
	"storefront/internal/middleware"
	"storefront/internal/pkg/response"
	authUsecase "storefront/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

func clientInfo(c *gin.Context) authUsecase.ClientInfo {
	return authUsecase.ClientInfo{IPAddress: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// ========== Registration ==========

// Register creates an account and issues the signup verification code (public endpoint)
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	challenge, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("registration failed", zap.String("email", req.Email), zap.Error(err))
		response.FromError(c, "registration failed", err)
		return
	}

	response.Success(c, http.StatusCreated, "verification code sent", challenge)
}

// ========== Login ==========

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	loginResp, err := h.authService.Login(c.Request.Context(), &req, clientInfo(c))
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("email", req.Email),
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		response.FromError(c, "login failed", err)
		return
	}

	h.logger.Info("user logged in", zap.String("identity_id", loginResp.User.ID))
	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// Refresh exchanges a refresh token for a new token pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	loginResp, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.FromError(c, "token refresh failed", err)
		return
	}

	response.Success(c, http.StatusOK, "token refreshed", loginResp)
}

// ========== Logout ==========

// Logout handles user logout (requires auth)
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.MustGetClaims(c)

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		h.logger.Error("logout failed", zap.String("identity_id", claims.IdentityID), zap.Error(err))
		response.FromError(c, "logout failed", err)
		return
	}

	response.Success(c, http.StatusOK, "logout successful", nil)
}

// LogoutAll handles logging out all sessions (requires auth)
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)

	if err := h.authService.LogoutAllSessions(c.Request.Context(), identityID); err != nil {
		response.FromError(c, "logout all failed", err)
		return
	}

	response.Success(c, http.StatusOK, "all sessions logged out", nil)
}

// ========== One-time codes ==========

// VerifyOTP resolves a signup or password reset challenge
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req auth.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.authService.VerifyOTP(c.Request.Context(), &req, c.GetHeader("X-Device"), clientInfo(c))
	if err != nil {
		response.FromError(c, "verification failed", err)
		return
	}

	response.Success(c, http.StatusOK, "verification successful", result)
}

// ResendOTP re-issues the code for an existing challenge
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req auth.ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	challenge, err := h.authService.ResendOTP(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "failed to resend code", err)
		return
	}

	response.Success(c, http.StatusOK, "verification code sent", challenge)
}

// SendMobileOTP starts mobile verification for the signed-in user (requires auth)
func (h *AuthHandler) SendMobileOTP(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)

	challenge, err := h.authService.SendMobileOTP(c.Request.Context(), identityID)
	if err != nil {
		response.FromError(c, "failed to send code", err)
		return
	}

	response.Success(c, http.StatusOK, "verification code sent", challenge)
}

// VerifyMobile confirms the mobile number of the signed-in user (requires auth)
func (h *AuthHandler) VerifyMobile(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)

	var req auth.VerifyMobileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	profile, err := h.authService.VerifyMobile(c.Request.Context(), identityID, req.OTP)
	if err != nil {
		response.FromError(c, "mobile verification failed", err)
		return
	}

	response.Success(c, http.StatusOK, "mobile verified", profile)
}

// ========== Password Management ==========

// ForgotPassword handles password reset request
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req auth.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	challenge, err := h.authService.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		response.FromError(c, "password reset failed", err)
		return
	}

	// Same response whether or not the email exists
	response.Success(c, http.StatusOK, "if the email exists, a code has been sent", challenge)
}

// ResetPassword handles password reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req auth.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), &req); err != nil {
		response.FromError(c, "password reset failed", err)
		return
	}

	response.Success(c, http.StatusOK, "password reset successful", nil)
}

// ========== Profile ==========

// GetProfile returns current user profile (requires auth)
func (h *AuthHandler) GetProfile(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)

	profile, err := h.authService.GetProfile(c.Request.Context(), identityID)
	if err != nil {
		response.FromError(c, "failed to get profile", err)
		return
	}

	response.Success(c, http.StatusOK, "profile retrieved", profile)
}

// UpdateProfile updates user profile (requires auth)
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)

	var req auth.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	profile, err := h.authService.UpdateProfile(c.Request.Context(), identityID, &req)
	if err != nil {
		response.FromError(c, "failed to update profile", err)
		return
	}

	response.Success(c, http.StatusOK, "profile updated", profile)
}

// ========== Session Management ==========

// GetActiveSessions returns all active sessions for current user
func (h *AuthHandler) GetActiveSessions(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)

	sessions, err := h.authService.GetActiveSessions(c.Request.Context(), identityID)
	if err != nil {
		response.FromError(c, "failed to get sessions", err)
		return
	}

	response.Success(c, http.StatusOK, "sessions retrieved", sessions)
}

// RevokeSession revokes a specific session
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)

	if err := h.authService.RevokeSession(c.Request.Context(), identityID, c.Param("session_id")); err != nil {
		response.FromError(c, "failed to revoke session", err)
		return
	}

	response.Success(c, http.StatusOK, "session revoked", nil)
}
