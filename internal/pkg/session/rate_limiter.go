// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxLoginAttempts = 5
	maxOTPAttempts   = 5
	maxResetRequests = 3
	maxOTPResends    = 5
)

type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// hit increments key and reports whether the count is still within max.
func (r *RateLimiter) hit(ctx context.Context, key string, max int64, window time.Duration) (bool, int64, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}

	// Set expiration on first attempt
	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= max, remaining, nil
}

// CheckLoginAttempt allows 5 attempts per 15 minutes per ip and email.
func (r *RateLimiter) CheckLoginAttempt(ctx context.Context, ip, email string) (bool, int64, error) {
	return r.hit(ctx, loginKey(ip, email), maxLoginAttempts, 15*time.Minute)
}

// GetRemainingAttempts returns remaining login attempts
func (r *RateLimiter) GetRemainingAttempts(ctx context.Context, ip, email string) (int64, error) {
	count, err := r.client.Get(ctx, loginKey(ip, email)).Int64()
	if errors.Is(err, redis.Nil) {
		return maxLoginAttempts, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get login attempts: %w", err)
	}

	remaining := maxLoginAttempts - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ResetLoginAttempts resets the login attempt counter
func (r *RateLimiter) ResetLoginAttempts(ctx context.Context, ip, email string) error {
	return r.client.Del(ctx, loginKey(ip, email)).Err()
}

// CheckPasswordResetAttempt allows 3 reset requests per hour.
func (r *RateLimiter) CheckPasswordResetAttempt(ctx context.Context, email string) (bool, error) {
	ok, _, err := r.hit(ctx, fmt.Sprintf("ratelimit:password_reset:%s", email), maxResetRequests, time.Hour)
	return ok, err
}

// CheckOTPAttempt allows 5 verification attempts per 10 minutes.
func (r *RateLimiter) CheckOTPAttempt(ctx context.Context, identityID string) (bool, error) {
	ok, _, err := r.hit(ctx, otpAttemptKey(identityID), maxOTPAttempts, 10*time.Minute)
	return ok, err
}

// ResetOTPAttempts resets OTP attempts
func (r *RateLimiter) ResetOTPAttempts(ctx context.Context, identityID string) error {
	return r.client.Del(ctx, otpAttemptKey(identityID)).Err()
}

// CheckOTPResend allows 5 resends per hour.
func (r *RateLimiter) CheckOTPResend(ctx context.Context, identityID string) (bool, error) {
	ok, _, err := r.hit(ctx, fmt.Sprintf("ratelimit:otp_resend:%s", identityID), maxOTPResends, time.Hour)
	return ok, err
}

func loginKey(ip, email string) string {
	return fmt.Sprintf("ratelimit:login:%s:%s", ip, email)
}

func otpAttemptKey(identityID string) string {
	return fmt.Sprintf("ratelimit:otp:%s", identityID)
}
