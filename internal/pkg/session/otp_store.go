// internal/pkg/session/otp_store.go
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPStore keeps one pending code per user and purpose.
type OTPStore struct {
	client  *redis.Client
	ttl     time.Duration
	devCode string
}

// NewOTPStore builds a store. A non-empty devCode replaces generated codes.
func NewOTPStore(client *redis.Client, ttl time.Duration, devCode string) *OTPStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &OTPStore{client: client, ttl: ttl, devCode: devCode}
}

// TTL is how long an issued code stays valid.
func (s *OTPStore) TTL() time.Duration { return s.ttl }

// Issue generates and stores a fresh code, replacing any pending one.
func (s *OTPStore) Issue(ctx context.Context, purpose, identityID, contact string) (*OTPRecord, error) {
	code := s.devCode
	if code == "" {
		var err error
		if code, err = generateCode(6); err != nil {
			return nil, err
		}
	}

	rec := &OTPRecord{Code: code, Contact: contact, IssuedAt: time.Now().UTC()}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, otpKey(purpose, identityID), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store otp: %w", err)
	}
	return rec, nil
}

// Pending returns the outstanding record, or nil when none exists.
func (s *OTPStore) Pending(ctx context.Context, purpose, identityID string) (*OTPRecord, error) {
	data, err := s.client.Get(ctx, otpKey(purpose, identityID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load otp: %w", err)
	}
	var rec OTPRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode otp: %w", err)
	}
	return &rec, nil
}

// Verify consumes the pending code when it matches.
func (s *OTPStore) Verify(ctx context.Context, purpose, identityID, code string) (bool, error) {
	rec, err := s.Pending(ctx, purpose, identityID)
	if err != nil || rec == nil {
		return false, err
	}
	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		return false, nil
	}
	if err := s.client.Del(ctx, otpKey(purpose, identityID)).Err(); err != nil {
		return false, fmt.Errorf("failed to consume otp: %w", err)
	}
	return true, nil
}

func otpKey(purpose, identityID string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, identityID)
}

func generateCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
