// internal/pkg/session/manager.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	xerrors "storefront/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Manager struct {
	client *redis.Client
	logger *zap.Logger
}

func NewManager(client *redis.Client, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		client: client,
		logger: logger,
	}
}

// CreateSession stores a new session in Redis
func (m *Manager) CreateSession(ctx context.Context, session *SessionData) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := m.client.Set(ctx, m.sessionKey(session.IdentityID, session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}
	return nil
}

// GetSession retrieves a session. A missing session yields ErrSessionExpired.
func (m *Manager) GetSession(ctx context.Context, identityID, sessionID string) (*SessionData, error) {
	data, err := m.client.Get(ctx, m.sessionKey(identityID, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, xerrors.ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Rotate records the token pair issued by a refresh. The caller must present
// the refresh JTI currently on record; anything else means the refresh token
// was replayed, and the session is revoked.
func (m *Manager) Rotate(ctx context.Context, identityID, sessionID, presentedJTI, refreshJTI, accessJTI string) (*SessionData, error) {
	session, err := m.GetSession(ctx, identityID, sessionID)
	if err != nil {
		return nil, err
	}

	if session.RefreshJTI != presentedJTI {
		m.logger.Warn("refresh token reuse detected, revoking session",
			zap.String("identity_id", identityID),
			zap.String("session_id", sessionID),
		)
		_ = m.InvalidateSession(ctx, identityID, sessionID)
		return nil, xerrors.ErrSessionExpired
	}

	session.RefreshJTI = refreshJTI
	session.AccessJTI = accessJTI
	session.LastActivityAt = time.Now()
	if err := m.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// InvalidateSession removes a session from Redis
func (m *Manager) InvalidateSession(ctx context.Context, identityID, sessionID string) error {
	if err := m.client.Del(ctx, m.sessionKey(identityID, sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// InvalidateAllUserSessions removes all sessions for a user
func (m *Manager) InvalidateAllUserSessions(ctx context.Context, identityID string) error {
	iter := m.client.Scan(ctx, 0, m.sessionKey(identityID, "*"), 0).Iterator()
	for iter.Next(ctx) {
		if err := m.client.Del(ctx, iter.Val()).Err(); err != nil {
			m.logger.Warn("failed to delete session", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	return iter.Err()
}

// GetUserActiveSessions returns all active sessions for a user
func (m *Manager) GetUserActiveSessions(ctx context.Context, identityID string) ([]*SessionData, error) {
	var sessions []*SessionData
	iter := m.client.Scan(ctx, 0, m.sessionKey(identityID, "*"), 0).Iterator()
	for iter.Next(ctx) {
		data, err := m.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}

		var session SessionData
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		sessions = append(sessions, &session)
	}
	return sessions, iter.Err()
}

// IsTokenBlacklisted checks if a token is blacklisted
func (m *Manager) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	exists, err := m.client.Exists(ctx, m.blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return exists > 0, nil
}

// BlacklistToken adds a token to the blacklist until it would have expired anyway
func (m *Manager) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return m.client.Set(ctx, m.blacklistKey(jti), "1", ttl).Err()
}

// ClaimToken blacklists jti and reports whether this call was the first to do
// so. Single-use tokens are claimed before the action they authorise.
func (m *Manager) ClaimToken(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl < time.Second {
		ttl = time.Second
	}
	claimed, err := m.client.SetNX(ctx, m.blacklistKey(jti), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim token: %w", err)
	}
	return claimed, nil
}

func (m *Manager) sessionKey(identityID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", identityID, sessionID)
}

func (m *Manager) blacklistKey(jti string) string {
	return fmt.Sprintf("blacklist:%s", jti)
}
