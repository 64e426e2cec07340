package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ljmarquez/latch/pkg/crypto"
)

type SessionConfig struct {
	MaxAge time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxAge: 24 * time.Hour,
	}
}

// SessionManager issues and verifies opaque session tokens. Storage
// holds the sha256 hash of each token; the raw value exists only in the
// client's hands.
type SessionManager struct {
	config  SessionConfig
	storage SessionStorage
	cache   Cache
}

type CreateSessionResult struct {
	Session *Session `json:"session"`
	Token   string   `json:"token"`
}

func NewSessionManager(config SessionConfig, storage SessionStorage, cache Cache) *SessionManager {
	return &SessionManager{
		config:  config,
		storage: storage,
		cache:   cache,
	}
}

func (sm *SessionManager) Create(ctx context.Context, accountID, ipAddress, userAgent string) (*CreateSessionResult, error) {
	token, err := crypto.GenerateHashedToken(crypto.DefaultTokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		TokenHash: token.Hash,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ExpiresAt: now.Add(sm.config.MaxAge),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := sm.storage.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &CreateSessionResult{
		Session: session,
		Token:   token.Token,
	}, nil
}

func (sm *SessionManager) Verify(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	tokenHash := crypto.HashToken(token)

	if sm.cache != nil {
		if session, err := sm.cache.Get(tokenHash); err == nil && session != nil {
			if time.Now().Before(session.ExpiresAt) {
				return session, nil
			}
			sm.cache.Delete(tokenHash)
		}
	}

	session, err := sm.storage.GetSessionByHash(ctx, tokenHash)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	valid, err := crypto.VerifyToken(token, session.TokenHash)
	if err != nil || !valid {
		return nil, ErrInvalidToken
	}

	if time.Now().After(session.ExpiresAt) {
		sm.storage.DeleteSessionByID(ctx, session.ID)
		return nil, ErrSessionExpired
	}

	if sm.cache != nil {
		sm.cache.Set(tokenHash, session)
	}

	return session, nil
}

func (sm *SessionManager) Destroy(ctx context.Context, token string) error {
	tokenHash := crypto.HashToken(token)

	// Invalidate cache if available
	if sm.cache != nil {
		sm.cache.Delete(tokenHash)
	}

	return sm.storage.DeleteSessionByHash(ctx, tokenHash)
}

// DestroyAllAccountSessions revokes every session of an account. Called
// after a password reset so stolen sessions die with the old credential.
func (sm *SessionManager) DestroyAllAccountSessions(ctx context.Context, accountID string) (int, error) {
	if sm.cache != nil {
		sm.cache.Clear()
	}

	return sm.storage.DeleteAccountSessions(ctx, accountID)
}
