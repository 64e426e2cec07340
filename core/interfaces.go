package core

import (
	"context"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// AccountStorage defines account-related database operations.
//
// UpdateAccount must apply the write only when the stored Version still
// matches a.Version (single statement or equivalent transaction) and
// return ErrVersionConflict otherwise. This is what makes every
// credential operation an atomic read-modify-write.
type AccountStorage interface {
	CreateAccount(ctx context.Context, a *Account) error
	GetAccountByID(ctx context.Context, id string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	UpdateAccount(ctx context.Context, a *Account) error
}

// ResetTokenStorage defines reset-token database operations.
//
// ConsumeResetToken must delete and return the token in one atomic step
// so that of any number of concurrent consumers exactly one wins; every
// other caller gets ErrInvalidResetToken, as do expired or unknown
// tokens.
type ResetTokenStorage interface {
	CreateResetToken(ctx context.Context, t *ResetToken) error
	ConsumeResetToken(ctx context.Context, tokenHash string) (*ResetToken, error)
	DeleteAccountResetTokens(ctx context.Context, accountID string) error
}

// SessionStorage defines session-related database operations
type SessionStorage interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSessionByHash(ctx context.Context, tokenHash string) (*Session, error)
	GetSessionByID(ctx context.Context, id string) (*Session, error)
	GetAccountSessions(ctx context.Context, accountID string) ([]*Session, error)
	DeleteSessionByID(ctx context.Context, id string) error
	DeleteSessionByHash(ctx context.Context, tokenHash string) error
	DeleteAccountSessions(ctx context.Context, accountID string) (int, error)
	DeleteExpiredSessions(ctx context.Context) (int, error)
}

// AuthStorage is the composite storage port a database adapter implements.
type AuthStorage interface {
	AccountStorage
	ResetTokenStorage
	SessionStorage
}

// ============================================
// IDENTITY VERIFIER PORT
// ============================================

// IdentityVerifier turns an opaque provider assertion (an ID token from
// Google, Firebase, ...) into a verified ExternalIdentity. Provider
// handshakes live entirely behind this port.
type IdentityVerifier interface {
	Verify(ctx context.Context, assertion string) (*ExternalIdentity, error)
}

// ============================================
// AUTH HANDLER (for HTTP adapters)
// ============================================

// AuthHandler provides authentication operations for HTTP adapters
type AuthHandler interface {
	SignUp(ctx context.Context, input SignUpInput, ipAddress, userAgent string) (*AuthResult, error)
	SignIn(ctx context.Context, input SignInInput, ipAddress, userAgent string) (*AuthResult, error)
	SignInWithIdentity(ctx context.Context, identity ExternalIdentity, ipAddress, userAgent string) (*OAuthResult, error)
	SignOut(ctx context.Context, token string) error
	SignOutAll(ctx context.Context, accountID string) error
	GetSession(ctx context.Context, token string) (*SessionData, error)

	SetPassword(ctx context.Context, accountID, newPassword string) error
	ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// ============================================
// HTTP PORT
// ============================================

type HTTPAdapter interface {
	RegisterRoutes(l *Latch) error
}
