package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ljmarquez/latch/core"
	"github.com/ljmarquez/latch/pkg/crypto"
)

// AuthService is the AuthHandler implementation HTTP adapters talk to.
// It composes the reconciler, the password lifecycle and the session
// manager into the endpoint operations.
type AuthService struct {
	db         core.AuthStorage
	reconciler *ReconcilerService
	lifecycle  *PasswordService
	passwords  crypto.PasswordHandler
	sessions   *core.SessionManager
	logger     *zap.Logger
}

// Ensure AuthService implements AuthHandler
var _ core.AuthHandler = (*AuthService)(nil)

func NewAuthService(db core.AuthStorage, reconciler *ReconcilerService, lifecycle *PasswordService, passwords crypto.PasswordHandler, sessions *core.SessionManager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		db:         db,
		reconciler: reconciler,
		lifecycle:  lifecycle,
		passwords:  passwords,
		sessions:   sessions,
		logger:     logger,
	}
}

// SignUp registers a new account with email and password and opens its
// first session.
func (s *AuthService) SignUp(ctx context.Context, input core.SignUpInput, ipAddress, userAgent string) (*core.AuthResult, error) {
	account, err := s.reconciler.PasswordSignup(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	sessionResult, err := s.sessions.Create(ctx, account.ID, ipAddress, userAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &core.AuthResult{
		Account: core.Project(account),
		Session: sessionResult.Session,
		Token:   sessionResult.Token,
	}, nil
}

// SignIn authenticates an account with email and password.
func (s *AuthService) SignIn(ctx context.Context, input core.SignInInput, ipAddress, userAgent string) (*core.AuthResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, core.ErrInvalidCredentials
	}

	account, err := s.db.GetAccountByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return nil, core.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	// OAuth-origin accounts hold an unguessable placeholder, so this
	// verification fails for them the same way a wrong password does.
	valid, err := s.passwords.Verify(input.Password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, core.ErrInvalidCredentials
	}

	sessionResult, err := s.sessions.Create(ctx, account.ID, ipAddress, userAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &core.AuthResult{
		Account: core.Project(account),
		Session: sessionResult.Session,
		Token:   sessionResult.Token,
	}, nil
}

// SignInWithIdentity reconciles a verified external identity and opens a
// session for the resulting account.
func (s *AuthService) SignInWithIdentity(ctx context.Context, identity core.ExternalIdentity, ipAddress, userAgent string) (*core.OAuthResult, error) {
	account, isNew, err := s.reconciler.OAuthAssertion(ctx, identity)
	if err != nil {
		return nil, err
	}

	sessionResult, err := s.sessions.Create(ctx, account.ID, ipAddress, userAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &core.OAuthResult{
		Account:   core.Project(account),
		Session:   sessionResult.Session,
		Token:     sessionResult.Token,
		IsNewUser: isNew,
	}, nil
}

// SignOut invalidates the current session
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SignOutAll invalidates every session of the account.
func (s *AuthService) SignOutAll(ctx context.Context, accountID string) error {
	revoked, err := s.sessions.DestroyAllAccountSessions(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	s.logger.Info("signed out everywhere",
		zap.String("account_id", accountID),
		zap.Int("count", revoked),
	)
	return nil
}

// GetSession retrieves session data by token
func (s *AuthService) GetSession(ctx context.Context, token string) (*core.SessionData, error) {
	session, err := s.sessions.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	account, err := s.db.GetAccountByID(ctx, session.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &core.SessionData{
		Account: core.Project(account),
		Session: session,
	}, nil
}

func (s *AuthService) SetPassword(ctx context.Context, accountID, newPassword string) error {
	return s.lifecycle.SetPassword(ctx, accountID, newPassword)
}

func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	return s.lifecycle.ChangePassword(ctx, accountID, currentPassword, newPassword)
}

func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.lifecycle.RequestReset(ctx, email)
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return s.lifecycle.ResetPassword(ctx, token, newPassword)
}
