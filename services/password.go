package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ljmarquez/latch/core"
	"github.com/ljmarquez/latch/pkg/crypto"
)

const DefaultResetTokenTTL = time.Hour

// PasswordService owns the credential lifecycle of an account: setting
// the first operator-chosen password on OAuth-origin accounts, changing
// it under current-password verification, and the forgot/reset flow.
type PasswordService struct {
	db        core.AuthStorage
	passwords crypto.PasswordHandler
	sessions  *core.SessionManager
	bus       *core.Bus
	logger    *zap.Logger
	resetTTL  time.Duration
}

func NewPasswordService(db core.AuthStorage, passwords crypto.PasswordHandler, sessions *core.SessionManager, bus *core.Bus, logger *zap.Logger, resetTTL time.Duration) *PasswordService {
	if bus == nil {
		bus = core.NewBus()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if resetTTL <= 0 {
		resetTTL = DefaultResetTokenTTL
	}
	return &PasswordService{
		db:        db,
		passwords: passwords,
		sessions:  sessions,
		bus:       bus,
		logger:    logger,
		resetTTL:  resetTTL,
	}
}

// SetPassword gives an OAuth-origin account its first operator-chosen
// credential. No current-password check: the holder cannot know the
// generated placeholder. One-shot; fails with ErrPasswordAlreadySet once
// a password has been chosen.
func (s *PasswordService) SetPassword(ctx context.Context, accountID, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		account, err := s.db.GetAccountByID(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}

		if account.HasSetPassword {
			return core.ErrPasswordAlreadySet
		}

		hashed, err := s.passwords.Hash(newPassword)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		account.PasswordHash = hashed
		account.HasSetPassword = true

		if err := s.db.UpdateAccount(ctx, account); err != nil {
			if errors.Is(err, core.ErrVersionConflict) {
				continue
			}
			return fmt.Errorf("failed to update account: %w", err)
		}

		s.logger.Info("password set", zap.String("account_id", account.ID))
		s.publish(core.EventPasswordSet, account)
		return nil
	}

	return core.ErrVersionConflict
}

// ChangePassword replaces the credential of an account that already has
// an operator-chosen one. Accounts still on a placeholder must use
// SetPassword instead.
func (s *PasswordService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		account, err := s.db.GetAccountByID(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}

		// Eligibility is decided by the flag alone, never by linked
		// identity presence.
		if !account.HasSetPassword {
			return core.ErrPasswordNotSet
		}

		valid, err := s.passwords.Verify(currentPassword, account.PasswordHash)
		if err != nil {
			return fmt.Errorf("failed to verify password: %w", err)
		}
		if !valid {
			return core.ErrInvalidCredentials
		}

		hashed, err := s.passwords.Hash(newPassword)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		account.PasswordHash = hashed

		if err := s.db.UpdateAccount(ctx, account); err != nil {
			if errors.Is(err, core.ErrVersionConflict) {
				continue
			}
			return fmt.Errorf("failed to update account: %w", err)
		}

		s.logger.Info("password changed", zap.String("account_id", account.ID))
		s.publish(core.EventPasswordChanged, account)
		return nil
	}

	return core.ErrVersionConflict
}

// RequestReset issues a single-use, time-limited reset token for the
// account registered under email and publishes it on the bus for
// delivery. Unknown emails are a silent no-op so the endpoint response
// never reveals whether an address is registered.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	account, err := s.db.GetAccountByEmail(ctx, email)
	if errors.Is(err, core.ErrAccountNotFound) {
		s.logger.Debug("reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	pair, err := crypto.GenerateHashedToken(crypto.DefaultTokenLength)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	token := &core.ResetToken{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		TokenHash: pair.Hash,
		ExpiresAt: time.Now().Add(s.resetTTL),
		CreatedAt: time.Now(),
	}

	if err := s.db.CreateResetToken(ctx, token); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	s.logger.Info("password reset requested", zap.String("account_id", account.ID))
	s.bus.Publish(core.Event{
		Type:       core.EventResetRequested,
		Account:    *core.Project(account),
		ResetToken: pair.Token,
	})
	return nil
}

// ResetPassword consumes a reset token and installs the new credential.
// The account ends up with HasSetPassword=true whatever its prior state,
// and every session of the account is revoked.
func (s *PasswordService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if token == "" {
		return core.ErrInvalidResetToken
	}

	// Atomic consumption: of concurrent resets with the same token, at
	// most one reaches the account update.
	consumed, err := s.db.ConsumeResetToken(ctx, crypto.HashToken(token))
	if err != nil {
		if errors.Is(err, core.ErrInvalidResetToken) {
			return core.ErrInvalidResetToken
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		account, err := s.db.GetAccountByID(ctx, consumed.AccountID)
		if err != nil {
			if errors.Is(err, core.ErrAccountNotFound) {
				return core.ErrInvalidResetToken
			}
			return fmt.Errorf("failed to get account: %w", err)
		}

		hashed, err := s.passwords.Hash(newPassword)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		account.PasswordHash = hashed
		account.HasSetPassword = true

		if err := s.db.UpdateAccount(ctx, account); err != nil {
			if errors.Is(err, core.ErrVersionConflict) {
				continue
			}
			return fmt.Errorf("failed to update account: %w", err)
		}

		if s.sessions != nil {
			revoked, err := s.sessions.DestroyAllAccountSessions(ctx, account.ID)
			if err != nil {
				s.logger.Error("failed to revoke sessions after reset",
					zap.String("account_id", account.ID),
					zap.Error(err),
				)
			} else if revoked > 0 {
				s.logger.Info("sessions revoked after reset",
					zap.String("account_id", account.ID),
					zap.Int("count", revoked),
				)
			}
		}

		s.logger.Info("password reset", zap.String("account_id", account.ID))
		s.publish(core.EventPasswordReset, account)
		return nil
	}

	return core.ErrVersionConflict
}

func (s *PasswordService) publish(t core.EventType, account *core.Account) {
	s.bus.Publish(core.Event{
		Type:    t,
		Account: *core.Project(account),
	})
}
