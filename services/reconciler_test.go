package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ljmarquez/latch/core"
)

// Requirement: PasswordSignup creates an account with an operator-chosen
// credential and rejects duplicate or invalid input.
func TestReconcilerService_PasswordSignup(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		setup    func(*testEnv)
		wantErr  error
	}{
		{
			name:     "creates account for valid input",
			email:    "alice@example.com",
			password: "SecurePass123!",
		},
		{
			name:     "rejects duplicate email from password flow",
			email:    "alice@example.com",
			password: "SecurePass123!",
			setup: func(env *testEnv) {
				_, err := env.reconciler.PasswordSignup(context.Background(), "alice@example.com", "OtherPass456!")
				if err != nil {
					t.Fatalf("setup signup failed: %v", err)
				}
			},
			wantErr: core.ErrEmailTaken,
		},
		{
			name:     "rejects duplicate email from oauth flow",
			email:    "bob@example.com",
			password: "SecurePass123!",
			setup: func(env *testEnv) {
				_, _, err := env.reconciler.OAuthAssertion(context.Background(), core.ExternalIdentity{
					ExternalID: "ext-bob", Email: "bob@example.com",
				})
				if err != nil {
					t.Fatalf("setup assertion failed: %v", err)
				}
			},
			wantErr: core.ErrEmailTaken,
		},
		{
			name:     "rejects empty email",
			email:    "",
			password: "SecurePass123!",
			wantErr:  core.ErrEmailRequired,
		},
		{
			name:     "rejects malformed email",
			email:    "not-an-email",
			password: "SecurePass123!",
			wantErr:  core.ErrInvalidEmail,
		},
		{
			name:     "rejects empty password",
			email:    "alice@example.com",
			password: "",
			wantErr:  core.ErrPasswordRequired,
		},
		{
			name:     "rejects short password",
			email:    "alice@example.com",
			password: "short",
			wantErr:  core.ErrPasswordTooShort,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			env := newTestEnv()
			if test.setup != nil {
				test.setup(env)
			}

			// Act
			account, err := env.reconciler.PasswordSignup(context.Background(), test.email, test.password)

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("PasswordSignup() error = %v, want %v", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("PasswordSignup() error = %v", err)
			}
			if account.ID == "" {
				t.Error("PasswordSignup() should assign an ID")
			}
			if !account.HasSetPassword {
				t.Error("PasswordSignup() should mark the credential as operator-chosen")
			}
			if account.PasswordHash == "" {
				t.Error("PasswordSignup() should store a password hash")
			}
			if account.ExternalID != nil {
				t.Error("PasswordSignup() should not link an external identity")
			}
		})
	}
}

// Requirement: an OAuth assertion for an unseen email creates an account
// with a placeholder credential; the flag reports it as not
// operator-chosen and the hash is still present.
func TestReconcilerService_OAuthAssertion_CreatesAccount(t *testing.T) {
	// Arrange
	env := newTestEnv()
	events := collectEvents(env.bus)

	// Act
	account, isNew, err := env.reconciler.OAuthAssertion(context.Background(), core.ExternalIdentity{
		ExternalID: "ext-1",
		Email:      "carol@example.com",
	})

	// Assert
	if err != nil {
		t.Fatalf("OAuthAssertion() error = %v", err)
	}
	if !isNew {
		t.Error("OAuthAssertion() should report a new account")
	}
	if account.HasSetPassword {
		t.Error("OAuth-origin account must not report an operator-chosen credential")
	}
	if account.PasswordHash == "" {
		t.Error("OAuth-origin account must still carry a password hash")
	}
	if account.ExternalID == nil || *account.ExternalID != "ext-1" {
		t.Errorf("ExternalID = %v, want ext-1", account.ExternalID)
	}
	if view := core.Project(account); !view.IsOAuthUser {
		t.Error("projection should report IsOAuthUser=true")
	}
	if len(*events) != 1 || (*events)[0].Type != core.EventAccountCreated {
		t.Errorf("events = %+v, want single account.created", *events)
	}
}

// Requirement: linking an external identity to an email that signed up
// with a password preserves the credential and its flag; only the
// linkage changes. The account ID never changes.
func TestReconcilerService_OAuthAssertion_LinksExistingAccount(t *testing.T) {
	// Arrange
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.reconciler.PasswordSignup(ctx, "dave@example.com", "SecurePass123!")
	if err != nil {
		t.Fatalf("PasswordSignup() error = %v", err)
	}
	events := collectEvents(env.bus)

	// Act
	linked, isNew, err := env.reconciler.OAuthAssertion(ctx, core.ExternalIdentity{
		ExternalID: "ext-dave",
		Email:      "dave@example.com",
	})

	// Assert
	if err != nil {
		t.Fatalf("OAuthAssertion() error = %v", err)
	}
	if isNew {
		t.Error("OAuthAssertion() should attach, not create")
	}
	if linked.ID != created.ID {
		t.Errorf("account ID changed across linkage: %s != %s", linked.ID, created.ID)
	}
	if !linked.HasSetPassword {
		t.Error("linkage must not clear the operator-chosen flag")
	}
	if linked.PasswordHash != created.PasswordHash {
		t.Error("linkage must not touch the password hash")
	}
	if linked.ExternalID == nil || *linked.ExternalID != "ext-dave" {
		t.Errorf("ExternalID = %v, want ext-dave", linked.ExternalID)
	}
	if len(*events) != 1 || (*events)[0].Type != core.EventIdentityLinked {
		t.Errorf("events = %+v, want single account.identity_linked", *events)
	}

	// The linked account still signs in with its original password.
	if _, err := env.auth.SignIn(ctx, core.SignInInput{
		Email: "dave@example.com", Password: "SecurePass123!",
	}, "127.0.0.1", "test-agent"); err != nil {
		t.Errorf("SignIn() after linkage error = %v", err)
	}
}

// Requirement: repeated identical assertions are a no-op; a different
// external id for an already linked email is a conflict.
func TestReconcilerService_OAuthAssertion_RepeatAndConflict(t *testing.T) {
	// Arrange
	env := newTestEnv()
	ctx := context.Background()

	first, _, err := env.reconciler.OAuthAssertion(ctx, core.ExternalIdentity{
		ExternalID: "ext-1", Email: "erin@example.com",
	})
	if err != nil {
		t.Fatalf("OAuthAssertion() error = %v", err)
	}

	// Act: same identity again
	repeat, isNew, err := env.reconciler.OAuthAssertion(ctx, core.ExternalIdentity{
		ExternalID: "ext-1", Email: "erin@example.com",
	})

	// Assert
	if err != nil {
		t.Fatalf("repeat OAuthAssertion() error = %v", err)
	}
	if isNew {
		t.Error("repeat assertion must not create an account")
	}
	if repeat.ID != first.ID || repeat.Version != first.Version {
		t.Error("repeat assertion must leave the account unchanged")
	}

	// Act: different external id for the same email
	_, _, err = env.reconciler.OAuthAssertion(ctx, core.ExternalIdentity{
		ExternalID: "ext-2", Email: "erin@example.com",
	})

	// Assert
	if !errors.Is(err, core.ErrIdentityConflict) {
		t.Fatalf("OAuthAssertion() error = %v, want ErrIdentityConflict", err)
	}
}

// Requirement: missing assertion fields are rejected before touching
// storage.
func TestReconcilerService_OAuthAssertion_Validation(t *testing.T) {
	tests := []struct {
		name     string
		identity core.ExternalIdentity
		wantErr  error
	}{
		{
			name:     "missing external id",
			identity: core.ExternalIdentity{Email: "a@example.com"},
			wantErr:  core.ErrInvalidToken,
		},
		{
			name:     "missing email",
			identity: core.ExternalIdentity{ExternalID: "ext-1"},
			wantErr:  core.ErrEmailRequired,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnv()

			_, _, err := env.reconciler.OAuthAssertion(context.Background(), test.identity)

			if !errors.Is(err, test.wantErr) {
				t.Fatalf("OAuthAssertion() error = %v, want %v", err, test.wantErr)
			}
		})
	}
}
