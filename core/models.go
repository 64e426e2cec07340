package core

import "time"

// Account is the durable identity record, keyed by email.
//
// An account is created exactly once per email, either by password
// sign-up or by the first OAuth assertion for an unseen address. The ID
// never changes afterwards; billing, sessions and everything else key
// off it.
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`

	// PasswordHash is always present. Accounts created via OAuth get a
	// hashed random secret so downstream code never has to deal with a
	// missing credential.
	PasswordHash string `json:"-"`

	// ExternalID references the linked third-party identity, nil until
	// an OAuth assertion links this email.
	ExternalID *string `json:"-"`

	// HasSetPassword is true iff the current PasswordHash was chosen by
	// the account holder (sign-up, set-password or reset-password). It
	// is the single source of truth for password-change eligibility and
	// is never derived from ExternalID.
	HasSetPassword bool `json:"-"`

	// Version guards storage updates. Every successful update bumps it;
	// a stale version fails with ErrVersionConflict.
	Version int64 `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ResetToken is a single-use, time-limited grant to reset an account's
// password. Only the sha256 hash of the raw token is stored.
type ResetToken struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session represents an active login session.
type Session struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	TokenHash string    `json:"-"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionData combines the account view and session info.
// The model returned to clients.
type SessionData struct {
	Account *AccountView `json:"account"`
	Session *Session     `json:"session"`
}

// ExternalIdentity is a third-party-verified assertion of account
// ownership: "this external id owns this email". How the assertion was
// verified (Google, Firebase, ...) is the verifier's business.
type ExternalIdentity struct {
	ExternalID string `json:"externalId"`
	Email      string `json:"email"`
}
