package core

import "time"

// AccountView is the client-visible shape of an Account. The password
// hash and linkage internals never leave the core; IsOAuthUser is the
// only derived field consumers get.
type AccountView struct {
	ID    string `json:"id"`
	Email string `json:"email"`

	// IsOAuthUser tells the UI which affordance to render: "set
	// password" when true, "change password" when false. Consumers must
	// branch on this flag alone, never on linked-identity presence.
	IsOAuthUser bool `json:"isOAuthUser"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Project derives the client-visible view of an account. Invoked after
// retrieval, deliberately decoupled from any (de)serialization.
func Project(a *Account) *AccountView {
	if a == nil {
		return nil
	}
	return &AccountView{
		ID:          a.ID,
		Email:       a.Email,
		IsOAuthUser: !a.HasSetPassword,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
