package core

// SignUpInput contains the data needed to register a new account
type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInInput contains the credentials for authentication
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult contains the authenticated account and its session
type AuthResult struct {
	Account *AccountView `json:"account"`
	Session *Session     `json:"session"`
	Token   string       `json:"token"` // The raw token (not the hash)
}

// OAuthResult is an AuthResult plus whether the assertion created a new
// account (first OAuth sign-in for an unseen email).
type OAuthResult struct {
	Account   *AccountView `json:"account"`
	Session   *Session     `json:"session"`
	Token     string       `json:"token"`
	IsNewUser bool         `json:"isNewUser"`
}
