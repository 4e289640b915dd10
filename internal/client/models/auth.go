package models

// AuthenticatedUser is the operator profile attached to a session after login.
type AuthenticatedUser struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// TokenPair holds the credentials minted by the token endpoint.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// LoginResponse is the body of a successful POST /api/token/.
type LoginResponse struct {
	TokenPair
	User *AuthenticatedUser `json:"user"`
}

// LoginResult is what the auth service reports back to the console.
type LoginResult struct {
	Success bool
	Error   string
}

// ProfileFromUser builds an AuthenticatedUser from a directory record.
func ProfileFromUser(u User) *AuthenticatedUser {
	return &AuthenticatedUser{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}
