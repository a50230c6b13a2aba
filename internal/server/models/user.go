package models

// User is the account document persisted by the users repository. The
// refresh-token collection is embedded in the document and is always read
// and written as a whole; only the session manager mutates it.
type User struct {
	ID              string
	Name            string
	Email           string
	EmailNormalized string
	PasswordHash    string
	RefreshTokens   []RefreshToken
}
