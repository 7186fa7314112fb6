package domain

import "time"

// User represents a registered account as stored in the user record store.
type User struct {
	ID           int64
	Username     string
	Email        string
	Fullname     string
	Avatar       string
	CoverImage   string
	PasswordHash string
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the set of claims embedded in an access token.
type Identity struct {
	ID       int64
	Username string
	Email    string
	Fullname string
}

// Identity returns the token claims view of the user.
func (u *User) Identity() Identity {
	return Identity{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Fullname: u.Fullname,
	}
}

// Sanitized returns a copy without the password hash and refresh token.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	out.RefreshToken = ""
	return &out
}

// Credentials are the login inputs. They are never persisted.
type Credentials struct {
	Identifier string
	Password   string
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
