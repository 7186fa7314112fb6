package repository

import (
	"context"
	"errors"

	"vidtube-auth/internal/domain"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrAlreadyExists is returned when a username or email is already taken.
	ErrAlreadyExists = errors.New("user already exists")
)

// UserRepository defines persistence operations for User entities.
// Username and email are unique.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (int64, error)
	// FindByIdentifier matches username or email; a username match wins.
	FindByIdentifier(ctx context.Context, usernameOrEmail string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	UpdateAccount(ctx context.Context, id int64, fullname, email string) (*domain.User, error)
	UpdateAvatar(ctx context.Context, id int64, url string) error
	UpdateCoverImage(ctx context.Context, id int64, url string) error
}

// SessionStore holds the single live refresh token of each user.
type SessionStore interface {
	// SetRefreshToken replaces whatever token is stored for the user.
	SetRefreshToken(ctx context.Context, userID int64, token string) error
	// CompareAndSetRefreshToken stores next only if the current value equals
	// expected, as one atomic step. It reports whether the swap happened.
	CompareAndSetRefreshToken(ctx context.Context, userID int64, expected, next string) (bool, error)
	// ClearRefreshToken removes the stored token. Clearing twice is not an error.
	ClearRefreshToken(ctx context.Context, userID int64) error
}
