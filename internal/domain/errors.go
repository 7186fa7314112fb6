package domain

import "errors"

var (
	// ErrValidation marks malformed, user-correctable input.
	ErrValidation = errors.New("validation error")
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound indicates the user disappeared between steps.
	ErrNotFound = errors.New("user not found")
	// ErrExpiredToken is returned for a correctly signed token past its expiry.
	ErrExpiredToken = errors.New("token expired")
	// ErrInvalidSignature is returned for forged, tampered or malformed tokens.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrTokenReused is returned when a refresh token no longer matches the stored one.
	ErrTokenReused = errors.New("refresh token reused")
	// ErrStoreUnavailable wraps transient store faults.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUserAlreadyExists is returned when username or email is taken.
	ErrUserAlreadyExists = errors.New("user already exists")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrValidation, "validation"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrNotFound, "not_found"},
	{ErrExpiredToken, "expired_token"},
	{ErrInvalidSignature, "invalid_signature"},
	{ErrTokenReused, "token_reused"},
	{ErrStoreUnavailable, "store_unavailable"},
	{ErrUserAlreadyExists, "user_exists"},
}

// KindOf returns a stable label for err, suitable for log fields.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

// IsAuthFailure reports whether err should surface as an unauthorized outcome.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrTokenReused)
}
