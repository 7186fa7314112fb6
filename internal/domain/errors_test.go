package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, "", KindOf(nil))
	assert.Equal(t, "token_reused", KindOf(fmt.Errorf("%w: stale", ErrTokenReused)))
	assert.Equal(t, "store_unavailable", KindOf(fmt.Errorf("lookup: %w", ErrStoreUnavailable)))
	assert.Equal(t, "internal", KindOf(errors.New("boom")))
}

func TestIsAuthFailure(t *testing.T) {
	assert.True(t, IsAuthFailure(ErrExpiredToken))
	assert.True(t, IsAuthFailure(fmt.Errorf("%w: x", ErrInvalidSignature)))
	assert.False(t, IsAuthFailure(ErrStoreUnavailable))
	assert.False(t, IsAuthFailure(ErrValidation))
}

func TestSanitizedDropsSecrets(t *testing.T) {
	u := &User{ID: 7, Username: "alice", PasswordHash: "h", RefreshToken: "r"}
	s := u.Sanitized()
	assert.Empty(t, s.PasswordHash)
	assert.Empty(t, s.RefreshToken)
	assert.Equal(t, "h", u.PasswordHash)
	assert.Equal(t, Identity{ID: 7, Username: "alice"}, s.Identity())
}
