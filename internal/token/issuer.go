package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"vidtube-auth/internal/domain"
)

// AccessClaims is the full identity claim set carried by access tokens.
type AccessClaims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
	jwt.RegisteredClaims
}

// RefreshClaims only names the user; everything else is reloaded from the store.
type RefreshClaims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) Identity() domain.Identity {
	return domain.Identity{
		ID:       c.UserID,
		Username: c.Username,
		Email:    c.Email,
		Fullname: c.Fullname,
	}
}

// IssueAccessToken signs the identity with the access secret.
func (m *Manager) IssueAccessToken(id domain.Identity) (string, error) {
	claims := AccessClaims{
		UserID:           id.ID,
		Username:         id.Username,
		Email:            id.Email,
		Fullname:         id.Fullname,
		RegisteredClaims: m.registered(m.cfg.AccessTTL),
	}
	return sign(claims, m.cfg.AccessSecret)
}

// IssueRefreshToken signs the user id with the refresh secret.
func (m *Manager) IssueRefreshToken(id domain.Identity) (string, error) {
	claims := RefreshClaims{
		UserID:           id.ID,
		RegisteredClaims: m.registered(m.cfg.RefreshTTL),
	}
	return sign(claims, m.cfg.RefreshSecret)
}

// IssuePair issues a fresh access and refresh token for id.
func (m *Manager) IssuePair(id domain.Identity) (domain.TokenPair, error) {
	access, err := m.IssueAccessToken(id)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := m.IssueRefreshToken(id)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// registered stamps iat and exp on whole seconds with exp == iat + ttl.
// The issue instant is rounded up, so a token never lapses before a full
// ttl has passed since it was issued.
func (m *Manager) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := m.now()
	if whole := now.Truncate(time.Second); !whole.Equal(now) {
		now = whole.Add(time.Second)
	}
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func sign(claims jwt.Claims, secret []byte) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
