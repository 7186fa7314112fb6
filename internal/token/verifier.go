package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vidtube-auth/internal/domain"
)

// VerifyAccess checks an access token and returns its claims.
func (m *Manager) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := Verify(tokenString, m.cfg.AccessSecret, claims, m.now); err != nil {
		return nil, err
	}
	if claims.UserID <= 0 || claims.Username == "" {
		return nil, fmt.Errorf("%w: malformed access claims", domain.ErrInvalidSignature)
	}
	return claims, nil
}

// VerifyRefresh checks a refresh token and returns its claims.
func (m *Manager) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := Verify(tokenString, m.cfg.RefreshSecret, claims, m.now); err != nil {
		return nil, err
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: malformed refresh claims", domain.ErrInvalidSignature)
	}
	return claims, nil
}

// Verify parses tokenString into claims. The HMAC signature is checked
// before any claim is looked at; a token is expired once now >= exp.
// Failures are domain.ErrExpiredToken or domain.ErrInvalidSignature.
func Verify(tokenString string, secret []byte, claims jwt.Claims, now func() time.Time) error {
	if tokenString == "" {
		return fmt.Errorf("%w: empty token", domain.ErrInvalidSignature)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %v", domain.ErrExpiredToken, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	if !token.Valid {
		return domain.ErrInvalidSignature
	}
	return nil
}
