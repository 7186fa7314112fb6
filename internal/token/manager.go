// Package token issues and verifies the HMAC-signed access and refresh
// tokens used for authenticated sessions.
package token

import (
	"bytes"
	"errors"
	"time"
)

// Config holds the signing material and lifetimes. It is built once at
// startup and never mutated.
type Config struct {
	AccessSecret  []byte
	AccessTTL     time.Duration
	RefreshSecret []byte
	RefreshTTL    time.Duration
}

// Manager is both the issuer and the verifier. It holds no mutable state
// and is safe for concurrent use.
type Manager struct {
	cfg Config
	now func() time.Time
}

type Option func(*Manager)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access token secret is required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh token secret is required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh token secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token expiry must be positive")
	}

	m := &Manager{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) AccessTTL() time.Duration  { return m.cfg.AccessTTL }
func (m *Manager) RefreshTTL() time.Duration { return m.cfg.RefreshTTL }
