package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidtube-auth/internal/domain"
)

var alice = domain.Identity{ID: 1, Username: "alice", Email: "a@x.com", Fullname: "Alice A"}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	m, err := NewManager(Config{
		AccessSecret:  []byte("access-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshSecret: []byte("refresh-secret"),
		RefreshTTL:    10 * 24 * time.Hour,
	}, WithClock(clock.Now))
	require.NoError(t, err)
	return m, clock
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(Config{AccessSecret: []byte("a"), RefreshSecret: []byte("b"), AccessTTL: time.Minute})
	require.Error(t, err)
	_, err = NewManager(Config{RefreshSecret: []byte("b"), AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.Error(t, err)
	_, err = NewManager(Config{AccessSecret: []byte("same"), RefreshSecret: []byte("same"), AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)

	tok, err := m.IssueAccessToken(alice)
	require.NoError(t, err)

	claims, err := m.VerifyAccess(tok)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.Identity())
	assert.NotEmpty(t, claims.ID)
}

func TestRefreshTokenCarriesOnlyID(t *testing.T) {
	m, _ := newTestManager(t)

	tok, err := m.IssueRefreshToken(alice)
	require.NoError(t, err)

	claims, err := m.VerifyRefresh(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
}

func TestExpiryBoundary(t *testing.T) {
	m, clock := newTestManager(t)
	start := clock.t

	tok, err := m.IssueAccessToken(alice)
	require.NoError(t, err)

	clock.t = start.Add(15*time.Minute - time.Second)
	_, err = m.VerifyAccess(tok)
	require.NoError(t, err)

	clock.t = start.Add(15 * time.Minute)
	_, err = m.VerifyAccess(tok)
	require.ErrorIs(t, err, domain.ErrExpiredToken)

	clock.t = start.Add(15*time.Minute + time.Second)
	_, err = m.VerifyAccess(tok)
	require.ErrorIs(t, err, domain.ErrExpiredToken)
}

func TestExpiryWithSubSecondIssueTime(t *testing.T) {
	m, clock := newTestManager(t)
	issued := clock.t.Add(900 * time.Millisecond)
	clock.t = issued

	tok, err := m.IssueAccessToken(alice)
	require.NoError(t, err)

	claims, err := m.VerifyAccess(tok)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	assert.Equal(t, issued.Truncate(time.Second).Add(time.Second), claims.IssuedAt.Time.UTC())

	clock.t = issued.Add(15*time.Minute - 500*time.Millisecond)
	_, err = m.VerifyAccess(tok)
	require.NoError(t, err)

	clock.t = issued.Add(15*time.Minute + time.Second)
	_, err = m.VerifyAccess(tok)
	require.ErrorIs(t, err, domain.ErrExpiredToken)
}

func TestTamperedSignatureIsInvalidNotExpired(t *testing.T) {
	m, clock := newTestManager(t)

	tok, err := m.IssueAccessToken(alice)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	forged := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = m.VerifyAccess(forged)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	// still a signature failure once the token is also past its expiry
	clock.Advance(time.Hour)
	_, err = m.VerifyAccess(forged)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.NotErrorIs(t, err, domain.ErrExpiredToken)
}

func TestSecretsAreNotInterchangeable(t *testing.T) {
	m, _ := newTestManager(t)

	access, err := m.IssueAccessToken(alice)
	require.NoError(t, err)
	refresh, err := m.IssueRefreshToken(alice)
	require.NoError(t, err)

	_, err = m.VerifyRefresh(access)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
	_, err = m.VerifyAccess(refresh)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestMalformedTokens(t *testing.T) {
	m, _ := newTestManager(t)
	for _, tok := range []string{"", "abc", "a.b.c", "a.b"} {
		_, err := m.VerifyAccess(tok)
		require.ErrorIs(t, err, domain.ErrInvalidSignature, tok)
	}
}

func TestTokensIssuedTogetherDiffer(t *testing.T) {
	m, _ := newTestManager(t)
	first, err := m.IssuePair(alice)
	require.NoError(t, err)
	second, err := m.IssuePair(alice)
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
}
