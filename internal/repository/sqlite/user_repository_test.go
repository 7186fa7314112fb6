package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidtube-auth/internal/domain"
	"vidtube-auth/internal/repository"
)

func newTestRepo(t *testing.T) *UserRepository {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(context.Background(), db, nil))
	return NewUserRepository(db)
}

func createAlice(t *testing.T, repo *UserRepository) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:     "alice",
		Email:        "a@x.com",
		Fullname:     "Alice A",
		Avatar:       "https://cdn/avatar.png",
		PasswordHash: "hash",
	}
	_, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	return u
}

func TestCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := createAlice(t, repo)
	require.NotZero(t, u.ID)

	byName, err := repo.FindByIdentifier(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.Equal(t, "hash", byName.PasswordHash)
	assert.Empty(t, byName.RefreshToken)

	byEmail, err := repo.FindByIdentifier(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice A", byID.Fullname)

	_, err = repo.FindByIdentifier(ctx, "bob")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetByID(ctx, 999)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateEnforcesUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	createAlice(t, repo)

	_, err := repo.Create(ctx, &domain.User{Username: "alice", Email: "other@x.com", Fullname: "A", PasswordHash: "h"})
	require.ErrorIs(t, err, repository.ErrAlreadyExists)

	_, err = repo.Create(ctx, &domain.User{Username: "other", Email: "a@x.com", Fullname: "A", PasswordHash: "h"})
	require.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestFindByIdentifierPrefersUsername(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	byEmail := &domain.User{Username: "carol", Email: "shared", Fullname: "C", PasswordHash: "h"}
	_, err := repo.Create(ctx, byEmail)
	require.NoError(t, err)
	byName := &domain.User{Username: "shared", Email: "d@x.com", Fullname: "D", PasswordHash: "h"}
	_, err = repo.Create(ctx, byName)
	require.NoError(t, err)

	for range 5 {
		got, err := repo.FindByIdentifier(ctx, "shared")
		require.NoError(t, err)
		assert.Equal(t, byName.ID, got.ID)
	}
}

func TestCompareAndSetRefreshToken(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := createAlice(t, repo)

	ok, err := repo.CompareAndSetRefreshToken(ctx, u.ID, "", "tok-a")
	require.NoError(t, err)
	assert.False(t, ok, "empty expected value never matches")

	require.NoError(t, repo.SetRefreshToken(ctx, u.ID, "tok-a"))

	ok, err = repo.CompareAndSetRefreshToken(ctx, u.ID, "stale", "tok-b")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.CompareAndSetRefreshToken(ctx, u.ID, "tok-a", "tok-b")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok-b", got.RefreshToken)

	require.NoError(t, repo.ClearRefreshToken(ctx, u.ID))
	require.NoError(t, repo.ClearRefreshToken(ctx, u.ID))
	ok, err = repo.CompareAndSetRefreshToken(ctx, u.ID, "tok-b", "tok-c")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompareAndSetSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := createAlice(t, repo)
	require.NoError(t, repo.SetRefreshToken(ctx, u.ID, "current"))

	const workers = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ok, err := repo.CompareAndSetRefreshToken(ctx, u.ID, "current", "next-"+string(rune('a'+i)))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	close(start)
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestUpdates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := createAlice(t, repo)

	updated, err := repo.UpdateAccount(ctx, u.ID, "Alice B", "alice@y.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", updated.Fullname)
	assert.Equal(t, "alice@y.com", updated.Email)

	require.NoError(t, repo.UpdateAvatar(ctx, u.ID, "https://cdn/new.png"))
	require.NoError(t, repo.UpdateCoverImage(ctx, u.ID, "https://cdn/cover.png"))
	require.NoError(t, repo.SetPasswordHash(ctx, u.ID, "new-hash"))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/new.png", got.Avatar)
	assert.Equal(t, "https://cdn/cover.png", got.CoverImage)
	assert.Equal(t, "new-hash", got.PasswordHash)

	require.ErrorIs(t, repo.UpdateAvatar(ctx, 404, "x"), repository.ErrNotFound)

	_, err = repo.Create(ctx, &domain.User{Username: "bob", Email: "b@x.com", Fullname: "Bob", PasswordHash: "h"})
	require.NoError(t, err)
	_, err = repo.UpdateAccount(ctx, u.ID, "Alice", "b@x.com")
	require.ErrorIs(t, err, repository.ErrAlreadyExists)
}
