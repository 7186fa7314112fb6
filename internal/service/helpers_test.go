package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"vidtube-auth/internal/password"
	"vidtube-auth/internal/repository"
	"vidtube-auth/internal/repository/sqlite"
	"vidtube-auth/internal/storage"
	"vidtube-auth/internal/token"
)

type fakeBlobs struct {
	mu      sync.Mutex
	fail    error
	uploads []string
	deleted []string
}

func (f *fakeBlobs) Upload(_ context.Context, localPath string) (storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return storage.Object{}, f.fail
	}
	f.uploads = append(f.uploads, localPath)
	key := "uploads/" + filepath.Base(localPath)
	return storage.Object{Key: key, URL: "https://cdn.example.com/" + key}, nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

type failingSessions struct{}

func (failingSessions) SetRefreshToken(context.Context, int64, string) error {
	return errors.New("connection refused")
}
func (failingSessions) CompareAndSetRefreshToken(context.Context, int64, string, string) (bool, error) {
	return false, errors.New("connection refused")
}
func (failingSessions) ClearRefreshToken(context.Context, int64) error {
	return errors.New("connection refused")
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	auth   AuthService
	users  UserService
	repo   *sqlite.UserRepository
	blobs  *fakeBlobs
	tokens *token.Manager
	clock  *clock
	logs   *test.Hook
}

// newFixture wires the services over a temp sqlite database. sessions
// defaults to the same sqlite repository.
func newFixture(t *testing.T, sessions repository.SessionStore) *fixture {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(context.Background(), db, nil))
	repo := sqlite.NewUserRepository(db)
	if sessions == nil {
		sessions = repo
	}

	hasher, err := password.NewHasher(password.MinCost, 4)
	require.NoError(t, err)

	clk := &clock{t: time.Now().Truncate(time.Second)}
	tokens, err := token.NewManager(token.Config{
		AccessSecret:  []byte("access-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshSecret: []byte("refresh-secret"),
		RefreshTTL:    10 * 24 * time.Hour,
	}, token.WithClock(clk.Now))
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	blobs := &fakeBlobs{}
	return &fixture{
		auth: NewAuthService(AuthDeps{
			Users:        repo,
			Sessions:     sessions,
			Hasher:       hasher,
			Tokens:       tokens,
			Blobs:        blobs,
			StoreTimeout: time.Second,
			Logger:       logger,
		}),
		users:  NewUserService(repo, blobs, time.Second),
		repo:   repo,
		blobs:  blobs,
		tokens: tokens,
		clock:  clk,
		logs:   hook,
	}
}

func (f *fixture) registerAlice(t *testing.T) {
	t.Helper()
	_, err := f.auth.Register(context.Background(), RegisterInput{
		Username:   "alice",
		Email:      "a@x.com",
		Fullname:   "Alice A",
		Password:   "Secr3t!",
		AvatarPath: "/tmp/avatar.png",
	})
	require.NoError(t, err)
}
