// Package redis keeps the per-user refresh token in Redis instead of on
// the user row.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"vidtube-auth/internal/repository"
)

const swapScript = `
local current = redis.call("GET", KEYS[1])
if not current or current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

var swapLua = redis.NewScript(swapScript)

// SessionStore maps user id to refresh token. Keys expire together with
// the token they hold.
type SessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, prefix string, ttl time.Duration) *SessionStore {
	if prefix == "" {
		prefix = "vidtube"
	}
	return &SessionStore{client: client, prefix: prefix, ttl: ttl}
}

var _ repository.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) key(userID int64) string {
	return s.prefix + ":refresh:" + strconv.FormatInt(userID, 10)
}

func (s *SessionStore) SetRefreshToken(ctx context.Context, userID int64, token string) error {
	if err := s.client.Set(ctx, s.key(userID), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return nil
}

func (s *SessionStore) CompareAndSetRefreshToken(ctx context.Context, userID int64, expected, next string) (bool, error) {
	if expected == "" {
		return false, nil
	}
	res, err := swapLua.Run(ctx, s.client, []string{s.key(userID)}, expected, next, s.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	return res == 1, nil
}

func (s *SessionStore) ClearRefreshToken(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}
