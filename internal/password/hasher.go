package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"vidtube-auth/internal/domain"
)

// MinCost is the lowest bcrypt work factor accepted for stored passwords.
const MinCost = 10

// Hasher produces and checks salted bcrypt hashes. At most maxConcurrent
// hash or verify operations run at once; the rest wait on the semaphore
// (or give up when their context ends).
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

func NewHasher(cost, maxConcurrent int) (*Hasher, error) {
	if cost < MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("password hash cost must be between %d and %d", MinCost, bcrypt.MaxCost)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.NumCPU()
	}
	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(maxConcurrent)),
	}, nil
}

// Hash returns the bcrypt encoding of plaintext. The encoding carries the
// cost and the random salt, so the same input hashes differently each call.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for hash worker: %w", err)
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password is too long", domain.ErrValidation)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. A mismatch or a malformed
// hash is (false, nil); an error means no comparison was made.
func (h *Hasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("wait for hash worker: %w", err)
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil, nil
}
