package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vidtube-auth/internal/domain"
	"vidtube-auth/internal/repository"
)

const defaultStoreTimeout = 5 * time.Second

// storeCall runs fn under the store deadline and maps repository errors
// onto domain kinds. Anything unrecognised is treated as a transient fault.
func storeCall(ctx context.Context, timeout time.Duration, op string, fn func(context.Context) error) error {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case errors.Is(err, repository.ErrAlreadyExists):
		return fmt.Errorf("%s: %w", op, domain.ErrUserAlreadyExists)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
}
