package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vidtube-auth/internal/domain"
	"vidtube-auth/internal/repository"
)

const userColumns = `id, username, email, fullname, avatar, cover_image, password_hash, refresh_token, created_at, updated_at`

// UserRepository stores users, and their current refresh token, in sqlite.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

var (
	_ repository.UserRepository = (*UserRepository)(nil)
	_ repository.SessionStore   = (*UserRepository)(nil)
)

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (username, email, fullname, avatar, cover_image, password_hash, refresh_token, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, '', ?, ?)`,
		user.Username,
		user.Email,
		user.Fullname,
		user.Avatar,
		user.CoverImage,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %v", repository.ErrAlreadyExists, err)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id
	user.RefreshToken = ""
	return id, nil
}

func (r *UserRepository) FindByIdentifier(ctx context.Context, usernameOrEmail string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE username = ? OR email = ?
ORDER BY CASE WHEN username = ? THEN 0 ELSE 1 END, id
LIMIT 1`,
		usernameOrEmail,
		usernameOrEmail,
		usernameOrEmail,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (r *UserRepository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	return r.update(ctx, "set password", `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), id)
}

func (r *UserRepository) UpdateAccount(ctx context.Context, id int64, fullname, email string) (*domain.User, error) {
	err := r.update(ctx, "update account", `UPDATE users SET fullname = ?, email = ?, updated_at = ? WHERE id = ?`,
		fullname, email, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id int64, url string) error {
	return r.update(ctx, "update avatar", `UPDATE users SET avatar = ?, updated_at = ? WHERE id = ?`,
		url, time.Now().UTC(), id)
}

func (r *UserRepository) UpdateCoverImage(ctx context.Context, id int64, url string) error {
	return r.update(ctx, "update cover image", `UPDATE users SET cover_image = ?, updated_at = ? WHERE id = ?`,
		url, time.Now().UTC(), id)
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, userID int64, token string) error {
	return r.update(ctx, "set refresh token", `UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ?`,
		token, time.Now().UTC(), userID)
}

// CompareAndSetRefreshToken is a single conditional UPDATE, so concurrent
// callers presenting the same expected value cannot both win.
func (r *UserRepository) CompareAndSetRefreshToken(ctx context.Context, userID int64, expected, next string) (bool, error) {
	if expected == "" {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE users SET refresh_token = ?, updated_at = ?
WHERE id = ? AND refresh_token = ?`,
		next, time.Now().UTC(), userID, expected,
	)
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap refresh token rows: %w", err)
	}
	return n == 1, nil
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, userID int64) error {
	return r.update(ctx, "clear refresh token", `UPDATE users SET refresh_token = '', updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID)
}

func (r *UserRepository) update(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", repository.ErrAlreadyExists, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Fullname,
		&user.Avatar,
		&user.CoverImage,
		&user.PasswordHash,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
