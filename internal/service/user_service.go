package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vidtube-auth/internal/domain"
	"vidtube-auth/internal/repository"
	"vidtube-auth/internal/storage"
)

// UserService describes profile operations on an authenticated user.
type UserService interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateAccount(ctx context.Context, id int64, fullname, email string) (*domain.User, error)
	UpdateAvatar(ctx context.Context, id int64, localPath string) (*domain.User, error)
	UpdateCoverImage(ctx context.Context, id int64, localPath string) (*domain.User, error)
}

type userService struct {
	users        repository.UserRepository
	blobs        storage.Service
	storeTimeout time.Duration
}

func NewUserService(users repository.UserRepository, blobs storage.Service, storeTimeout time.Duration) UserService {
	return &userService{
		users:        users,
		blobs:        blobs,
		storeTimeout: storeTimeout,
	}
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var user *domain.User
	err := storeCall(ctx, s.storeTimeout, "load user", func(ctx context.Context) (err error) {
		user, err = s.users.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

func (s *userService) UpdateAccount(ctx context.Context, id int64, fullname, email string) (*domain.User, error) {
	fullname = strings.TrimSpace(fullname)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullname == "" || email == "" {
		return nil, fmt.Errorf("%w: all fields are required", domain.ErrValidation)
	}

	// login resolves an identifier against both columns, so the new email
	// must not name any other account by username or email
	var owner *domain.User
	err := storeCall(ctx, s.storeTimeout, "check email owner", func(ctx context.Context) (err error) {
		owner, err = s.users.FindByIdentifier(ctx, email)
		return err
	})
	switch {
	case err == nil && owner.ID != id:
		return nil, domain.ErrUserAlreadyExists
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	var user *domain.User
	err = storeCall(ctx, s.storeTimeout, "update account", func(ctx context.Context) (err error) {
		user, err = s.users.UpdateAccount(ctx, id, fullname, email)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

func (s *userService) UpdateAvatar(ctx context.Context, id int64, localPath string) (*domain.User, error) {
	return s.replaceImage(ctx, id, localPath, "avatar", s.users.UpdateAvatar)
}

func (s *userService) UpdateCoverImage(ctx context.Context, id int64, localPath string) (*domain.User, error) {
	return s.replaceImage(ctx, id, localPath, "cover image", s.users.UpdateCoverImage)
}

func (s *userService) replaceImage(
	ctx context.Context,
	id int64,
	localPath, what string,
	save func(ctx context.Context, id int64, url string) error,
) (*domain.User, error) {
	if strings.TrimSpace(localPath) == "" {
		return nil, fmt.Errorf("%w: %s file is missing", domain.ErrValidation, what)
	}

	obj, err := s.blobs.Upload(ctx, localPath)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w: %w", what, domain.ErrStoreUnavailable, err)
	}
	if obj.URL == "" {
		return nil, fmt.Errorf("upload %s: %w: empty url", what, domain.ErrStoreUnavailable)
	}

	err = storeCall(ctx, s.storeTimeout, "save "+what, func(ctx context.Context) error {
		return save(ctx, id, obj.URL)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}
