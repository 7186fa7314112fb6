package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"vidtube-auth/internal/domain"
	"vidtube-auth/internal/password"
	"vidtube-auth/internal/repository"
	"vidtube-auth/internal/storage"
	"vidtube-auth/internal/token"
)

// RegisterInput carries the registration form. Image paths point at
// temporary local files.
type RegisterInput struct {
	Username       string
	Email          string
	Fullname       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// LoginResult is returned on successful login.
type LoginResult struct {
	User   *domain.User
	Tokens domain.TokenPair
}

// AuthService describes the session lifecycle: Anonymous -> Authenticated
// via Login, Authenticated -> Authenticated via Refresh, back to Anonymous
// via Logout.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, creds domain.Credentials) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error)
	Logout(ctx context.Context, userID int64) error
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword, confirmPassword string) error
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
}

type AuthDeps struct {
	Users        repository.UserRepository
	Sessions     repository.SessionStore
	Hasher       *password.Hasher
	Tokens       *token.Manager
	Blobs        storage.Service
	StoreTimeout time.Duration
	Logger       logrus.FieldLogger
}

type authService struct {
	AuthDeps

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(deps AuthDeps) AuthService {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	return &authService{AuthDeps: deps}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Fullname = strings.TrimSpace(in.Fullname)

	if in.Username == "" || in.Email == "" || in.Fullname == "" || strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("%w: all fields are required", domain.ErrValidation)
	}
	if strings.Contains(in.Username, "@") {
		return nil, fmt.Errorf("%w: username must not contain '@'", domain.ErrValidation)
	}
	if strings.TrimSpace(in.AvatarPath) == "" {
		return nil, fmt.Errorf("%w: avatar file is required", domain.ErrValidation)
	}

	for _, ident := range []string{in.Username, in.Email} {
		err := storeCall(ctx, s.StoreTimeout, "check existing user", func(ctx context.Context) error {
			_, err := s.Users.FindByIdentifier(ctx, ident)
			return err
		})
		switch {
		case err == nil:
			return nil, domain.ErrUserAlreadyExists
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	hash, err := s.Hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	var avatar, cover storage.Object
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		avatar, err = s.Blobs.Upload(gctx, in.AvatarPath)
		if err != nil {
			return fmt.Errorf("upload avatar: %w: %w", domain.ErrStoreUnavailable, err)
		}
		return nil
	})
	if in.CoverImagePath != "" {
		g.Go(func() error {
			var err error
			cover, err = s.Blobs.Upload(gctx, in.CoverImagePath)
			if err != nil {
				return fmt.Errorf("upload cover image: %w: %w", domain.ErrStoreUnavailable, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.discardBlobs(avatar, cover)
		return nil, err
	}

	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		Fullname:     in.Fullname,
		Avatar:       avatar.URL,
		CoverImage:   cover.URL,
		PasswordHash: hash,
	}
	err = storeCall(ctx, s.StoreTimeout, "create user", func(ctx context.Context) error {
		_, err := s.Users.Create(ctx, user)
		return err
	})
	if err != nil {
		s.discardBlobs(avatar, cover)
		return nil, err
	}

	return user.Sanitized(), nil
}

func (s *authService) Login(ctx context.Context, creds domain.Credentials) (*LoginResult, error) {
	identifier := strings.ToLower(strings.TrimSpace(creds.Identifier))
	if identifier == "" {
		return nil, fmt.Errorf("%w: username or email is required", domain.ErrValidation)
	}
	if creds.Password == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrValidation)
	}

	var user *domain.User
	err := storeCall(ctx, s.StoreTimeout, "find user", func(ctx context.Context) (err error) {
		user, err = s.Users.FindByIdentifier(ctx, identifier)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// spend the same hashing time as a real check
			_, _ = s.Hasher.Verify(ctx, creds.Password, s.timingHash(ctx))
		}
		return nil, err
	}

	ok, err := s.Hasher.Verify(ctx, creds.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	pair, err := s.Tokens.IssuePair(user.Identity())
	if err != nil {
		return nil, err
	}
	err = storeCall(ctx, s.StoreTimeout, "store refresh token", func(ctx context.Context) error {
		return s.Sessions.SetRefreshToken(ctx, user.ID, pair.RefreshToken)
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: user.Sanitized(), Tokens: pair}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	claims, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	var user *domain.User
	err = storeCall(ctx, s.StoreTimeout, "load user", func(ctx context.Context) (err error) {
		user, err = s.Users.GetByID(ctx, claims.UserID)
		return err
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	pair, err := s.Tokens.IssuePair(user.Identity())
	if err != nil {
		return domain.TokenPair{}, err
	}

	var swapped bool
	err = storeCall(ctx, s.StoreTimeout, "rotate refresh token", func(ctx context.Context) (err error) {
		swapped, err = s.Sessions.CompareAndSetRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken)
		return err
	})
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !swapped {
		s.Logger.WithField("user_id", user.ID).Warn("refresh token does not match the stored session")
		return domain.TokenPair{}, domain.ErrTokenReused
	}

	return pair, nil
}

func (s *authService) Logout(ctx context.Context, userID int64) error {
	return storeCall(ctx, s.StoreTimeout, "clear refresh token", func(ctx context.Context) error {
		return s.Sessions.ClearRefreshToken(ctx, userID)
	})
}

func (s *authService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword, confirmPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: old and new password are required", domain.ErrValidation)
	}
	if newPassword != confirmPassword {
		return fmt.Errorf("%w: password confirmation does not match", domain.ErrValidation)
	}
	if newPassword == oldPassword {
		return fmt.Errorf("%w: new password must differ from the old one", domain.ErrValidation)
	}

	var user *domain.User
	err := storeCall(ctx, s.StoreTimeout, "load user", func(ctx context.Context) (err error) {
		user, err = s.Users.GetByID(ctx, userID)
		return err
	})
	if err != nil {
		return err
	}

	ok, err := s.Hasher.Verify(ctx, oldPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}

	hash, err := s.Hasher.Hash(ctx, newPassword)
	if err != nil {
		return err
	}
	return storeCall(ctx, s.StoreTimeout, "store password", func(ctx context.Context) error {
		return s.Users.SetPasswordHash(ctx, userID, hash)
	})
}

// Authenticate checks an access token and reloads the user it names, so a
// deleted account is refused even while its token is unexpired.
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.Tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	err = storeCall(ctx, s.StoreTimeout, "load user", func(ctx context.Context) (err error) {
		user, err = s.Users.GetByID(ctx, claims.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

func (s *authService) timingHash(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash(context.WithoutCancel(ctx), "timing-equaliser")
	})
	return s.dummyHash
}

func (s *authService) discardBlobs(objs ...storage.Object) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, obj := range objs {
		if obj.Key == "" {
			continue
		}
		if err := s.Blobs.Delete(ctx, obj.Key); err != nil {
			s.Logger.WithError(err).WithField("key", obj.Key).Warn("remove orphaned upload")
		}
	}
}
