package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"vidtube-auth/internal/domain"
	"vidtube-auth/internal/service"
)

// Options tune cookie issuing and multipart handling.
type Options struct {
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	CookieSecure bool
	// UploadDir receives multipart files before they go to the blob store.
	UploadDir string
	Logger    logrus.FieldLogger
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth   service.AuthService
	users  service.UserService
	opts   Options
	logger logrus.FieldLogger
}

func NewHandler(auth service.AuthService, users service.UserService, opts Options) *Handler {
	if opts.UploadDir == "" {
		opts.UploadDir = os.TempDir()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Handler{
		auth:   auth,
		users:  users,
		opts:   opts,
		logger: opts.Logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		users := api.Group("/v1/users")
		users.POST("/register", h.register)
		users.POST("/login", h.login)
		users.POST("/refresh-token", h.refreshToken)

		secured := users.Group("")
		secured.Use(RequireAuth(h.auth, h))
		secured.POST("/logout", h.logout)
		secured.POST("/change-password", h.changePassword)
		secured.GET("/current-user", h.currentUser)
		secured.PATCH("/update-account", h.updateAccount)
		secured.PATCH("/avatar", h.updateAvatar)
		secured.PATCH("/cover-image", h.updateCoverImage)
	}
}

type UserResponse struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Fullname   string `json:"fullname"`
	Avatar     string `json:"avatar"`
	CoverImage string `json:"cover_image"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type LoginResponse struct {
	User UserResponse `json:"user"`
	TokenResponse
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Fullname:   u.Fullname,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  u.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) register(c *gin.Context) {
	avatar, err := h.saveUpload(c, "avatar")
	if err != nil {
		h.fail(c, err)
		return
	}
	defer removeIfSet(avatar)
	cover, err := h.saveUpload(c, "coverImage")
	if err != nil {
		h.fail(c, err)
		return
	}
	defer removeIfSet(cover)

	user, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Username:       c.PostForm("username"),
		Email:          c.PostForm("email"),
		Fullname:       c.PostForm("fullname"),
		Password:       c.PostForm("password"),
		AvatarPath:     avatar,
		CoverImagePath: cover,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logger.WithField("user_id", user.ID).Info("user registered")
	c.JSON(http.StatusCreated, userToResponse(user))
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	identifier := req.Username
	if strings.TrimSpace(identifier) == "" {
		identifier = req.Email
	}
	res, err := h.auth.Login(c.Request.Context(), domain.Credentials{
		Identifier: identifier,
		Password:   req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setAuthCookies(c, res.Tokens)
	c.JSON(http.StatusOK, LoginResponse{
		User: userToResponse(res.User),
		TokenResponse: TokenResponse{
			AccessToken:  res.Tokens.AccessToken,
			RefreshToken: res.Tokens.RefreshToken,
		},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) refreshToken(c *gin.Context) {
	presented, _ := c.Cookie(RefreshTokenCookie)
	if presented == "" {
		var req refreshRequest
		// an empty body is a missing token, not a malformed request
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			h.fail(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
			return
		}
		presented = strings.TrimSpace(req.RefreshToken)
	}

	pair, err := h.auth.Refresh(c.Request.Context(), presented)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) logout(c *gin.Context) {
	user, _ := CurrentUser(c)
	if err := h.auth.Logout(c.Request.Context(), user.ID); err != nil {
		h.fail(c, err)
		return
	}

	h.clearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

type changePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	user, _ := CurrentUser(c)
	err := h.auth.ChangePassword(c.Request.Context(), user.ID, req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

func (h *Handler) currentUser(c *gin.Context) {
	user, _ := CurrentUser(c)
	c.JSON(http.StatusOK, userToResponse(user))
}

type updateAccountRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

func (h *Handler) updateAccount(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	user, _ := CurrentUser(c)
	updated, err := h.users.UpdateAccount(c.Request.Context(), user.ID, req.Fullname, req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(updated))
}

func (h *Handler) updateAvatar(c *gin.Context) {
	h.updateImage(c, "avatar", h.users.UpdateAvatar)
}

func (h *Handler) updateCoverImage(c *gin.Context) {
	h.updateImage(c, "coverImage", h.users.UpdateCoverImage)
}

func (h *Handler) updateImage(c *gin.Context, field string, update func(context.Context, int64, string) (*domain.User, error)) {
	path, err := h.saveUpload(c, field)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer removeIfSet(path)

	user, _ := CurrentUser(c)
	updated, err := update(c.Request.Context(), user.ID, path)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(updated))
}

// saveUpload stores the multipart file named field under UploadDir and
// returns its path, or "" when the request carries no such file.
func (h *Handler) saveUpload(c *gin.Context, field string) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", fmt.Errorf("%w: read %s: %v", domain.ErrValidation, field, err)
	}

	dst := filepath.Join(h.opts.UploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return "", fmt.Errorf("save upload %s: %w", field, err)
	}
	return dst, nil
}

func removeIfSet(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}
