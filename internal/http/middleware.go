package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vidtube-auth/internal/domain"
	"vidtube-auth/internal/service"
)

type ctxKey struct{}

const userKey = "auth.user"

var errMissingToken = errors.New("missing access token")

// WithUser attaches an authenticated user to ctx.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFromContext returns the user attached by RequireAuth, if any.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(*domain.User)
	return user, ok && user != nil
}

// CurrentUser returns the user attached to a gin request by RequireAuth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

// RequireAuth verifies the access token from the accessToken cookie or the
// Authorization bearer header, reloads the user and attaches it to the
// request. Any failure aborts the chain.
func RequireAuth(auth service.AuthService, h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := accessTokenFromRequest(c)
		if tok == "" {
			h.abort(c, http.StatusUnauthorized, "unauthorized request", errMissingToken)
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), tok)
		if err != nil {
			status, msg := statusFor(err)
			if status == http.StatusUnauthorized && !errors.Is(err, domain.ErrExpiredToken) {
				msg = "unauthorized request"
			}
			h.abort(c, status, msg, err)
			return
		}

		c.Set(userKey, user)
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), user))
		c.Next()
	}
}

func accessTokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
