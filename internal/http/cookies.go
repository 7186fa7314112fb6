package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vidtube-auth/internal/domain"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

func (h *Handler) setAuthCookies(c *gin.Context, pair domain.TokenPair) {
	h.setCookie(c, AccessTokenCookie, pair.AccessToken, h.opts.AccessTTL)
	h.setCookie(c, RefreshTokenCookie, pair.RefreshToken, h.opts.RefreshTTL)
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	h.setCookie(c, AccessTokenCookie, "", -1)
	h.setCookie(c, RefreshTokenCookie, "", -1)
}

func (h *Handler) setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	maxAge := -1
	if ttl > 0 {
		maxAge = int(ttl.Seconds())
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
