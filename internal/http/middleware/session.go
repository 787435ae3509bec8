package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jmehdipour/salon-campaigns/internal/auth"
	echo "github.com/labstack/echo/v4"
)

const (
	ctxTenantID = "tenant_id"
	ctxSession  = "session"
)

// TenantIDFromCtx extracts the authenticated tenant set by SessionMiddleware.
func TenantIDFromCtx(c echo.Context) (string, bool) {
	id, ok := c.Get(ctxTenantID).(string)
	return id, ok && id != ""
}

func SessionFromCtx(c echo.Context) (auth.Session, bool) {
	s, ok := c.Get(ctxSession).(auth.Session)
	return s, ok
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(c echo.Context) string {
	h := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// SessionMiddleware authenticates requests with a bearer session token.
// On success it stores the session and its tenant id in context.
func SessionMiddleware(provider auth.Provider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := BearerToken(c)
			if token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing session token"})
			}
			sess, err := provider.Authenticate(c.Request().Context(), token)
			if errors.Is(err, auth.ErrSessionNotFound) {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid session"})
			}
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			c.Set(ctxSession, sess)
			c.Set(ctxTenantID, sess.UserID)
			return next(c)
		}
	}
}
