package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/totegamma/remotefollow/internal/domain"
)

// IdentifySession reads the session cookie into the request context.
// Cookies that are not session ids issued by EnsureSession are ignored.
func (m *RequestMiddleware) IdentifySession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(domain.SessionCookieName)
		if err == nil {
			if id, err := uuid.Parse(cookie.Value); err == nil {
				ctx := context.WithValue(c.Request().Context(), domain.SessionIDCtxKey, id.String())
				c.SetRequest(c.Request().WithContext(ctx))
			}
		}
		return next(c)
	}
}

func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(domain.SessionIDCtxKey).(string)
	return id
}

// EnsureSession returns the session id of the request, issuing a new
// session cookie when there is none.
func EnsureSession(c echo.Context) string {
	ctx := c.Request().Context()
	if id := SessionID(ctx); id != "" {
		return id
	}

	id := uuid.NewString()
	c.SetCookie(sessionCookie(ctx, id, int(domain.SessionTTL.Seconds())))
	c.SetRequest(c.Request().WithContext(context.WithValue(ctx, domain.SessionIDCtxKey, id)))
	return id
}

func ClearSession(c echo.Context) {
	c.SetCookie(sessionCookie(c.Request().Context(), "", -1))
}

func sessionCookie(ctx context.Context, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     domain.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   strings.HasPrefix(BaseURL(ctx), "https://"),
		SameSite: http.SameSiteLaxMode,
	}
}
