package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/remotefollow/internal/domain"
)

type RequestMiddleware struct {
	trustProxy bool
}

func NewRequestMiddleware(trustProxy bool) *RequestMiddleware {
	return &RequestMiddleware{trustProxy: trustProxy}
}

// IdentifyBaseURL stores the scheme and host the request was addressed to,
// and logs the request.
func (m *RequestMiddleware) IdentifyBaseURL(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := req.Context()

		baseURL := m.baseURL(c)
		ctx = context.WithValue(ctx, domain.BaseURLCtxKey, baseURL)
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("BaseURL", baseURL))

		slog.InfoContext(
			ctx, "request",
			slog.String("method", req.Method),
			slog.String("url", baseURL+req.URL.RequestURI()),
			slog.String("accept", req.Header.Get(echo.HeaderAccept)),
			slog.String("module", "rest"),
		)

		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

func (m *RequestMiddleware) baseURL(c echo.Context) string {
	req := c.Request()

	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	host := req.Host

	if m.trustProxy {
		if proto := firstValue(req.Header.Get(echo.HeaderXForwardedProto)); proto != "" {
			scheme = proto
		}
		if forwarded := firstValue(req.Header.Get("X-Forwarded-Host")); forwarded != "" {
			host = forwarded
		}
	}

	return scheme + "://" + host
}

// BaseURL returns the base URL stored by IdentifyBaseURL.
func BaseURL(ctx context.Context) string {
	baseURL, _ := ctx.Value(domain.BaseURLCtxKey).(string)
	return baseURL
}

func firstValue(header string) string {
	first, _, _ := strings.Cut(header, ",")
	return strings.TrimSpace(first)
}
