package rest

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/totegamma/remotefollow"
	"github.com/totegamma/remotefollow/internal/domain"
	"github.com/totegamma/remotefollow/internal/present/rest/middleware"
	"github.com/totegamma/remotefollow/internal/present/rest/presenter"
	"github.com/totegamma/remotefollow/internal/usecase"
)

type Handler struct {
	app      *usecase.ApplicationUsecase
	resolver *usecase.ResolverUsecase
	follow   *usecase.FollowUsecase
}

func NewHandler(
	app *usecase.ApplicationUsecase,
	resolver *usecase.ResolverUsecase,
	follow *usecase.FollowUsecase,
) *Handler {
	return &Handler{
		app:      app,
		resolver: resolver,
		follow:   follow,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/.well-known/webfinger", h.handleWebFinger)
	e.GET("/", h.handleActor)
	e.GET("/actor", h.handleActor)
	e.Any("/inbox", h.handleInbox)
	e.Any("/actor/inbox", h.handleInbox)
	e.Any("/outbox", h.handleOutbox)
	e.Any("/actor/outbox", h.handleOutbox)
	e.GET("/api/v1/resolve", h.handleResolve)
	e.POST("/api/v1/follower", h.handleLogin)
	e.DELETE("/api/v1/follower", h.handleLogout)
	e.GET("/*", h.handleProfile)
}

type loginRequest struct {
	IdOrHandle string `json:"idOrHandle" form:"idOrHandle"`
}

type resolveResponse struct {
	Person domain.Identity `json:"person"`
	Error  string          `json:"error,omitempty"`
}

type followerResponse struct {
	Follower domain.Identity `json:"follower"`
	Error    string          `json:"error,omitempty"`
}

// failedPerson is what the profile page shows when the person could not be
// resolved.
type failedPerson struct {
	domain.Identity
	IdOrHandle string `json:"idOrHandle"`
	Error      string `json:"error"`
}

type profileErrorResponse struct {
	Person   failedPerson     `json:"person"`
	Follower *domain.Identity `json:"follower,omitempty"`
}

func (h *Handler) keyID(c echo.Context) string {
	return h.app.KeyID(middleware.BaseURL(c.Request().Context()))
}

func (h *Handler) handleWebFinger(c echo.Context) error {
	resource := c.QueryParam("resource")
	if resource == "" {
		return presenter.NotFound(c, "resource not found")
	}

	baseURL := middleware.BaseURL(c.Request().Context())
	return presenter.Document(c, echo.MIMEApplicationJSON, h.app.WebFinger(baseURL, resource))
}

func (h *Handler) handleActor(c echo.Context) error {
	if !remotefollow.IsActivityPubAccept(c.Request().Header.Get(echo.HeaderAccept)) {
		return h.profile(c, strings.TrimPrefix(c.Request().URL.Path, "/"))
	}

	baseURL := middleware.BaseURL(c.Request().Context())
	return presenter.Document(c, remotefollow.MIMEActivityJSON, h.app.Actor(baseURL))
}

func (h *Handler) handleInbox(c echo.Context) error {
	return presenter.Unauthorized(c, "unauthorized")
}

func (h *Handler) handleOutbox(c echo.Context) error {
	return presenter.NotFound(c, "not found")
}

func (h *Handler) handleResolve(c echo.Context) error {
	ctx := c.Request().Context()

	q := c.QueryParam("q")
	if q == "" {
		return presenter.BadRequestMessage(c, "q parameter is required")
	}

	person, err := h.resolver.Resolve(ctx, q, h.keyID(c))
	if err != nil {
		return presenter.Status(c, statusOf(err), err, resolveResponse{Person: person, Error: err.Error()})
	}
	return presenter.OK(c, resolveResponse{Person: person})
}

func (h *Handler) handleLogin(c echo.Context) error {
	var req loginRequest
	err := c.Bind(&req)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	sessionID := middleware.EnsureSession(c)
	ctx := c.Request().Context()

	follower, err := h.follow.Login(ctx, sessionID, req.IdOrHandle, h.keyID(c))
	if err != nil {
		return presenter.Status(c, statusOf(err), err, followerResponse{Follower: follower, Error: err.Error()})
	}
	return presenter.OK(c, followerResponse{Follower: follower})
}

func (h *Handler) handleLogout(c echo.Context) error {
	ctx := c.Request().Context()

	if sessionID := middleware.SessionID(ctx); sessionID != "" {
		err := h.follow.Logout(ctx, sessionID)
		if err != nil {
			return presenter.InternalError(c, err)
		}
	}

	middleware.ClearSession(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) handleProfile(c echo.Context) error {
	target, err := url.PathUnescape(c.Param("*"))
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid path")
	}
	return h.profile(c, target)
}

func (h *Handler) profile(c echo.Context, target string) error {
	ctx := c.Request().Context()
	sessionID := middleware.SessionID(ctx)

	plan, err := h.follow.Prepare(ctx, sessionID, target, h.keyID(c))
	if err != nil {
		follower, _ := h.follow.Follower(ctx, sessionID)
		return presenter.Status(c, statusOf(err), err, profileErrorResponse{
			Person: failedPerson{
				Identity:   plan.Person,
				IdOrHandle: target,
				Error:      err.Error(),
			},
			Follower: follower,
		})
	}

	return presenter.OK(c, plan)
}

// statusOf maps a resolution failure to a response status. Failures caused
// by this server's own configuration are 500, everything else about the
// requested identity is 400.
func statusOf(err error) int {
	var signErr domain.SigningError
	if errors.As(err, &signErr) {
		return http.StatusInternalServerError
	}
	if errors.Is(err, domain.ResolutionError{}) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
