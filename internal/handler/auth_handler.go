package handler

import (
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"hmsportal/internal/errors"
	"hmsportal/internal/metrics"
	"hmsportal/internal/model"
	"hmsportal/internal/nav"
	"hmsportal/internal/page"
	"hmsportal/internal/route"
	"hmsportal/internal/service"
	"hmsportal/internal/session"
)

// AuthHandler handles sign in and sign out, for the HTML shell and the JSON API.
type AuthHandler struct {
	sessions    *session.Registry
	table       *route.Table
	metrics     metrics.Recorder
	restoreWait time.Duration
	policy      *bluemonday.Policy
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(sessions *session.Registry, table *route.Table, rec metrics.Recorder, restoreWait time.Duration) *AuthHandler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthHandler{
		sessions:    sessions,
		table:       table,
		metrics:     rec,
		restoreWait: restoreWait,
		policy:      bluemonday.StrictPolicy(),
	}
}

// SessionResponse describes the signed-in user.
type SessionResponse struct {
	User       model.User      `json:"user"`
	Employee   *model.Employee `json:"employee,omitempty"`
	EmployeeID *int64          `json:"employee_id,omitempty"`
	Role       model.Role      `json:"role"`
	Home       string          `json:"home"`
}

func (h *AuthHandler) sessionResponse(sess model.Session) SessionResponse {
	resp := SessionResponse{
		User:     sess.User,
		Employee: sess.Employee,
		Role:     sess.Role(),
		Home:     h.table.Home(sess.Role()),
	}
	if id, ok := sess.ResolveEmployeeID(); ok {
		resp.EmployeeID = &id
	}
	return resp
}

// sanitize strips any markup from a message the API sent back. The result is
// plain text; templates and JSON encoding escape it again on output.
func (h *AuthHandler) sanitize(msg string) string {
	clean := strings.TrimSpace(html.UnescapeString(h.policy.Sanitize(msg)))
	if clean == "" {
		return service.DefaultLoginFailure
	}
	return clean
}

func (h *AuthHandler) loginForm(c echo.Context, status int, email, message string) error {
	return c.Render(status, page.ViewLogin, page.Frame{
		Title: "Sign in",
		Path:  nav.LoginPath,
		Error: message,
		Body:  email,
	})
}

// ShowLogin renders the sign in form. It always renders, signed in or not.
func (h *AuthHandler) ShowLogin(c echo.Context) error {
	return h.loginForm(c, http.StatusOK, "", "")
}

// Login handles the sign in form.
func (h *AuthHandler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := c.Bind(&req); err != nil {
		return h.loginForm(c, http.StatusBadRequest, "", "Invalid request")
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return h.loginForm(c, http.StatusUnprocessableEntity, req.Email, "Enter a valid email and password")
	}

	s, err := storeFor(c, h.sessions)
	if err != nil {
		return err
	}

	res := s.Login(c.Request().Context(), req.Email, req.Password)
	h.metrics.RecordLogin(res.OK)
	if !res.OK {
		return h.loginForm(c, http.StatusUnauthorized, req.Email, h.sanitize(res.Message))
	}
	return c.Redirect(http.StatusSeeOther, h.table.Home(res.Session.Role()))
}

// Logout clears the client's session and returns to the sign in form.
func (h *AuthHandler) Logout(c echo.Context) error {
	s, err := storeFor(c, h.sessions)
	if err != nil {
		return err
	}
	if err := s.Logout(c.Request().Context()); err != nil {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("logout")
	}
	return c.Redirect(http.StatusSeeOther, nav.LoginPath)
}

// CreateSession godoc
// @Summary Sign in
// @Tags session
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Login credentials"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /session [post]
func (h *AuthHandler) CreateSession(c echo.Context) error {
	var req model.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
	}

	s, err := storeFor(c, h.sessions)
	if err != nil {
		return err
	}

	res := s.Login(c.Request().Context(), req.Email, req.Password)
	h.metrics.RecordLogin(res.OK)
	if !res.OK {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: h.sanitize(res.Message),
			Code:  "LOGIN_FAILED",
		})
	}
	return c.JSON(http.StatusOK, h.sessionResponse(*res.Session))
}

// GetSession godoc
// @Summary Current session
// @Tags session
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /session [get]
func (h *AuthHandler) GetSession(c echo.Context) error {
	s, err := storeFor(c, h.sessions)
	if err != nil {
		return err
	}
	if authState(c.Request().Context(), s, h.restoreWait) != route.Authenticated {
		return unauthenticated()
	}
	sess, ok := s.Current()
	if !ok {
		return unauthenticated()
	}
	return c.JSON(http.StatusOK, h.sessionResponse(sess))
}

// DeleteSession godoc
// @Summary Sign out
// @Tags session
// @Success 204
// @Failure 500 {object} errors.ErrorResponse
// @Router /session [delete]
func (h *AuthHandler) DeleteSession(c echo.Context) error {
	s, err := storeFor(c, h.sessions)
	if err != nil {
		return err
	}
	if err := s.Logout(c.Request().Context()); err != nil {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("logout")
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "failed to clear session",
			Code:  "LOGOUT_FAILED",
		})
	}
	return c.NoContent(http.StatusNoContent)
}
