package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"hmsportal/internal/errors"
	"hmsportal/internal/model"
	"hmsportal/internal/route"
	"hmsportal/internal/session"
)

// RoutesHandler exposes the route table to API clients.
type RoutesHandler struct {
	table       *route.Table
	sessions    *session.Registry
	restoreWait time.Duration
}

// NewRoutesHandler creates a new routes handler.
func NewRoutesHandler(table *route.Table, sessions *session.Registry, restoreWait time.Duration) *RoutesHandler {
	return &RoutesHandler{table: table, sessions: sessions, restoreWait: restoreWait}
}

// RouteResponse is one page the caller may open.
type RouteResponse struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Landing bool   `json:"landing,omitempty"`
}

// VisibleRoutes lists the landing page and feature pages role may open.
func VisibleRoutes(table *route.Table, role model.Role) []RouteResponse {
	routes := []RouteResponse{}
	if e, ok := table.Lookup(table.Home(role)); ok && e.Landing == role {
		routes = append(routes, RouteResponse{Path: e.Path, Title: e.Title, Landing: true})
	}
	for _, l := range table.Links(role) {
		routes = append(routes, RouteResponse{Path: l.Path, Title: l.Title})
	}
	return routes
}

// List godoc
// @Summary Pages available to the current role
// @Tags session
// @Produce json
// @Success 200 {array} RouteResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /routes [get]
func (h *RoutesHandler) List(c echo.Context) error {
	s, err := storeFor(c, h.sessions)
	if err != nil {
		return err
	}
	if authState(c.Request().Context(), s, h.restoreWait) != route.Authenticated {
		return unauthenticated()
	}
	return c.JSON(http.StatusOK, VisibleRoutes(h.table, s.Role()))
}

// Access godoc
// @Summary Check whether the current session may open a page
// @Tags session
// @Produce json
// @Param path query string true "Page path, e.g. /dashboard/patients"
// @Success 200 {object} RouteResponse
// @Success 202 "Session still being restored"
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /routes/access [get]
func (h *RoutesHandler) Access(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "path is required",
			Code:  "INVALID_REQUEST",
		})
	}

	s, err := storeFor(c, h.sessions)
	if err != nil {
		return err
	}
	d := h.table.Decide(path, authState(c.Request().Context(), s, h.restoreWait), currentSession(s))
	switch d.Outcome {
	case route.Loading:
		return c.NoContent(http.StatusAccepted)
	case route.RedirectLogin:
		return unauthenticated()
	case route.Unauthorized:
		return apiError(errors.ErrForbidden)
	case route.Redirect:
		return apiError(errors.ErrRouteNotFound)
	}
	return c.JSON(http.StatusOK, RouteResponse{
		Path:    d.Entry.Path,
		Title:   d.Entry.Title,
		Landing: d.Entry.Landing != "",
	})
}
