package handler

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"hmsportal/internal/errors"
	"hmsportal/internal/metrics"
	"hmsportal/internal/nav"
	"hmsportal/internal/page"
	"hmsportal/internal/route"
	"hmsportal/internal/session"
)

// PageHandler serves every navigation through the route table.
type PageHandler struct {
	table       *route.Table
	sessions    *session.Registry
	api         page.API
	metrics     metrics.Recorder
	restoreWait time.Duration
	pageWait    time.Duration
}

// NewPageHandler creates a new page handler. api is the shared API client
// with the session interceptors installed.
func NewPageHandler(table *route.Table, sessions *session.Registry, api page.API, rec metrics.Recorder, restoreWait, pageWait time.Duration) *PageHandler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &PageHandler{
		table:       table,
		sessions:    sessions,
		api:         api,
		metrics:     rec,
		restoreWait: restoreWait,
		pageWait:    pageWait,
	}
}

// Navigate renders the page at the request path.
func (h *PageHandler) Navigate(c echo.Context) error {
	return h.serve(c, false)
}

// Submit passes a form post to the page at the request path.
func (h *PageHandler) Submit(c echo.Context) error {
	return h.serve(c, true)
}

func (h *PageHandler) serve(c echo.Context, act bool) error {
	s, err := storeFor(c, h.sessions)
	if err != nil {
		return err
	}

	req := c.Request()
	state := authState(req.Context(), s, h.restoreWait)
	d := h.table.Decide(req.URL.Path, state, currentSession(s))
	h.metrics.RecordNavigation(d.Outcome.String())

	switch d.Outcome {
	case route.Loading:
		return page.Loading(c, req.URL.RequestURI())
	case route.RedirectLogin, route.Unauthorized, route.Redirect:
		return c.Redirect(redirectStatus(c), d.Target)
	case route.Placeholder:
		return c.Render(http.StatusOK, page.ViewPlaceholder, shellFrame(s, h.table, d.Entry.Title, d.Entry.Path))
	}

	e := d.Entry
	if e.Load == nil {
		return c.Render(http.StatusOK, e.View, shellFrame(s, h.table, e.Title, e.Path))
	}
	return h.render(c, s, e, act)
}

// render loads the entry's page and runs it inside the error boundary: a
// failing page shows a scoped error view, and a navigation requested by the
// API client (a rejected token) wins over whatever the page did.
func (h *PageHandler) render(c echo.Context, s *session.Store, e *route.Entry, act bool) error {
	recorder := &nav.Recorder{}
	ctx := nav.WithNavigator(session.WithStore(c.Request().Context(), s), recorder)
	c.SetRequest(c.Request().WithContext(ctx))
	logger := zerolog.Ctx(ctx)

	p, err := e.Page(ctx, h.pageWait)
	switch {
	case stderrors.Is(err, page.ErrStillLoading):
		return page.Loading(c, c.Request().URL.RequestURI())
	case err != nil:
		logger.Error().Err(err).Str("route", e.Path).Msg("page load failed")
		return h.boundary(c, s, e)
	}

	env := page.Env{
		API:     h.api,
		Session: s,
		Links:   h.table.Links(s.Role()),
		Path:    e.Path,
		Title:   e.Title,
	}
	err = page.Guard(func() error {
		if !act {
			return p.Render(c, env)
		}
		actor, ok := p.(page.Actor)
		if !ok {
			return echo.NewHTTPError(http.StatusMethodNotAllowed, errors.ErrorResponse{
				Error: "page does not accept submissions",
				Code:  "METHOD_NOT_ALLOWED",
			})
		}
		return actor.Act(c, env)
	})

	if target, ok := recorder.Target(); ok && !c.Response().Committed {
		logger.Info().Str("route", e.Path).Str("target", target).Msg("navigation forced by api")
		return c.Redirect(redirectStatus(c), target)
	}
	if err == nil {
		return nil
	}

	var httpErr *echo.HTTPError
	if stderrors.As(err, &httpErr) {
		return err
	}
	logger.Error().Err(fmt.Errorf("%w: %w", errors.ErrPageUnavailable, err)).Str("route", e.Path).Msg("page failed")
	if c.Response().Committed {
		return nil
	}
	return h.boundary(c, s, e)
}

// boundary renders the scoped error view. The shell around it keeps working.
func (h *PageHandler) boundary(c echo.Context, s *session.Store, e *route.Entry) error {
	f := shellFrame(s, h.table, e.Title, e.Path)
	f.Error = "This page could not be displayed."
	return c.Render(errors.MapErrorToHTTP(errors.ErrPageUnavailable).StatusCode, page.ViewError, f)
}
