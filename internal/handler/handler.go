package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"hmsportal/internal/errors"
	"hmsportal/internal/middleware"
	"hmsportal/internal/model"
	"hmsportal/internal/page"
	"hmsportal/internal/route"
	"hmsportal/internal/session"
)

// storeFor returns the session store of the requesting client.
func storeFor(c echo.Context, sessions *session.Registry) (*session.Store, error) {
	id := middleware.ClientID(c)
	if id == "" {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "missing client identity",
			Code:  "INTERNAL_ERROR",
		})
	}
	return sessions.Get(id), nil
}

// authState waits up to wait for the store's restore before classifying it.
func authState(ctx context.Context, s *session.Store, wait time.Duration) route.AuthState {
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if !s.WaitRestored(waitCtx) {
		return route.Authenticating
	}
	if s.Authenticated() {
		return route.Authenticated
	}
	return route.Unauthenticated
}

// currentSession returns the restored session or nil.
func currentSession(s *session.Store) *model.Session {
	if sess, ok := s.Current(); ok {
		return &sess
	}
	return nil
}

// redirectStatus keeps GET navigations as 302 and turns form posts into 303.
func redirectStatus(c echo.Context) int {
	if c.Request().Method == http.MethodGet || c.Request().Method == http.MethodHead {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

// shellFrame builds the frame of a shell view for the client's session.
func shellFrame(s *session.Store, table *route.Table, title, path string) page.Frame {
	f := page.Frame{Title: title, Path: path}
	if s == nil {
		return f
	}
	if sess, ok := s.Current(); ok {
		f.User = sess.DisplayName()
		f.Role = sess.Role().Label()
		f.Links = table.Links(sess.Role())
	}
	return f
}

// apiError turns a domain error into an echo error with a JSON body.
func apiError(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func unauthenticated() error {
	return apiError(errors.ErrNotAuthenticated)
}
