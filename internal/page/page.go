// Package page holds the portal's pages and the lazy loader that builds them
// on first navigation.
package page

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	"hmsportal/internal/model"
)

// API is the part of the shared API client pages use.
type API interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Session is the read-only view of the requesting client's identity. Pages
// never read storage directly.
type Session interface {
	Current() (model.Session, bool)
	Role() model.Role
	EmployeeID() (int64, bool)
}

// Link is one menu entry.
type Link struct {
	Path  string
	Title string
}

// Env is everything a page may touch while serving one request.
type Env struct {
	API     API
	Session Session
	Links   []Link
	Path    string
	Title   string
}

// Page renders itself into the response.
type Page interface {
	Render(c echo.Context, env Env) error
}

// Actor is implemented by pages that accept form submissions.
type Actor interface {
	Act(c echo.Context, env Env) error
}

// Factory builds a page. It runs once per successful load.
type Factory func(ctx context.Context) (Page, error)

// ErrPanic wraps a panic raised while loading or rendering a page.
var ErrPanic = errors.New("page panicked")

// Guard runs fn and converts a panic into an error wrapping ErrPanic.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}
