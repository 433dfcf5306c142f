// Package nav carries client-side navigation requests raised while a page is
// being served, e.g. the forced return to the login page after a 401.
package nav

import (
	"context"
	"sync"
)

// Well-known shell paths.
const (
	LoginPath        = "/login"
	LogoutPath       = "/logout"
	UnauthorizedPath = "/unauthorized"
	DashboardPath    = "/dashboard"
)

// Navigator receives navigation requests.
type Navigator interface {
	Navigate(path string)
}

// Recorder remembers the first navigation requested during a request.
type Recorder struct {
	mu     sync.Mutex
	target string
}

// Navigate records path unless a navigation is already pending.
func (r *Recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.target == "" {
		r.target = path
	}
}

// Target returns the pending navigation, if any.
func (r *Recorder) Target() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target, r.target != ""
}

type navigatorKey struct{}

// WithNavigator attaches n to ctx.
func WithNavigator(ctx context.Context, n Navigator) context.Context {
	return context.WithValue(ctx, navigatorKey{}, n)
}

// FromContext returns the navigator in ctx, or one that drops requests.
func FromContext(ctx context.Context) Navigator {
	if n, ok := ctx.Value(navigatorKey{}).(Navigator); ok && n != nil {
		return n
	}
	return discard{}
}

type discard struct{}

func (discard) Navigate(string) {}
