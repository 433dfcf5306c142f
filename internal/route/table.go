// Package route is the portal's static route table and the access gate that
// decides what each navigation shows.
package route

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"hmsportal/internal/metrics"
	"hmsportal/internal/model"
	"hmsportal/internal/nav"
	"hmsportal/internal/page"
)

// Entry maps a path to a lazily built page.
type Entry struct {
	Path  string
	Title string
	// AllowedRoles restricts the entry; empty means any signed-in role.
	AllowedRoles []model.Role
	// Landing marks the entry as the dashboard of that role.
	Landing model.Role
	// Public entries render without a session.
	Public bool
	// View names the shell view of entries that have no page of their own.
	View string
	Load page.Factory

	lazy *page.Lazy
}

// Allows reports whether role may open the entry.
func (e *Entry) Allows(role model.Role) bool {
	return len(e.AllowedRoles) == 0 || slices.Contains(e.AllowedRoles, role)
}

// Page returns the entry's page, loading it on first use. See page.Lazy.Get.
func (e *Entry) Page(ctx context.Context, wait time.Duration) (page.Page, error) {
	if e.lazy == nil {
		return nil, fmt.Errorf("route %s has no page", e.Path)
	}
	return e.lazy.Get(ctx, wait)
}

// AuthState is the client's authentication state at navigation time.
type AuthState int

const (
	Authenticating AuthState = iota
	Unauthenticated
	Authenticated
)

func (s AuthState) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

// Outcome is what the shell does with a navigation.
type Outcome int

const (
	Render Outcome = iota
	Loading
	RedirectLogin
	Unauthorized
	Placeholder
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Loading:
		return "loading"
	case RedirectLogin:
		return "redirect_login"
	case Unauthorized:
		return "unauthorized"
	case Placeholder:
		return "placeholder"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Decision is the gate's answer for one navigation. Entry is set for Render,
// Target for the redirecting outcomes.
type Decision struct {
	Outcome Outcome
	Entry   *Entry
	Target  string
}

// Table is immutable once built.
type Table struct {
	entries []*Entry
	byPath  map[string]*Entry
	landing map[model.Role]*Entry
}

// NewTable indexes entries and wraps every page factory in a lazy loader.
func NewTable(entries []Entry, rec metrics.Recorder) (*Table, error) {
	t := &Table{
		byPath:  make(map[string]*Entry, len(entries)),
		landing: make(map[model.Role]*Entry),
	}
	for i := range entries {
		e := entries[i]
		e.Path = Clean(e.Path)
		if _, dup := t.byPath[e.Path]; dup {
			return nil, fmt.Errorf("duplicate route %s", e.Path)
		}
		if e.Load == nil && e.View == "" && e.Path != nav.DashboardPath {
			return nil, fmt.Errorf("route %s has neither page nor view", e.Path)
		}
		if e.Load != nil {
			e.lazy = page.NewLazy(e.Path, e.Load, rec)
		}
		if e.Landing != "" {
			if _, dup := t.landing[e.Landing]; dup {
				return nil, fmt.Errorf("duplicate landing page for %s", e.Landing)
			}
			if len(e.AllowedRoles) == 0 {
				e.AllowedRoles = []model.Role{e.Landing}
			}
		}
		ep := &e
		t.entries = append(t.entries, ep)
		t.byPath[e.Path] = ep
		if e.Landing != "" {
			t.landing[e.Landing] = ep
		}
	}
	return t, nil
}

// Clean normalizes a request path for lookup.
func Clean(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + strings.TrimSpace(p))
}

// Decide gates one navigation. Checks run in a fixed order: public entries,
// then authentication, then role; the caller loads the page last. An
// unauthenticated client is therefore always sent to the login page, even
// for paths no role may open.
func (t *Table) Decide(p string, state AuthState, sess *model.Session) Decision {
	p = Clean(p)
	e, ok := t.byPath[p]
	if !ok {
		return Decision{Outcome: Redirect, Target: nav.DashboardPath}
	}
	if e.Public {
		return Decision{Outcome: Render, Entry: e}
	}

	switch state {
	case Authenticating:
		return Decision{Outcome: Loading, Entry: e}
	case Authenticated:
		if sess == nil || !sess.Valid() {
			return Decision{Outcome: RedirectLogin, Target: nav.LoginPath}
		}
	default:
		return Decision{Outcome: RedirectLogin, Target: nav.LoginPath}
	}

	role := sess.Role()
	if p == nav.DashboardPath {
		landing, ok := t.landing[role]
		if !ok {
			return Decision{Outcome: Placeholder, Entry: e}
		}
		return Decision{Outcome: Render, Entry: landing}
	}
	if !e.Allows(role) {
		return Decision{Outcome: Unauthorized, Target: nav.UnauthorizedPath}
	}
	return Decision{Outcome: Render, Entry: e}
}

// Home is where a freshly signed-in role lands.
func (t *Table) Home(role model.Role) string {
	if e, ok := t.landing[role]; ok {
		return e.Path
	}
	return nav.DashboardPath
}

// Lookup returns the entry registered for p.
func (t *Table) Lookup(p string) (*Entry, bool) {
	e, ok := t.byPath[Clean(p)]
	return e, ok
}

// Links lists the feature pages role may open, in table order. Public
// entries, landing pages and the dashboard root are left out.
func (t *Table) Links(role model.Role) []page.Link {
	var links []page.Link
	for _, e := range t.entries {
		if e.Public || e.Landing != "" || e.Path == nav.DashboardPath {
			continue
		}
		if e.Allows(role) {
			links = append(links, page.Link{Path: e.Path, Title: e.Title})
		}
	}
	return links
}

// Entries returns every entry in table order.
func (t *Table) Entries() []*Entry {
	return slices.Clone(t.entries)
}
