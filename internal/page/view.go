package page

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Shell view names rendered through echo's Renderer.
const (
	ViewLogin        = "login"
	ViewLoading      = "loading"
	ViewError        = "error"
	ViewPlaceholder  = "placeholder"
	ViewUnauthorized = "unauthorized"
)

var shellViews = []string{ViewLogin, ViewLoading, ViewError, ViewPlaceholder, ViewUnauthorized}

// Frame is the data every template receives. Body carries page specific data.
type Frame struct {
	Title   string
	Path    string
	User    string
	Role    string
	Links   []Link
	Error   string
	Notice  string
	Refresh string
	Body    any
}

var funcs = template.FuncMap{
	"cell":  cell,
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}

// cell formats one value of a decoded JSON row for a table cell.
func cell(row map[string]any, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%.2f", t)
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case map[string]any:
		for _, k := range []string{"name", "full_name", "title", "id"} {
			if s := cell(t, k); s != "" {
				return s
			}
		}
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// parse builds the template set of one view: the layout, the shared partials
// and the view's own file.
func parse(name string) (*template.Template, error) {
	t, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS,
		"templates/layout.html",
		"templates/partials.html",
		"templates/"+name+".html",
	)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return t, nil
}

// write renders into a buffer first so a failing template never leaves a
// half written response behind.
func write(c echo.Context, status int, t *template.Template, frame Frame) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", frame); err != nil {
		return fmt.Errorf("execute %s: %w", t.Name(), err)
	}
	return c.HTMLBlob(status, buf.Bytes())
}

// frame fills the shell parts of Frame from env.
func frame(env Env, body any) Frame {
	f := Frame{Title: env.Title, Path: env.Path, Links: env.Links, Body: body}
	if env.Session != nil {
		if sess, ok := env.Session.Current(); ok {
			f.User = sess.DisplayName()
			f.Role = sess.Role().Label()
		}
	}
	return f
}

// Shell renders the views that belong to the portal itself rather than to a
// page. It implements echo.Renderer.
type Shell struct {
	views map[string]*template.Template
}

var _ echo.Renderer = (*Shell)(nil)

// NewShell parses every shell view.
func NewShell() (*Shell, error) {
	s := &Shell{views: make(map[string]*template.Template, len(shellViews))}
	for _, name := range shellViews {
		t, err := parse(name)
		if err != nil {
			return nil, err
		}
		s.views[name] = t
	}
	return s, nil
}

// Render executes the named shell view with data, which must be a Frame.
func (s *Shell) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := s.views[name]
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}
	frame, ok := data.(Frame)
	if !ok {
		return fmt.Errorf("view %s: expected page.Frame, got %T", name, data)
	}
	return t.ExecuteTemplate(w, "layout", frame)
}

// Loading writes the shared loading placeholder. The browser retries path
// after a second.
func Loading(c echo.Context, path string) error {
	c.Response().Header().Set("Refresh", "1; url="+path)
	return c.Render(http.StatusAccepted, ViewLoading, Frame{Title: "Loading", Path: path, Refresh: path})
}

func joinPath(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		out += "/" + strings.Trim(p, "/")
	}
	return out
}
