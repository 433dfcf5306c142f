package page

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"hmsportal/internal/apiclient"
	apperrors "hmsportal/internal/errors"
)

// Column is one table column, read from the JSON field Key.
type Column struct {
	Key   string
	Label string
}

// Field is one input of the create form.
type Field struct {
	Name     string
	Label    string
	Type     string // text, number, date, email, textarea
	Required bool
}

// ResourceSpec describes a list/create/delete page over one API collection.
type ResourceSpec struct {
	Endpoint string
	Columns  []Column
	Fields   []Field
	ReadOnly bool
}

// Resource is the generic page of one API collection.
type Resource struct {
	spec ResourceSpec
	tmpl *template.Template
	show func(c echo.Context, env Env, status int, message string) error
}

var (
	_ Page  = (*Resource)(nil)
	_ Actor = (*Resource)(nil)
)

type resourceBody struct {
	Path     string
	Columns  []Column
	Fields   []Field
	ReadOnly bool
	Rows     []map[string]any
}

// NewResource returns the factory of a resource page.
func NewResource(spec ResourceSpec) Factory {
	return func(context.Context) (Page, error) {
		return newResource(spec, "resource")
	}
}

func newResource(spec ResourceSpec, view string) (*Resource, error) {
	if spec.Endpoint == "" {
		return nil, fmt.Errorf("resource page: endpoint is required")
	}
	t, err := parse(view)
	if err != nil {
		return nil, err
	}
	r := &Resource{spec: spec, tmpl: t}
	r.show = r.render
	return r, nil
}

func (r *Resource) body(env Env, rows []map[string]any) resourceBody {
	return resourceBody{
		Path:     env.Path,
		Columns:  r.spec.Columns,
		Fields:   r.spec.Fields,
		ReadOnly: r.spec.ReadOnly,
		Rows:     rows,
	}
}

// Render lists the collection. A failed fetch is shown inline; a rejected
// token is returned so the shell can follow the forced navigation.
func (r *Resource) Render(c echo.Context, env Env) error {
	return r.show(c, env, http.StatusOK, "")
}

func (r *Resource) render(c echo.Context, env Env, status int, message string) error {
	ctx := c.Request().Context()
	var rows []map[string]any
	if err := env.API.Do(ctx, http.MethodGet, r.spec.Endpoint, nil, &rows); err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return err
		}
		zerolog.Ctx(ctx).Warn().Err(err).Str("endpoint", r.spec.Endpoint).Msg("list failed")
		rows = nil
		if message == "" {
			message = fetchFailure(err)
		}
	}

	f := frame(env, r.body(env, rows))
	f.Error = message
	return write(c, status, r.tmpl, f)
}

// Act handles the create, update and delete forms.
func (r *Resource) Act(c echo.Context, env Env) error {
	if r.spec.ReadOnly {
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "read only page")
	}
	ctx := c.Request().Context()

	var err error
	switch action := c.FormValue("_action"); action {
	case "create":
		var body map[string]any
		body, err = r.formBody(c)
		if err != nil {
			return r.show(c, env, http.StatusUnprocessableEntity, err.Error())
		}
		err = env.API.Do(ctx, http.MethodPost, r.spec.Endpoint, body, nil)
	case "update":
		target, msg := r.recordPath(c.FormValue("id"))
		if msg != "" {
			return r.show(c, env, http.StatusUnprocessableEntity, msg)
		}
		var body map[string]any
		body, err = r.formBody(c)
		if err != nil {
			return r.show(c, env, http.StatusUnprocessableEntity, err.Error())
		}
		err = env.API.Do(ctx, http.MethodPut, target, body, nil)
	case "delete":
		target, msg := r.recordPath(c.FormValue("id"))
		if msg != "" {
			return r.show(c, env, http.StatusUnprocessableEntity, msg)
		}
		err = env.API.Do(ctx, http.MethodDelete, target, nil, nil)
	default:
		return r.show(c, env, http.StatusBadRequest, fmt.Sprintf("Unknown action %q", action))
	}

	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return err
		}
		zerolog.Ctx(ctx).Warn().Err(err).Str("endpoint", r.spec.Endpoint).Msg("mutation failed")
		return r.show(c, env, http.StatusUnprocessableEntity, fetchFailure(err))
	}
	return c.Redirect(http.StatusSeeOther, env.Path)
}

// recordPath is the API path of one record of the page's collection. The id
// is escaped as a single segment; on a bad id it returns the form message.
func (r *Resource) recordPath(raw string) (string, string) {
	id := strings.TrimSpace(raw)
	switch id {
	case "":
		return "", "Missing record id"
	case ".", "..":
		return "", "Invalid record id"
	}
	return joinPath(r.spec.Endpoint, url.PathEscape(id)), ""
}

// formBody collects the declared fields from the submitted form. Number
// fields are sent as JSON numbers.
func (r *Resource) formBody(c echo.Context) (map[string]any, error) {
	body := make(map[string]any, len(r.spec.Fields))
	for _, f := range r.spec.Fields {
		raw := strings.TrimSpace(c.FormValue(f.Name))
		if raw == "" {
			if f.Required {
				return nil, fmt.Errorf("%s is required", f.Label)
			}
			continue
		}
		if f.Type == "number" {
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%s must be a number", f.Label)
			}
			body[f.Name] = n
			continue
		}
		body[f.Name] = raw
	}
	return body, nil
}

// fetchFailure turns an API error into the message shown above the table.
func fetchFailure(err error) string {
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	if errors.Is(err, apperrors.ErrUpstream) {
		return "The hospital service is unavailable right now. Please try again later."
	}
	return "Could not reach the hospital service. Please try again."
}
