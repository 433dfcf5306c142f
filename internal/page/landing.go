package page

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"hmsportal/internal/apiclient"
	"hmsportal/internal/model"
)

// Stat is a counter shown on a landing page: the size of one API collection.
type Stat struct {
	Label    string
	Endpoint string
	Path     string
}

// Landing is the home page of one role.
type Landing struct {
	role  model.Role
	stats []Stat
	tmpl  *template.Template
}

type statValue struct {
	Label string
	Path  string
	Count int
	Known bool
}

type landingBody struct {
	Greeting string
	Stats    []statValue
}

// NewLanding returns the factory of the landing page of role.
func NewLanding(role model.Role, stats ...Stat) Factory {
	return func(context.Context) (Page, error) {
		if role == "" {
			return nil, fmt.Errorf("landing page: role is required")
		}
		t, err := parse("landing")
		if err != nil {
			return nil, err
		}
		return &Landing{role: role, stats: stats, tmpl: t}, nil
	}
}

// Render greets the user, lists the pages their role may open and shows
// whichever counters the API could provide.
func (p *Landing) Render(c echo.Context, env Env) error {
	ctx := c.Request().Context()
	body := landingBody{Greeting: p.role.Label()}
	if sess, ok := env.Session.Current(); ok {
		body.Greeting = sess.DisplayName()
	}

	for _, s := range p.stats {
		v := statValue{Label: s.Label, Path: s.Path}
		var items []json.RawMessage
		err := env.API.Do(ctx, http.MethodGet, s.Endpoint, nil, &items)
		switch {
		case err == nil:
			v.Count, v.Known = len(items), true
		case errors.Is(err, apiclient.ErrUnauthorized):
			return err
		default:
			zerolog.Ctx(ctx).Debug().Err(err).Str("endpoint", s.Endpoint).Msg("landing stat unavailable")
		}
		body.Stats = append(body.Stats, v)
	}

	return write(c, http.StatusOK, p.tmpl, frame(env, body))
}
