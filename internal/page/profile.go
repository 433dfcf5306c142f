package page

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"hmsportal/internal/apiclient"
	"hmsportal/internal/model"
)

// Profile shows the signed-in user and, for staff, their employee record.
type Profile struct {
	endpoint string
	tmpl     *template.Template
}

type profileBody struct {
	Name     string
	Email    string
	Role     string
	Employee *model.Employee
}

// NewProfile returns the factory of the profile page. Employee records are
// read from <endpoint>/<employee id>.
func NewProfile(endpoint string) Factory {
	return func(context.Context) (Page, error) {
		t, err := parse("profile")
		if err != nil {
			return nil, err
		}
		return &Profile{endpoint: endpoint, tmpl: t}, nil
	}
}

// Render prefers the API's employee record and falls back to the copy kept in
// the session.
func (p *Profile) Render(c echo.Context, env Env) error {
	ctx := c.Request().Context()
	sess, _ := env.Session.Current()
	body := profileBody{
		Name:     sess.DisplayName(),
		Email:    sess.User.Email,
		Role:     sess.Role().Label(),
		Employee: sess.Employee,
	}

	var message string
	if id, ok := env.Session.EmployeeID(); ok {
		var emp model.Employee
		err := env.API.Do(ctx, http.MethodGet, joinPath(p.endpoint, strconv.FormatInt(id, 10)), nil, &emp)
		switch {
		case err == nil:
			if emp.ID == 0 {
				emp.ID = id
			}
			body.Employee = &emp
			body.Name = emp.FullName()
		case errors.Is(err, apiclient.ErrUnauthorized):
			return err
		default:
			zerolog.Ctx(ctx).Warn().Err(err).Int64("employee_id", id).Msg("load employee failed")
			message = fetchFailure(err)
		}
	}

	f := frame(env, body)
	f.Error = message
	return write(c, http.StatusOK, p.tmpl, f)
}
