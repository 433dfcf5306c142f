package page

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hmsportal/internal/apiclient"
	"hmsportal/internal/model"
)

// MockAPI is a mock implementation of API. Responses are given as JSON and
// decoded into out.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Do(ctx context.Context, method, path string, body, out any) error {
	args := m.Called(method, path, body)
	if raw, ok := args.Get(0).(string); ok && out != nil {
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return err
		}
	}
	return args.Error(1)
}

type fakeSession struct {
	sess model.Session
	ok   bool
}

func (f fakeSession) Current() (model.Session, bool) { return f.sess, f.ok }
func (f fakeSession) Role() model.Role              { return f.sess.Role() }
func (f fakeSession) EmployeeID() (int64, bool)     { return f.sess.ResolveEmployeeID() }

func doctorSession() fakeSession {
	return fakeSession{ok: true, sess: model.Session{
		User:     model.User{ID: 1, Role: model.RoleDoctor, Email: "house@hms.test"},
		Employee: &model.Employee{ID: 7, FirstName: "Greg", LastName: "House"},
	}}
}

func mustLoad(t *testing.T, f Factory) Page {
	t.Helper()
	p, err := f(context.Background())
	require.NoError(t, err)
	return p
}

func newContext(method, target string, form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

var patientsSpec = ResourceSpec{
	Endpoint: "/patients",
	Columns:  []Column{{Key: "id", Label: "ID"}, {Key: "name", Label: "Name"}, {Key: "age", Label: "Age"}},
	Fields: []Field{
		{Name: "name", Label: "Name", Type: "text", Required: true},
		{Name: "age", Label: "Age", Type: "number"},
	},
}

func TestResource_Render(t *testing.T) {
	api := new(MockAPI)
	api.On("Do", http.MethodGet, "/patients", nil).
		Return(`[{"id":3,"name":"Jane Roe","age":41}]`, nil)

	c, rec := newContext(http.MethodGet, "/dashboard/patients", nil)
	env := Env{API: api, Session: doctorSession(), Path: "/dashboard/patients", Title: "Patients",
		Links: []Link{{Path: "/dashboard/appointments", Title: "Appointments"}}}

	require.NoError(t, mustLoad(t, NewResource(patientsSpec)).Render(c, env))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Jane Roe")
	assert.Contains(t, body, "<td>41</td>")
	assert.Contains(t, body, "Greg House")
	assert.Contains(t, body, "/dashboard/appointments")
	api.AssertExpectations(t)
}

func TestResource_RenderFetchFailureShownInline(t *testing.T) {
	api := new(MockAPI)
	api.On("Do", http.MethodGet, "/patients", nil).
		Return(nil, &apiclient.StatusError{StatusCode: http.StatusInternalServerError, Message: "database offline"})

	c, rec := newContext(http.MethodGet, "/dashboard/patients", nil)
	err := mustLoad(t, NewResource(patientsSpec)).Render(c, Env{API: api, Session: doctorSession(), Path: "/dashboard/patients"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "database offline")
	assert.Contains(t, rec.Body.String(), "No records.")
}

func TestResource_RenderReturnsUnauthorized(t *testing.T) {
	api := new(MockAPI)
	api.On("Do", http.MethodGet, "/patients", nil).
		Return(nil, &apiclient.StatusError{StatusCode: http.StatusUnauthorized})

	c, rec := newContext(http.MethodGet, "/dashboard/patients", nil)
	err := mustLoad(t, NewResource(patientsSpec)).Render(c, Env{API: api, Session: doctorSession()})

	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.False(t, c.Response().Committed)
	assert.Zero(t, rec.Body.Len())
}

func TestResource_Act(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		setup      func(api *MockAPI)
		wantStatus int
		wantBody   string
	}{
		{
			name: "create",
			form: url.Values{"_action": {"create"}, "name": {"Jane Roe"}, "age": {"41"}},
			setup: func(api *MockAPI) {
				api.On("Do", http.MethodPost, "/patients", map[string]any{"name": "Jane Roe", "age": float64(41)}).Return(nil, nil)
			},
			wantStatus: http.StatusSeeOther,
		},
		{
			name: "delete",
			form: url.Values{"_action": {"delete"}, "id": {"3"}},
			setup: func(api *MockAPI) {
				api.On("Do", http.MethodDelete, "/patients/3", nil).Return(nil, nil)
			},
			wantStatus: http.StatusSeeOther,
		},
		{
			name: "update",
			form: url.Values{"_action": {"update"}, "id": {"3"}, "name": {"Jane Doe"}},
			setup: func(api *MockAPI) {
				api.On("Do", http.MethodPut, "/patients/3", map[string]any{"name": "Jane Doe"}).Return(nil, nil)
			},
			wantStatus: http.StatusSeeOther,
		},
		{
			name: "delete keeps the id inside the collection",
			form: url.Values{"_action": {"delete"}, "id": {"../users/1"}},
			setup: func(api *MockAPI) {
				api.On("Do", http.MethodDelete, "/patients/..%2Fusers%2F1", nil).Return(nil, nil)
			},
			wantStatus: http.StatusSeeOther,
		},
		{
			name: "dot id rejected",
			form: url.Values{"_action": {"update"}, "id": {".."}, "name": {"Jane Doe"}},
			setup: func(api *MockAPI) {
				api.On("Do", http.MethodGet, "/patients", nil).Return(`[]`, nil)
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "Invalid record id",
		},
		{
			name: "api unavailable",
			form: url.Values{"_action": {"create"}, "name": {"Jane Roe"}},
			setup: func(api *MockAPI) {
				api.On("Do", http.MethodPost, "/patients", mock.Anything).
					Return(nil, &apiclient.StatusError{StatusCode: http.StatusBadGateway})
				api.On("Do", http.MethodGet, "/patients", nil).Return(`[]`, nil)
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "unavailable right now",
		},
		{
			name: "missing required field",
			form: url.Values{"_action": {"create"}},
			setup: func(api *MockAPI) {
				api.On("Do", http.MethodGet, "/patients", nil).Return(`[]`, nil)
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "Name is required",
		},
		{
			name: "api rejects",
			form: url.Values{"_action": {"create"}, "name": {"Jane Roe"}},
			setup: func(api *MockAPI) {
				api.On("Do", http.MethodPost, "/patients", mock.Anything).
					Return(nil, &apiclient.StatusError{StatusCode: http.StatusConflict, Message: "Duplicate patient"})
				api.On("Do", http.MethodGet, "/patients", nil).Return(`[]`, nil)
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "Duplicate patient",
		},
		{
			name: "unknown action",
			form: url.Values{"_action": {"archive"}},
			setup: func(api *MockAPI) {
				api.On("Do", http.MethodGet, "/patients", nil).Return(`[]`, nil)
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockAPI)
			tt.setup(api)
			c, rec := newContext(http.MethodPost, "/dashboard/patients", tt.form)
			env := Env{API: api, Session: doctorSession(), Path: "/dashboard/patients"}

			actor := mustLoad(t, NewResource(patientsSpec)).(Actor)
			require.NoError(t, actor.Act(c, env))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusSeeOther {
				assert.Equal(t, "/dashboard/patients", rec.Header().Get(echo.HeaderLocation))
			}
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			api.AssertExpectations(t)
		})
	}
}

func TestResource_ReadOnlyRejectsActions(t *testing.T) {
	spec := patientsSpec
	spec.ReadOnly = true
	c, _ := newContext(http.MethodPost, "/dashboard/audit-logs", url.Values{"_action": {"create"}})

	err := mustLoad(t, NewResource(spec)).(Actor).Act(c, Env{API: new(MockAPI), Session: doctorSession()})
	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusMethodNotAllowed, httpErr.Code)
}

func TestNewResource_RequiresEndpoint(t *testing.T) {
	_, err := NewResource(ResourceSpec{})(context.Background())
	assert.Error(t, err)
}

func TestTotals(t *testing.T) {
	invoices := []Invoice{
		{Total: decimal.RequireFromString("100.10"), Paid: decimal.RequireFromString("100.10")},
		{Total: decimal.RequireFromString("250.00"), Paid: decimal.RequireFromString("50.25")},
		{Total: decimal.RequireFromString("10.00"), Paid: decimal.RequireFromString("12.00")},
	}

	got := Totals(invoices)
	assert.Equal(t, "360.10", got.Billed.StringFixed(2))
	assert.Equal(t, "162.35", got.Paid.StringFixed(2))
	assert.Equal(t, "199.75", got.Outstanding.StringFixed(2))

	empty := Totals(nil)
	assert.True(t, empty.Billed.IsZero())
}

func TestInvoices_Render(t *testing.T) {
	api := new(MockAPI)
	api.On("Do", http.MethodGet, "/invoices", nil).Return(`[
		{"id":1,"invoice_number":"INV-1","patient_name":"Jane Roe","status":"PARTIAL","total_amount":"120.50","paid_amount":20},
		{"id":2,"invoice_number":"INV-2","patient_name":"John Roe","status":"PAID","total_amount":80,"paid_amount":"80.00"}
	]`, nil)

	c, rec := newContext(http.MethodGet, "/dashboard/billing", nil)
	p := mustLoad(t, NewInvoices(ResourceSpec{Endpoint: "/invoices"}))
	require.NoError(t, p.Render(c, Env{API: api, Session: doctorSession(), Path: "/dashboard/billing"}))

	body := rec.Body.String()
	assert.Contains(t, body, "INV-1")
	assert.Contains(t, body, "200.50")
	assert.Contains(t, body, "100.00")
	assert.Contains(t, body, "100.50")
}

func TestInvoices_ActErrorUsesInvoiceView(t *testing.T) {
	api := new(MockAPI)
	api.On("Do", http.MethodGet, "/invoices", nil).Return(`[]`, nil)

	c, rec := newContext(http.MethodPost, "/dashboard/billing", url.Values{"_action": {"delete"}})
	p := mustLoad(t, NewInvoices(ResourceSpec{Endpoint: "/invoices"}))
	require.NoError(t, p.(Actor).Act(c, Env{API: api, Session: doctorSession(), Path: "/dashboard/billing"}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Outstanding")
	assert.Contains(t, rec.Body.String(), "Missing record id")
}

func TestLanding_Render(t *testing.T) {
	api := new(MockAPI)
	api.On("Do", http.MethodGet, "/appointments", nil).Return(`[{},{},{}]`, nil)
	api.On("Do", http.MethodGet, "/lab-orders", nil).Return(nil, errors.New("connection refused"))

	c, rec := newContext(http.MethodGet, "/dashboard/doctor", nil)
	p := mustLoad(t, NewLanding(model.RoleDoctor,
		Stat{Label: "Appointments", Endpoint: "/appointments", Path: "/dashboard/appointments"},
		Stat{Label: "Lab orders", Endpoint: "/lab-orders", Path: "/dashboard/laboratory"},
	))
	require.NoError(t, p.Render(c, Env{API: api, Session: doctorSession(), Title: "Doctor Dashboard"}))

	body := rec.Body.String()
	assert.Contains(t, body, "Welcome back, Greg House.")
	assert.Contains(t, body, "Appointments</a>: 3")
	assert.Contains(t, body, "Lab orders</a>: –")
}

func TestLanding_UnauthorizedStat(t *testing.T) {
	api := new(MockAPI)
	api.On("Do", http.MethodGet, "/appointments", nil).Return(nil, &apiclient.StatusError{StatusCode: http.StatusUnauthorized})

	c, _ := newContext(http.MethodGet, "/dashboard/doctor", nil)
	p := mustLoad(t, NewLanding(model.RoleDoctor, Stat{Label: "Appointments", Endpoint: "/appointments"}))
	assert.ErrorIs(t, p.Render(c, Env{API: api, Session: doctorSession()}), apiclient.ErrUnauthorized)
}

func TestProfile_UsesResolvedEmployeeID(t *testing.T) {
	api := new(MockAPI)
	api.On("Do", http.MethodGet, "/employees/7", nil).
		Return(`{"id":7,"first_name":"Gregory","last_name":"House","department":"Diagnostics"}`, nil)

	c, rec := newContext(http.MethodGet, "/dashboard/profile", nil)
	p := mustLoad(t, NewProfile("/employees"))
	require.NoError(t, p.Render(c, Env{API: api, Session: doctorSession()}))

	body := rec.Body.String()
	assert.Contains(t, body, "Gregory House")
	assert.Contains(t, body, "Diagnostics")
	api.AssertExpectations(t)
}

func TestProfile_ExplicitEmployeeIDWins(t *testing.T) {
	sess := doctorSession()
	explicit := int64(42)
	sess.sess.EmployeeID = &explicit

	api := new(MockAPI)
	api.On("Do", http.MethodGet, "/employees/42", nil).Return(`{"id":42,"first_name":"Lisa"}`, nil)

	c, _ := newContext(http.MethodGet, "/dashboard/profile", nil)
	require.NoError(t, mustLoad(t, NewProfile("/employees")).Render(c, Env{API: api, Session: sess}))
	api.AssertExpectations(t)
}

func TestProfile_PatientHasNoEmployee(t *testing.T) {
	api := new(MockAPI)
	sess := fakeSession{ok: true, sess: model.Session{User: model.User{ID: 9, Role: model.RolePatient, Email: "jane@hms.test"}}}

	c, rec := newContext(http.MethodGet, "/dashboard/profile", nil)
	require.NoError(t, mustLoad(t, NewProfile("/employees")).Render(c, Env{API: api, Session: sess}))

	assert.Contains(t, rec.Body.String(), "jane@hms.test")
	api.AssertNotCalled(t, "Do", mock.Anything, mock.Anything, mock.Anything)
}

func TestShell_RendersViews(t *testing.T) {
	shell, err := NewShell()
	require.NoError(t, err)

	c, rec := newContext(http.MethodGet, "/login", nil)
	c.Echo().Renderer = shell

	require.NoError(t, c.Render(http.StatusUnauthorized, ViewLogin, Frame{Title: "Sign in", Error: "Invalid credentials", Body: "a@b.com"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
	assert.Contains(t, rec.Body.String(), `value="a@b.com"`)

	assert.Error(t, shell.Render(rec, "missing", Frame{}, c))
	assert.Error(t, shell.Render(rec, ViewLogin, "not a frame", c))
}

func TestLoading(t *testing.T) {
	shell, err := NewShell()
	require.NoError(t, err)
	c, rec := newContext(http.MethodGet, "/dashboard/patients", nil)
	c.Echo().Renderer = shell

	require.NoError(t, Loading(c, "/dashboard/patients"))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "1; url=/dashboard/patients", rec.Header().Get("Refresh"))
}

func TestCell(t *testing.T) {
	row := map[string]any{
		"s": "text", "i": float64(3), "f": 2.5, "b": true,
		"obj": map[string]any{"name": "Cardiology"}, "nil": nil,
	}
	assert.Equal(t, "text", cell(row, "s"))
	assert.Equal(t, "3", cell(row, "i"))
	assert.Equal(t, "2.50", cell(row, "f"))
	assert.Equal(t, "yes", cell(row, "b"))
	assert.Equal(t, "Cardiology", cell(row, "obj"))
	assert.Equal(t, "", cell(row, "nil"))
	assert.Equal(t, "", cell(row, "missing"))
}
