package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmsportal/internal/apiclient"
	"hmsportal/internal/auth"
	"hmsportal/internal/config"
	"hmsportal/internal/handler"
	"hmsportal/internal/metrics"
	"hmsportal/internal/middleware"
	"hmsportal/internal/route"
	"hmsportal/internal/service"
	"hmsportal/internal/session"
	"hmsportal/internal/storage"
)

// hospitalAPI fakes the remote REST API.
type hospitalAPI struct {
	revoked atomic.Bool
	logins  atomic.Int32
}

func (h *hospitalAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/api/auth/login" {
		h.logins.Add(1)
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Email == "a@b.com" && body.Password == "pw" {
			_, _ = w.Write([]byte(`{"token":"t1","user":{"id":1,"role":"DOCTOR","email":"a@b.com"},"employee_id":7}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
		return
	}
	if r.Header.Get("Authorization") != "Bearer t1" || h.revoked.Load() {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired"}`))
		return
	}
	_, _ = w.Write([]byte(`[{"id":3,"name":"Jane Roe"}]`))
}

type portal struct {
	e       *echo.Echo
	base    *storage.Memory
	api     *hospitalAPI
	gather  *prometheus.Registry
	cookies []*http.Cookie
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	fake := &hospitalAPI{}
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		ClientCookieName:   "hms_client",
		RestoreWait:        time.Second,
		PageLoadWait:       5 * time.Second,
		LoginRatePerMinute: 600,
		LoginBurst:         100,
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	client, err := apiclient.New(ts.URL+"/api", apiclient.WithObserver(collector.RecordAPIResponse))
	require.NoError(t, err)

	base := storage.NewMemory()
	sessions := session.NewRegistry(base, service.NewAuthService(client, "/auth/login"), zerolog.Nop(), collector, 0)
	t.Cleanup(sessions.Install(client))

	table, err := route.Default(collector)
	require.NoError(t, err)

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{PerMinute: cfg.LoginRatePerMinute, Burst: cfg.LoginBurst})
	t.Cleanup(limiter.Stop)

	e := echo.New()
	require.NoError(t, Register(e, cfg, zerolog.Nop(),
		auth.NewJWTService("secret", time.Hour),
		limiter,
		reg,
		handler.NewAuthHandler(sessions, table, collector, cfg.RestoreWait),
		handler.NewPageHandler(table, sessions, client, collector, cfg.RestoreWait, cfg.PageLoadWait),
		handler.NewRoutesHandler(table, sessions, cfg.RestoreWait),
	))

	return &portal{e: e, base: base, api: fake, gather: reg}
}

func (p *portal) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range p.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	p.e.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		p.cookies = cookies
	}
	return rec
}

func (p *portal) doJSON(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range p.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	p.e.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		p.cookies = cookies
	}
	return rec
}

func TestScenario_LoginThenForcedLogout(t *testing.T) {
	p := newPortal(t)

	// Empty storage: protected pages send the browser to the login page.
	rec := p.do(http.MethodGet, "/dashboard/patients", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	require.NotEmpty(t, p.cookies, "client cookie issued")

	rec = p.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Valid credentials land on the role's dashboard.
	rec = p.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"pw"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard/doctor", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, 2, p.base.Len(), "token and session persisted")

	rec = p.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Doctor Dashboard")

	rec = p.do(http.MethodGet, "/dashboard/patients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Jane Roe")

	// The API starts rejecting the token: back to login, storage cleared.
	p.api.revoked.Store(true)
	rec = p.do(http.MethodGet, "/dashboard/patients", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	assert.Zero(t, p.base.Len())

	rec = p.do(http.MethodGet, "/dashboard/appointments", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func TestLogin_FailureShownInline(t *testing.T) {
	p := newPortal(t)

	rec := p.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
	assert.Contains(t, rec.Body.String(), `value="a@b.com"`)
	assert.Zero(t, p.base.Len())

	rec = p.do(http.MethodPost, "/login", url.Values{"email": {"not-an-email"}, "password": {"pw"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, int32(1), p.api.logins.Load(), "invalid form never reaches the API")
}

func TestLogout(t *testing.T) {
	p := newPortal(t)
	p.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"pw"}})
	require.Equal(t, 2, p.base.Len())

	for i := 0; i < 2; i++ {
		rec := p.do(http.MethodPost, "/logout", url.Values{})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
		assert.Zero(t, p.base.Len())
	}

	rec := p.do(http.MethodGet, "/dashboard", nil)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func TestRoleGate(t *testing.T) {
	p := newPortal(t)
	p.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"pw"}})

	rec := p.do(http.MethodGet, "/dashboard/users", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/unauthorized", rec.Header().Get(echo.HeaderLocation))

	rec = p.do(http.MethodGet, "/unauthorized", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "not allowed")

	rec = p.do(http.MethodGet, "/no/such/page", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
}

func TestSessionAPI(t *testing.T) {
	p := newPortal(t)

	rec := p.doJSON(http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_AUTHENTICATED")

	rec = p.doJSON(http.MethodPost, "/api/session", `{"email":"a@b.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")

	rec = p.doJSON(http.MethodPost, "/api/session", `{"email":"a@b.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created handler.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "DOCTOR", string(created.Role))
	assert.Equal(t, "/dashboard/doctor", created.Home)
	require.NotNil(t, created.EmployeeID)
	assert.Equal(t, int64(7), *created.EmployeeID)

	rec = p.doJSON(http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = p.doJSON(http.MethodGet, "/api/routes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var routes []handler.RouteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &routes))
	require.NotEmpty(t, routes)
	assert.Equal(t, "/dashboard/doctor", routes[0].Path)
	assert.True(t, routes[0].Landing)

	rec = p.doJSON(http.MethodGet, "/api/routes/access?path=/dashboard/users", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")

	rec = p.doJSON(http.MethodDelete, "/api/session", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, p.base.Len())

	rec = p.doJSON(http.MethodGet, "/api/routes", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = p.doJSON(http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ROUTE_NOT_FOUND")
}

func TestInfrastructureEndpoints(t *testing.T) {
	p := newPortal(t)
	p.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"pw"}})
	require.Equal(t, http.StatusOK, p.do(http.MethodGet, "/dashboard", nil).Code)
	p.cookies = nil

	rec := p.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec = p.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `portal_logins_total{result="success"} 1`)
	assert.Contains(t, rec.Body.String(), `portal_navigations_total{outcome="render"} 1`)
}

func TestLoginRateLimited(t *testing.T) {
	p := newPortal(t)
	limited := false
	for i := 0; i < 120; i++ {
		rec := p.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"wrong"}})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited)
}
