package router

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"hmsportal/internal/auth"
	"hmsportal/internal/config"
	"hmsportal/internal/errors"
	"hmsportal/internal/handler"
	"hmsportal/internal/metrics"
	"hmsportal/internal/middleware"
	"hmsportal/internal/nav"
	"hmsportal/internal/page"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger zerolog.Logger,
	tokens *auth.JWTService,
	limiter *middleware.RateLimiter,
	gatherer prometheus.Gatherer,
	authHandler *handler.AuthHandler,
	pageHandler *handler.PageHandler,
	routesHandler *handler.RoutesHandler,
) error {
	shell, err := page.NewShell()
	if err != nil {
		return err
	}
	e.Renderer = shell

	e.Use(echomw.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.ClientIdentity(middleware.ClientConfig{
		Tokens:     tokens,
		CookieName: cfg.ClientCookieName,
		Secure:     cfg.CookieSecure,
		Skipper:    infrastructure,
	}))

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Shell
	e.GET(nav.LoginPath, authHandler.ShowLogin)
	e.POST(nav.LoginPath, authHandler.Login, limiter.Middleware())
	e.POST(nav.LogoutPath, authHandler.Logout)

	// JSON API
	api := e.Group("/api")
	api.POST("/session", authHandler.CreateSession, limiter.Middleware())
	api.GET("/session", authHandler.GetSession)
	api.DELETE("/session", authHandler.DeleteSession)
	api.GET("/routes", routesHandler.List)
	api.GET("/routes/access", routesHandler.Access)
	api.Any("/*", func(c echo.Context) error {
		httpErr := errors.MapErrorToHTTP(errors.ErrRouteNotFound)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	})

	// Everything else goes through the route table.
	e.GET("/", pageHandler.Navigate)
	e.GET("/*", pageHandler.Navigate)
	e.POST("/*", pageHandler.Submit)
	return nil
}

// infrastructure endpoints need no client identity.
func infrastructure(c echo.Context) bool {
	p := c.Path()
	return p == "/healthz" || p == "/metrics" || strings.HasPrefix(p, "/swagger/")
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
