package middleware

import (
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"hmsportal/internal/auth"
)

const (
	clientIDKey    = "client_id"
	clientTokenKey = "client_token"
)

// ClientConfig configures the client identity cookie.
type ClientConfig struct {
	Tokens     *auth.JWTService
	CookieName string
	Secure     bool
	// Skipper excludes paths such as /healthz and /metrics.
	Skipper func(c echo.Context) bool
}

// ClientID returns the client id set by ClientIdentity, or "".
func ClientID(c echo.Context) string {
	id, _ := c.Get(clientIDKey).(string)
	return id
}

// ClientIdentity makes sure every request belongs to a client. A valid signed
// cookie is accepted as is; a missing, expired or tampered one is replaced by a
// fresh client id, which starts with an empty session.
func ClientIdentity(cfg ClientConfig) echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		Skipper:     cfg.Skipper,
		TokenLookup: "cookie:" + cfg.CookieName,
		ContextKey:  clientTokenKey,
		ParseTokenFunc: func(_ echo.Context, token string) (interface{}, error) {
			return cfg.Tokens.ValidateToken(token)
		},
		// Invalid cookies are not an error here: the client just gets a new id.
		ErrorHandler: func(echo.Context, error) error {
			return nil
		},
		ContinueOnIgnoredError: true,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		identify := func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}
			if claims, ok := c.Get(clientTokenKey).(*auth.ClientClaims); ok && claims != nil {
				c.Set(clientIDKey, claims.ClientID)
				return next(c)
			}

			id, token, err := cfg.Tokens.IssueClientToken()
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "issue client token").SetInternal(err)
			}
			c.SetCookie(&http.Cookie{
				Name:     cfg.CookieName,
				Value:    token,
				Path:     "/",
				Expires:  time.Now().Add(cfg.Tokens.Expiry()),
				MaxAge:   int(cfg.Tokens.Expiry().Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(clientIDKey, id)
			return next(c)
		}
		return verify(identify)
	}
}
