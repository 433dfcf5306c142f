package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"hmsportal/internal/apiclient"
	"hmsportal/internal/model"
)

// DefaultLoginFailure is shown when the API gives no reason for a rejected login.
const DefaultLoginFailure = "Invalid credentials"

var (
	// ErrMalformedLogin is returned when a 2xx login answer lacks token or user.
	ErrMalformedLogin = errors.New("login response missing token or user")
)

// AuthError describes a failed call to the authentication endpoint.
type AuthError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("login rejected (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("login failed: %s", e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// AuthService talks to the remote authentication endpoint.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*model.LoginResponse, error)
}

type authService struct {
	client    *apiclient.Client
	loginPath string
}

// NewAuthService creates a new authentication service.
func NewAuthService(client *apiclient.Client, loginPath string) AuthService {
	return &authService{
		client:    client,
		loginPath: loginPath,
	}
}

// Login posts the credentials and returns the token and session payload.
// Every failure is an *AuthError carrying a message fit for the login form.
func (s *authService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	ctx = apiclient.WithoutResponseInterceptors(ctx)

	var resp model.LoginResponse
	err := s.client.Do(ctx, http.MethodPost, s.loginPath, model.LoginRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
	}, &resp)
	if err != nil {
		var statusErr *apiclient.StatusError
		if errors.As(err, &statusErr) {
			msg := statusErr.Message
			if msg == "" {
				msg = DefaultLoginFailure
			}
			return nil, &AuthError{Status: statusErr.StatusCode, Message: msg, Err: err}
		}
		return nil, &AuthError{Message: DefaultLoginFailure, Err: err}
	}

	if resp.Token == "" || resp.User == nil || resp.User.Role == "" {
		return nil, &AuthError{Message: DefaultLoginFailure, Err: ErrMalformedLogin}
	}
	return &resp, nil
}
