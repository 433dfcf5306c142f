package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrNotAuthenticated is returned when a request has no restored session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when the session's role may not open a route.
	ErrForbidden = errors.New("role not allowed")
	// ErrRouteNotFound is returned when no route entry matches a path.
	ErrRouteNotFound = errors.New("route not found")
	// ErrPageUnavailable is returned when a page fails to load or render.
	ErrPageUnavailable = errors.New("page unavailable")
	// ErrUpstream is returned when the hospital API answers with an error.
	ErrUpstream = errors.New("upstream api error")
	// ErrTooManyRequests is returned when login attempts are throttled.
	ErrTooManyRequests = errors.New("too many requests")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return NewHTTPError(http.StatusUnauthorized, ErrNotAuthenticated.Error(), "NOT_AUTHENTICATED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN")
	case errors.Is(err, ErrRouteNotFound):
		return NewHTTPError(http.StatusNotFound, ErrRouteNotFound.Error(), "ROUTE_NOT_FOUND")
	case errors.Is(err, ErrPageUnavailable):
		return NewHTTPError(http.StatusInternalServerError, ErrPageUnavailable.Error(), "PAGE_UNAVAILABLE")
	case errors.Is(err, ErrUpstream):
		return NewHTTPError(http.StatusBadGateway, ErrUpstream.Error(), "UPSTREAM_ERROR")
	case errors.Is(err, ErrTooManyRequests):
		return NewHTTPError(http.StatusTooManyRequests, ErrTooManyRequests.Error(), "TOO_MANY_REQUESTS")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
