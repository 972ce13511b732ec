package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrDuplicateCredential is returned when the email is already registered.
	ErrDuplicateCredential = errors.New("email already registered")
	// ErrInvalidCredential is returned when the email or the password is wrong.
	ErrInvalidCredential = errors.New("unable to login")
	// ErrUnauthenticated is returned when a bearer token is missing, invalid or revoked.
	ErrUnauthenticated = errors.New("please authenticate")
	// ErrInvalidField is returned for unknown or invalid input fields.
	ErrInvalidField = errors.New("invalid field")
	// ErrNotFound is returned when a user or task does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidAvatar is returned when an uploaded avatar is rejected.
	ErrInvalidAvatar = errors.New("invalid avatar")
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

// MapErrorToHTTP maps domain errors to HTTP errors. Invalid field and
// avatar errors keep their wrapped message so validation details reach
// the client.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrDuplicateCredential):
		return NewHTTPError(http.StatusBadRequest, ErrDuplicateCredential.Error(), "DUPLICATE_CREDENTIAL")
	case errors.Is(err, ErrInvalidCredential):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidCredential.Error(), "INVALID_CREDENTIAL")
	case errors.Is(err, ErrUnauthenticated):
		return NewHTTPError(http.StatusUnauthorized, ErrUnauthenticated.Error(), "UNAUTHENTICATED")
	case errors.Is(err, ErrInvalidField):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_FIELD")
	case errors.Is(err, ErrInvalidAvatar):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_AVATAR")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, ErrNotFound.Error(), "NOT_FOUND")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
