package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidAmount is returned when an amount or cost is not a positive whole number.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidRequest is returned when a request body does not match its schema.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthenticated is returned when the caller credential is missing or unusable.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden is returned when the caller acts on another user's account.
	ErrForbidden = errors.New("access denied")
	// ErrNotFound is returned when a uid is unknown.
	ErrNotFound = errors.New("user not found")
	// ErrConflict is returned when an email is already registered.
	ErrConflict = errors.New("email already registered")
	// ErrSerialAlreadyClaimed is returned when a device serial has already earned points.
	ErrSerialAlreadyClaimed = errors.New("serial already claimed")
	// ErrInsufficientBalance is returned when a redemption costs more than the balance.
	ErrInsufficientBalance = errors.New("insufficient points")
	// ErrStorageUnavailable is returned when the user store timed out or is unreachable.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Unauthenticated reasons. Expired is distinct so clients can prompt for sign-in.
const (
	ReasonNoToken      = "no token"
	ReasonInvalidToken = "invalid token"
	ReasonExpired      = "expired"
	ReasonUserNotFound = "user not found"
)

// UnauthenticatedError carries the reason a credential was rejected.
type UnauthenticatedError struct {
	Reason string
}

func (e *UnauthenticatedError) Error() string {
	return "unauthenticated: " + e.Reason
}

// Unwrap lets errors.Is match ErrUnauthenticated.
func (e *UnauthenticatedError) Unwrap() error {
	return ErrUnauthenticated
}

// Unauthenticated builds an UnauthenticatedError for reason.
func Unauthenticated(reason string) error {
	return &UnauthenticatedError{Reason: reason}
}

// RetryAfterSeconds is the Retry-After value sent with retryable failures.
const RetryAfterSeconds = "1"

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Reason     string
	Retryable  bool
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
		Error:  e.Message,
		Code:   e.Code,
		Reason: e.Reason,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors are matched
// by kind and reported with the kind's message only; unknown errors become a
// generic 500 so internals never reach the client.
func MapErrorToHTTP(err error) *HTTPError {
	var unauth *UnauthenticatedError
	switch {
	case errors.As(err, &unauth):
		httpErr := NewHTTPError(http.StatusUnauthorized, ErrUnauthenticated.Error(), "UNAUTHENTICATED")
		httpErr.Reason = unauth.Reason
		return httpErr
	case errors.Is(err, ErrUnauthenticated):
		return NewHTTPError(http.StatusUnauthorized, ErrUnauthenticated.Error(), "UNAUTHENTICATED")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInvalidAmount):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidAmount.Error(), "INVALID_AMOUNT")
	case errors.Is(err, ErrInvalidRequest):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidRequest.Error(), "INVALID_REQUEST")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, ErrNotFound.Error(), "NOT_FOUND")
	case errors.Is(err, ErrSerialAlreadyClaimed):
		return NewHTTPError(http.StatusConflict, ErrSerialAlreadyClaimed.Error(), "SERIAL_ALREADY_CLAIMED")
	case errors.Is(err, ErrConflict):
		return NewHTTPError(http.StatusConflict, ErrConflict.Error(), "CONFLICT")
	case errors.Is(err, ErrInsufficientBalance):
		return NewHTTPError(http.StatusBadRequest, ErrInsufficientBalance.Error(), "INSUFFICIENT_BALANCE")
	case errors.Is(err, ErrStorageUnavailable):
		httpErr := NewHTTPError(http.StatusServiceUnavailable, ErrStorageUnavailable.Error(), "STORAGE_UNAVAILABLE")
		httpErr.Retryable = true
		return httpErr
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

// IsExpected reports whether err belongs to the taxonomy, as opposed to an
// unexpected internal failure that should be logged with detail.
func IsExpected(err error) bool {
	return MapErrorToHTTP(err).StatusCode != http.StatusInternalServerError
}
