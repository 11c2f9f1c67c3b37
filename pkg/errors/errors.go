package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Common error constructors

// BadRequest creates a 400 error
func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

// Forbidden creates a 403 error
func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

// NotFound creates a 404 error
func NotFound(message string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: message,
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

// Conflict creates a 409 error
func Conflict(message string, err error) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     err,
	}
}

// Internal creates a 500 error
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Dispatch-domain errors. These are the only failure modes the ride core
// reports to callers; none of them are retried server-side.

var (
	// ErrInvalidTransition is returned when a ride-state change is not legal
	// from the ride's current status. The ride record is left unchanged.
	ErrInvalidTransition = &AppError{
		Code:    "INVALID_TRANSITION",
		Message: "Ride is not in a state that allows this action",
		Status:  http.StatusConflict,
	}

	// ErrAlreadyAccepted is returned to a driver who lost the acceptance race.
	ErrAlreadyAccepted = &AppError{
		Code:    "ALREADY_ACCEPTED",
		Message: "Ride has already been accepted by another driver",
		Status:  http.StatusConflict,
	}

	// ErrActiveRideExists guards the one-active-ride-per-user invariant.
	ErrActiveRideExists = &AppError{
		Code:    "ACTIVE_RIDE_EXISTS",
		Message: "User already has a ride in progress",
		Status:  http.StatusConflict,
	}

	ErrRideNotFound = NotFound("Ride not found", nil)
	ErrUserNotFound = NotFound("User not found", nil)

	ErrNotParticipant = Forbidden("Not a participant of this ride", nil)
	ErrChatClosed     = Forbidden("Chat is closed for this ride", nil)

	ErrAlreadyRated  = Conflict("Ride has already been rated", nil)
	ErrInvalidRating = BadRequest("Rating must be between 1 and 5", nil)
)

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError attempts to convert an error to AppError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	// Return generic internal error if not an AppError
	return Internal("An unexpected error occurred", err)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
