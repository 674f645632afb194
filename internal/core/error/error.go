package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// ToolErrorMessage describes a failed plan-catalog tool call.
	ToolErrorMessage = "tool call failed"
	// GenerationErrorMessage describes a failed generation pipeline run.
	GenerationErrorMessage = "response generation failed"
)

// ErrNotFound is returned by lookups that completed but matched nothing.
var ErrNotFound = errors.New("not found")

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapTool tags a tool failure with the tool name. Not-found lookups keep a 404.
func WrapTool(name string, err error) error {
	if err == nil {
		return nil
	}
	status := http.StatusBadGateway
	if errors.Is(err, ErrNotFound) {
		status = http.StatusNotFound
	}
	return New(err, status, fmt.Sprintf("%s (%s)", ToolErrorMessage, name))
}

// WrapGeneration wraps a failure raised while generating a response.
func WrapGeneration(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusInternalServerError, GenerationErrorMessage)
}

// StatusOf returns the HTTP status carried by err, or 500 when it carries none.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
