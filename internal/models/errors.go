package models

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
	}
}

// NewForbiddenError indicates the caller is authenticated but is not allowed
// to perform the requested transition (wrong actor for a swap, not the owner).
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
	}
}

// NewConflictError indicates a violated business precondition: item not
// available, swap not in the required source state, insufficient points.
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
	}
}

// NewStoreError wraps a persistent or blob store failure. Callers may retry;
// the service layer never retries automatically.
func NewStoreError(err error) *AppError {
	return &AppError{
		Code:    "STORE_UNAVAILABLE",
		Message: "Storage backend unavailable",
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
		Err:     err,
	}
}

// statusByCode maps AppError codes to HTTP status codes.
var statusByCode = map[string]int{
	"NOT_FOUND":         fiber.StatusNotFound,
	"VALIDATION_ERROR":  fiber.StatusBadRequest,
	"FORBIDDEN":         fiber.StatusForbidden,
	"CONFLICT":          fiber.StatusConflict,
	"UNAUTHORIZED":      fiber.StatusUnauthorized,
	"STORE_UNAVAILABLE": fiber.StatusServiceUnavailable,
	"INTERNAL_ERROR":    fiber.StatusInternalServerError,
}

// StatusForError resolves the HTTP status for an error, defaulting to 500.
func StatusForError(err error) int {
	if appErr, ok := err.(*AppError); ok {
		if status, ok := statusByCode[appErr.Code]; ok {
			return status
		}
	}
	return fiber.StatusInternalServerError
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	if appErr, ok := err.(*AppError); ok {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}

// RespondWithAppError writes an error response with the status derived from
// the error's code. Use this when the handler has no reason to override it.
func RespondWithAppError(c *fiber.Ctx, err error) error {
	return RespondWithError(c, StatusForError(err), err)
}
