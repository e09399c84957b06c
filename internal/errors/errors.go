// Package errors defines the typed failure taxonomy surfaced by every
// service. Each error carries a stable code, a human-readable message and
// the HTTP status the transport layer should respond with.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure kind.
type Code string

const (
	CodeInvalidToken         Code = "INVALID_TOKEN"
	CodeExpiredToken         Code = "EXPIRED_TOKEN"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeUserNotFound         Code = "USER_NOT_FOUND"
	CodeTaskNotFound         Code = "TASK_NOT_FOUND"
	CodeUserExists           Code = "USER_EXISTS"
	CodeWrongPassword        Code = "WRONG_PASSWORD"
	CodeInvalidDifficulty    Code = "INVALID_DIFFICULTY"
	CodeInvalidAmount        Code = "INVALID_AMOUNT"
	CodeNotOwner             Code = "NOT_OWNER"
	CodeTaskAlreadyCompleted Code = "TASK_ALREADY_COMPLETED"
	CodeValidation           Code = "VALIDATION_ERROR"
	CodePersistence          Code = "PERSISTENCE_ERROR"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// ServiceError is the terminal failure returned to callers. No retries are
// attempted anywhere; whoever receives one reports it and stops.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.cause }

// WithDetails attaches a detail entry and returns the error for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New constructs a ServiceError with the given code, message and status.
func New(code Code, message string, status int) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status}
}

// InvalidToken reports a malformed or badly signed bearer token.
func InvalidToken(cause error) *ServiceError {
	return &ServiceError{Code: CodeInvalidToken, Message: "invalid token", HTTPStatus: http.StatusUnauthorized, cause: cause}
}

// ExpiredToken reports a token whose expiry claim has elapsed.
func ExpiredToken() *ServiceError {
	return New(CodeExpiredToken, "token expired", http.StatusUnauthorized)
}

// Unauthorized reports a missing or unusable credential.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "unauthorized"
	}
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

// UserNotFound reports an unresolvable user id or username.
func UserNotFound() *ServiceError {
	return New(CodeUserNotFound, "user not found", http.StatusNotFound)
}

// TaskNotFound reports an unresolvable task id.
func TaskNotFound(id string) *ServiceError {
	return New(CodeTaskNotFound, "task not found", http.StatusNotFound).WithDetails("task_id", id)
}

// UserExists reports a registration against an already taken username.
func UserExists(username string) *ServiceError {
	return New(CodeUserExists, "username already taken", http.StatusConflict).WithDetails("username", username)
}

// WrongPassword reports a failed password verification.
func WrongPassword() *ServiceError {
	return New(CodeWrongPassword, "wrong password", http.StatusUnauthorized)
}

// InvalidDifficulty reports a difficulty outside the supported set.
func InvalidDifficulty(difficulty int) *ServiceError {
	return New(CodeInvalidDifficulty, "difficulty must be 1, 2 or 3", http.StatusBadRequest).WithDetails("difficulty", difficulty)
}

// InvalidAmount reports a rejected XP amount. Negative gains have no
// level-down counterpart, so the engine refuses them outright.
func InvalidAmount(amount int) *ServiceError {
	return New(CodeInvalidAmount, "xp amount must not be negative", http.StatusBadRequest).WithDetails("amount", amount)
}

// NotOwner reports an operation on a task owned by someone else.
func NotOwner() *ServiceError {
	return New(CodeNotOwner, "task belongs to another user", http.StatusForbidden)
}

// TaskAlreadyCompleted reports a mutation against a completed task.
func TaskAlreadyCompleted(id string) *ServiceError {
	return New(CodeTaskAlreadyCompleted, "completed tasks cannot be modified", http.StatusConflict).WithDetails("task_id", id)
}

// Validation reports a malformed request field.
func Validation(message string) *ServiceError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// Persistence wraps a storage failure.
func Persistence(cause error) *ServiceError {
	return &ServiceError{Code: CodePersistence, Message: "persistence failure", HTTPStatus: http.StatusInternalServerError, cause: cause}
}

// RateLimitExceeded reports a throttled request.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return New(CodeRateLimitExceeded, "rate limit exceeded", http.StatusTooManyRequests).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, cause: cause}
}

// GetServiceError extracts a ServiceError from an error chain, or nil.
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

// HasCode reports whether err carries the given failure code.
func HasCode(err error, code Code) bool {
	serviceErr := GetServiceError(err)
	return serviceErr != nil && serviceErr.Code == code
}
