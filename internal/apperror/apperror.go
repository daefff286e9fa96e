// Package apperror defines the domain errors shared by the repository,
// service and handler layers.
//
// Every domain error is an *AppError wrapping one of the sentinel errors
// below, so callers can branch with errors.Is without caring which layer
// produced it. Anything that is NOT an *AppError is treated as a store or
// internal failure and is never shown to the client verbatim.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Machine-readable codes for the conflict family. The HTTP layer uses them
// as the "error" field so clients can tell an already-liked post from a
// self-follow without parsing the message.
const (
	CodeAlreadyLiked     = "already_liked"
	CodeNotLiked         = "not_liked"
	CodeAlreadyFollowing = "already_following"
	CodeNotFollowing     = "not_following"
	CodeSelfFollow       = "self_follow"
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Code    string // Optional: machine-readable reason
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundOrUnauthorized is returned by owner-only deletes. Missing rows and
// rows owned by someone else produce the same error so the caller cannot
// learn whether other users' content exists.
func NotFoundOrUnauthorized(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found or unauthorized", resource),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// ConflictCode returns a conflict carrying a machine-readable code.
func ConflictCode(code, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Code:    code,
	}
}

func AlreadyLiked() *AppError {
	return ConflictCode(CodeAlreadyLiked, "post already liked")
}

func NotLiked() *AppError {
	return ConflictCode(CodeNotLiked, "like not found")
}

func AlreadyFollowing() *AppError {
	return ConflictCode(CodeAlreadyFollowing, "already following this user")
}

func NotFollowing() *AppError {
	return ConflictCode(CodeNotFollowing, "not following this user")
}

func SelfFollow() *AppError {
	return ConflictCode(CodeSelfFollow, "cannot follow yourself")
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated means no valid identity was presented (bad credentials,
// missing or expired token). HTTP handlers map this to 401.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}
