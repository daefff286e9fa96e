package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("post", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "NotFoundOrUnauthorized wraps ErrNotFound",
			err:       NotFoundOrUnauthorized("comment"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("image_url", "image URL is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "AlreadyLiked wraps ErrConflict",
			err:       AlreadyLiked(),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "SelfFollow wraps ErrConflict",
			err:       SelfFollow(),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated("invalid credentials"),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "wrapped with fmt.Errorf still matches",
			err:       fmt.Errorf("liking post: %w", AlreadyLiked()),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("post", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "NotLiked does NOT match ErrNotFound",
			err:       NotLiked(),
			target:    ErrNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("post", "abc123"),
			wantMessage: "post not found with id abc123",
		},
		{
			name:        "NotFoundOrUnauthorized hides ownership",
			err:         NotFoundOrUnauthorized("post"),
			wantMessage: "post not found or unauthorized",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("comment_text", "comment text is required"),
			wantMessage: "comment text is required",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("user", "alice"),
			wantMessage: "user conflict with id alice",
		},
		{
			name:        "SelfFollow message",
			err:         SelfFollow(),
			wantMessage: "cannot follow yourself",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestConflictCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		code string
	}{
		{AlreadyLiked(), CodeAlreadyLiked},
		{NotLiked(), CodeNotLiked},
		{AlreadyFollowing(), CodeAlreadyFollowing},
		{NotFollowing(), CodeNotFollowing},
		{SelfFollow(), CodeSelfFollow},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("post", "abc123")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}
