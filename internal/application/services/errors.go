package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"blog-service/internal/domain/entities"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrAlreadyLiked       = errors.New("post already liked")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrRateLimited        = errors.New("too many attempts, please try again later")
	ErrInvalidResetLink   = errors.New("invalid password reset link")
)

// InvalidCredentialsError is a failed login. It matches ErrInvalidCredentials
// and reports how many attempts remain before the login is throttled.
type InvalidCredentialsError struct {
	AttemptsLeft int
}

func (e *InvalidCredentialsError) Error() string {
	return ErrInvalidCredentials.Error()
}

func (e *InvalidCredentialsError) Is(target error) bool {
	return target == ErrInvalidCredentials
}

// ValidationError carries per-field messages for a rejected form.
type ValidationError struct {
	Fields entities.FieldErrors
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		if f == "" {
			f = "form"
		}
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

func newValidationError(fields entities.FieldErrors) *ValidationError {
	return &ValidationError{Fields: fields}
}

// fieldErrorsOf extracts entity validation messages from err, or nil.
func fieldErrorsOf(err error) entities.FieldErrors {
	var invalid *entities.InvalidError
	if errors.As(err, &invalid) {
		return invalid.Fields
	}
	return nil
}

// MediaStore keeps uploaded files and hands back their stored paths.
type MediaStore interface {
	Save(dir, originalName string, src io.Reader) (string, error)
	Remove(rel string)
}

// PasswordResetMailer delivers password reset links.
type PasswordResetMailer interface {
	SendPasswordReset(ctx context.Context, recipientEmail, username, link string) error
}
