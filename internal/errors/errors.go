package errors

import (
	"errors"
	"fmt"
)

// Common error types for the identity verification service
var (
	// Configuration errors
	ErrNotConfigured = errors.New("identity verification is not configured")

	// Session errors. An expired session is reported like any other invalid session.
	ErrInvalidOrExpiredSession = errors.New("invalid or expired session")
	ErrSessionExpired          = fmt.Errorf("session expired: %w", ErrInvalidOrExpiredSession)
	ErrCorruptRecord           = errors.New("corrupt session record")

	// Provider errors
	ErrVerificationFailed = errors.New("identity verification failed")

	// Input errors
	ErrInvalidInput = errors.New("invalid input")

	// Store errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
