package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/habitquest/internal/logger"
)

// Error taxonomy shared by every I/O-touching component. Callers match with errors.Is.
var (
	// ErrValidation is returned when user input (e.g. a habit name) is rejected before any mutation
	ErrValidation = errors.New("validation error")
	// ErrAlreadyCompletedToday is returned when a habit was already completed on the current calendar day
	ErrAlreadyCompletedToday = errors.New("habit already completed today")
	// ErrNetwork is returned when the remote store cannot be reached or answers with a failure
	ErrNetwork = errors.New("network error")
	// ErrStorage is returned when the local key-value store fails to read or write
	ErrStorage = errors.New("storage error")
	// ErrNotFound is returned when an operation targets a habit that does not exist
	ErrNotFound = errors.New("not found")
)

// Validation returns an ErrValidation carrying a user-facing message
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Storage classifies a low-level persistence failure
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

// Network classifies a remote store failure. ErrNotFound passes through untouched.
func Network(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrNetwork, op, err)
}

// NotFound returns an ErrNotFound for the given kind and id
func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

// IsExpected reports whether err is part of normal use (bad input, completion gate)
// rather than a failure worth logging.
func IsExpected(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrAlreadyCompletedToday)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
