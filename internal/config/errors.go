package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/dashwire/internal/config/loader"
)

// Errors returned by configuration operations.
var (
	// ErrValidationFailed indicates the merged configuration is invalid.
	ErrValidationFailed = errors.New("validation failed")

	// ErrFileNotFound indicates an explicitly named config file is missing.
	ErrFileNotFound = loader.ErrNotFound
)

// ValidationError lists every invalid setting found by Validate.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(e.Problems, "; "))
}

// Unwrap returns ErrValidationFailed.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
