// Package apperr defines sentinel errors shared across Fehu layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// Validationf wraps ErrValidation with detail for logs. Handlers match it
// with errors.Is and never expose the detail to clients.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
