package register

import (
	"errors"
	"strings"
)

// ValidationError reports which rules a rejected mutation violated (missing
// title, unknown status, absent rationale keys). Nothing is persisted when
// one is returned.
type ValidationError struct {
	Rules []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Rules, ", ")
}

func NewValidationError(rules ...string) *ValidationError {
	return &ValidationError{Rules: rules}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
