package inventory

import (
	"fmt"
	"strings"
)

// Violation is a single field-level validation failure.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries every violation found in a record, so a caller can
// surface all of them at once instead of fixing one at a time.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Reason))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError is returned when an operation references an id that does not
// exist.
type NotFoundError struct {
	Kind string
	ID   uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}
