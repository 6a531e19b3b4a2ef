// Package util contains small shared helpers for argument validation.
package util

import "fmt"

// ValidationError reports a mismatch between a declared parameter and a
// supplied argument value.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// CheckType validates a value against a semantic type tag. Supported tags:
// "string", "number", "bool" and "any". Unknown tags behave like "any" so
// adding tags stays backwards compatible.
func CheckType(field, tag string, v any) error {
	switch tag {
	case "string":
		if _, ok := v.(string); !ok {
			return NewValidationError(field, "expected type string, got %T", v)
		}
	case "number":
		switch v.(type) {
		case int, int32, int64, float32, float64:
		default:
			return NewValidationError(field, "expected type number, got %T", v)
		}
	case "bool":
		if _, ok := v.(bool); !ok {
			return NewValidationError(field, "expected type bool, got %T", v)
		}
	}
	return nil
}
