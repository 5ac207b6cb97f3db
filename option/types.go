package option

import (
	"fmt"
	"strings"
)

// Type is the exercise right of a vanilla option.
type Type string

const (
	Call Type = "call"
	Put  Type = "put"
)

// ParseType accepts c, call, p and put in any case.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "call":
		return Call, nil
	case "p", "put":
		return Put, nil
	default:
		return "", &FieldError{Field: "option_type", Value: s, Reason: "must be call or put"}
	}
}

// FieldError reports an option field that failed validation.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("option: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// RowError locates a FieldError (or a parse failure) in an input table.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("option: line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
