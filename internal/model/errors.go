package model

import (
	"fmt"
	"strings"
)

// LoadError reports a dataset that cannot be loaded. It is fatal at startup.
//
// The underlying parse error (if any) can be accessed via errors.Unwrap.
type LoadError struct {
	Source string // source name, e.g. file path or s3 URL
	Line   int    // 1-based data line, 0 when not row specific
	Column string // offending column, "" when not column specific
	Reason string
	cause  error
}

// NewLoadError builds a LoadError wrapping cause.
func NewLoadError(source string, line int, column, reason string, cause error) *LoadError {
	return &LoadError{Source: source, Line: line, Column: column, Reason: reason, cause: cause}
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("load ")
	b.WriteString(e.Source)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %s", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.cause }

// SchemaValidationError reports tool arguments that do not match the declared
// input schema. It is returned to the caller and never retried.
type SchemaValidationError struct {
	Field  string // JSON path of the offending field, e.g. "parameters.bbox.minLat"
	Reason string
}

func (e *SchemaValidationError) Error() string {
	if e.Field == "" {
		return "schema validation: " + e.Reason
	}
	return fmt.Sprintf("schema validation: %s: %s", e.Field, e.Reason)
}

// InvalidIntentError reports arguments that are well-formed but do not
// describe a known intent.
//
// The underlying parse error (if any) can be accessed via errors.Unwrap.
type InvalidIntentError struct {
	Kind   IntentKind
	Field  string
	Reason string
	cause  error
}

// NewInvalidIntentError builds an InvalidIntentError wrapping cause.
func NewInvalidIntentError(kind IntentKind, field, reason string, cause error) *InvalidIntentError {
	return &InvalidIntentError{Kind: kind, Field: field, Reason: reason, cause: cause}
}

func (e *InvalidIntentError) Error() string {
	var b strings.Builder
	b.WriteString("invalid intent")
	if e.Kind != "" {
		fmt.Fprintf(&b, " %s", e.Kind)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

func (e *InvalidIntentError) Unwrap() error { return e.cause }
