// Package errors provides standardized error types and helpers for the annotate codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a referenced file or resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidAnnotation indicates annotation content that does not conform to its format
	ErrInvalidAnnotation = errors.New("invalid annotation")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidType indicates an argument of an unsupported type
	ErrInvalidType = errors.New("invalid type")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
)

// NotFoundError represents a missing file or resource with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "annotation file", "source text")
	Path     string // Path or identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.Path)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrNotFound, e.Err}
	}
	return []error{ErrNotFound}
}

// AnnotationError represents annotation content that failed to parse or
// validate against its format grammar. Line is 1-based when set; Unit names
// the offending record or key when a line number is not applicable.
type AnnotationError struct {
	Format  string // Format being parsed ("ann", "con", "dict")
	Path    string // File path, if applicable
	Line    int    // Offending line (1-based, 0 if unknown)
	Unit    string // Offending unit (record ID, dictionary key)
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *AnnotationError) Error() string {
	switch {
	case e.Line > 0 && e.Path != "":
		return fmt.Sprintf("invalid %s annotation at %s:%d: %s", e.Format, e.Path, e.Line, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("invalid %s annotation at line %d: %s", e.Format, e.Line, e.Message)
	case e.Unit != "":
		return fmt.Sprintf("invalid %s annotation (%s): %s", e.Format, e.Unit, e.Message)
	case e.Path != "":
		return fmt.Sprintf("invalid %s annotation in %s: %s", e.Format, e.Path, e.Message)
	default:
		return fmt.Sprintf("invalid %s annotation: %s", e.Format, e.Message)
	}
}

// Unwrap exposes both the sentinel and any underlying cause, so a wrapped
// validation failure still matches ErrInvalidAnnotation.
func (e *AnnotationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidAnnotation, e.Err}
	}
	return []error{ErrInvalidAnnotation}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidInput, e.Err}
	}
	return []error{ErrInvalidInput}
}

// TypeError represents an argument of a type the operation does not accept
type TypeError struct {
	Got  string // Description of the received type
	Want string // Description of the accepted types
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("unsupported argument type %s, want %s", e.Got, e.Want)
}

func (e *TypeError) Unwrap() error {
	return ErrInvalidType
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUnsupported, e.Err}
	}
	return []error{ErrUnsupported}
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, path string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Path:     path,
	}
}

// NewAnnotation creates an AnnotationError for a file line
func NewAnnotation(format, path string, line int, message string) *AnnotationError {
	return &AnnotationError{
		Format:  format,
		Path:    path,
		Line:    line,
		Message: message,
	}
}

// NewAnnotationUnit creates an AnnotationError for a named record or key
func NewAnnotationUnit(format, unit, message string) *AnnotationError {
	return &AnnotationError{
		Format:  format,
		Unit:    unit,
		Message: message,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewType creates a TypeError
func NewType(got, want string) *TypeError {
	return &TypeError{Got: got, Want: want}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
