// Package errors provides centralized error handling with category metadata
// so front-ends can decide whether a failure is fatal, a caller bug, or a
// degraded-but-recoverable commit.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategorySchemaLoad ErrorCategory = "schema-load"
	CategoryValidation ErrorCategory = "validation"
	CategoryState      ErrorCategory = "state"
	CategoryImageIO    ErrorCategory = "image-io"
	CategoryFileIO     ErrorCategory = "file-io"
	CategoryCSV        ErrorCategory = "csv-export"
	CategoryDatabase   ErrorCategory = "database"
	CategoryCapture    ErrorCategory = "capture"
	CategoryGeneric    ErrorCategory = "generic"
)

// Sentinel errors for the collector error taxonomy. Callers match these with
// errors.Is regardless of how many layers of context were added on top.
var (
	ErrSchemaNotFound   = stderrors.New("class schema file not found")
	ErrSchemaMalformed  = stderrors.New("class schema is malformed")
	ErrUnknownClass     = stderrors.New("unknown class label")
	ErrUnknownAttribute = stderrors.New("unknown attribute name")
	ErrEncode           = stderrors.New("image encoding failed")
	ErrWrite            = stderrors.New("filesystem write failed")
	ErrExportEmpty      = stderrors.New("export found no valid records")
	ErrNoFrame          = stderrors.New("no frame available")
)

// EnhancedError wraps an error with component, category and context metadata.
type EnhancedError struct {
	Err       error
	Component string
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches either the wrapped error chain or another EnhancedError of the
// same category.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// ErrorBuilder provides a fluent interface for building enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates a new ErrorBuilder with the given base error
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{
		err:      err,
		category: CategoryGeneric,
	}
}

// Newf creates a new ErrorBuilder with a formatted error message
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component where the error occurred
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds a key-value pair to the error context
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Build creates the final EnhancedError
func (eb *ErrorBuilder) Build() error {
	return &EnhancedError{
		Err:       eb.err,
		Component: eb.component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
}

// Standard library compatibility functions so callers need only one errors
// import.

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
