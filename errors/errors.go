// Package errors defines the structured error types used throughout the module.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryRegistry   Category = "registry"
	CategoryValidation Category = "validation"
	CategoryExecute    Category = "execute"
	CategoryRender     Category = "render"
	CategoryConfig     Category = "config"
	CategoryInput      Category = "input"
)

// GraphError is the structured error type used throughout the module.
type GraphError struct {
	Category Category
	Op       string // operation or filter name
	Err      error
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *GraphError) Unwrap() error { return e.Err }

// New creates a GraphError.
func New(category Category, op string, err error) *GraphError {
	return &GraphError{Category: category, Op: op, Err: err}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Category == cat
	}
	return false
}

// ValidationError reports a parameter-schema violation raised at
// pipeline-build time.  The offending pipeline is left unchanged.
type ValidationError struct {
	Filter string
	Param  string // empty when the violation is not tied to one key
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("filter %q: %s", e.Filter, e.Reason)
	}
	return fmt.Sprintf("filter %q, parameter %q: %s", e.Filter, e.Param, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RenderError wraps the first execution failure encountered during a render,
// annotated with the filter whose node failed.  No partial result accompanies it.
type RenderError struct {
	Filter string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed at filter %q: %v", e.Filter, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// FailedFilter returns the name of the filter a render failed at, or "" when
// err is not a RenderError.
func FailedFilter(err error) string {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Filter
	}
	return ""
}

// Sentinel errors for common failure modes.
var (
	ErrUnknownFilter    = errors.New("unknown filter")
	ErrDuplicateFilter  = errors.New("filter already registered")
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrMissingParameter = errors.New("missing required parameter")
	ErrTagMismatch      = errors.New("parameter tag mismatch")
	ErrNilImage         = errors.New("nil source image")
	ErrEmptyExtent      = errors.New("empty render extent")
	ErrQueueFull        = errors.New("render queue full")
)
