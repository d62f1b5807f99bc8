// Package errors defines the structured error taxonomy shared by the page
// builder, the change handlers and the CLI.
//
// Configuration errors are fatal and stop the process before any build.
// Template, render and data errors are recoverable at the change-handler
// boundary: they are logged and the watch loop keeps running. I/O errors
// while writing output propagate to the immediate caller.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeTemplate ErrorType = "template"
	ErrorTypeRender   ErrorType = "render"
	ErrorTypeData     ErrorType = "data"
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeInternal ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeMissingAttribute = "ERR_MISSING_ATTRIBUTE"
	ErrCodeNoLanguage       = "ERR_NO_LANGUAGE"
	ErrCodeInvalidLanguage  = "ERR_INVALID_LANGUAGE"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeManifestInvalid  = "ERR_MANIFEST_INVALID"
	ErrCodeTemplateNotFound = "ERR_TEMPLATE_NOT_FOUND"
	ErrCodeTemplateParse    = "ERR_TEMPLATE_PARSE"
	ErrCodeRenderFailed     = "ERR_RENDER_FAILED"
	ErrCodeDataFailed       = "ERR_DATA_FAILED"
	ErrCodeWriteFailed      = "ERR_WRITE_FAILED"
	ErrCodeBundleNotFound   = "ERR_BUNDLE_NOT_FOUND"
	ErrCodeInternalError    = "ERR_INTERNAL"
)

// SiteError is a structured error type with context.
type SiteError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Destination string
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Destination != "" {
		parts = append(parts, "destination:"+e.Destination)
	}

	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *SiteError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison on type and code.
func (e *SiteError) Is(target error) bool {
	var t *SiteError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *SiteError) WithContext(key string, value interface{}) *SiteError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile records the source artifact the error originates from.
func (e *SiteError) WithFile(filePath string) *SiteError {
	e.FilePath = filePath

	return e
}

// WithDestination records the page destination being built.
func (e *SiteError) WithDestination(destination string) *SiteError {
	e.Destination = destination

	return e
}

// NewConfigError creates a configuration error. Configuration errors are
// never recoverable.
func NewConfigError(code, message string) *SiteError {
	return &SiteError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewTemplateError creates an error raised while loading or parsing a
// template.
func NewTemplateError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:        ErrorTypeTemplate,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewRenderError creates an error raised while executing a template.
func NewRenderError(message string, cause error) *SiteError {
	return &SiteError{
		Type:        ErrorTypeRender,
		Code:        ErrCodeRenderFailed,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewDataError creates an error raised while loading a data file.
func NewDataError(message string, cause error) *SiteError {
	return &SiteError{
		Type:        ErrorTypeData,
		Code:        ErrCodeDataFailed,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *SiteError {
	return &SiteError{
		Type:        ErrorTypeInternal,
		Code:        ErrCodeInternalError,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Recoverable
	}

	return false
}

// IsType reports whether err is a SiteError of the given type.
func IsType(err error, t ErrorType) bool {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Type == t
	}

	return false
}

// As is errors.As specialised to SiteError.
func As(err error) (*SiteError, bool) {
	var se *SiteError
	if errors.As(err, &se) {
		return se, true
	}

	return nil, false
}

// ErrMissingAttribute creates the configuration error raised when a page is
// declared without one of its required attributes.
func ErrMissingAttribute(attribute, page string) *SiteError {
	return NewConfigError(
		ErrCodeMissingAttribute,
		fmt.Sprintf("page %q is missing required attribute %q", page, attribute),
	).WithContext("attribute", attribute)
}

// ErrNoLanguage creates the configuration error raised when neither the page
// nor the project provides a language.
func ErrNoLanguage(page string) *SiteError {
	return NewConfigError(
		ErrCodeNoLanguage,
		fmt.Sprintf("page %q has no language and no default language is configured", page),
	)
}

// ErrTemplateNotFound creates a template error for a missing template file.
func ErrTemplateNotFound(name string, cause error) *SiteError {
	return NewTemplateError(
		ErrCodeTemplateNotFound,
		"template not found: "+name,
		cause,
	).WithFile(name)
}

// ErrWriteFailed creates the I/O error raised when a page cannot be written.
func ErrWriteFailed(path string, cause error) *SiteError {
	return NewIOError(ErrCodeWriteFailed, "failed to write output", cause).WithFile(path)
}
