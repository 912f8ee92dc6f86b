package common

import (
	"errors"
	"fmt"
	"strings"
)

// Common error types used across the application
var (
	// ErrInvalidInput indicates invalid user input
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrTargetNotFound indicates the tracked target no longer exists in the registry
	ErrTargetNotFound = errors.New("target not found")
	// ErrAlreadyTracked indicates the owner already tracks this URL
	ErrAlreadyTracked = errors.New("target already tracked")
	// ErrTrackingLimit indicates the owner already tracks the maximum number of targets
	ErrTrackingLimit = errors.New("tracking limit reached")
	// ErrUnreachable indicates the page could not be fetched or yielded no content
	ErrUnreachable = errors.New("page unreachable")
	// ErrInvalidConfiguration indicates configuration issues
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// WrapError wraps an error with additional context information
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context information
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewError creates a new error with a formatted message
func NewError(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// ValidationError represents validation errors with field-specific information
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NetworkError represents network-related errors
type NetworkError struct {
	URL     string
	Reason  string
	Wrapped error
}

func (e *NetworkError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("network error for '%s': %s: %v", e.URL, e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("network error for '%s': %s", e.URL, e.Reason)
}

func (e *NetworkError) Unwrap() error {
	return e.Wrapped
}

// NewNetworkError creates a new network error
func NewNetworkError(url, reason string, wrapped error) *NetworkError {
	return &NetworkError{
		URL:     url,
		Reason:  reason,
		Wrapped: wrapped,
	}
}

// HTTPError represents HTTP-related errors
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *HTTPError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("HTTP %d error for '%s': %s", e.StatusCode, e.URL, e.Message)
	}
	return fmt.Sprintf("HTTP %d error: %s", e.StatusCode, e.Message)
}

// NewHTTPErrorWithURL creates a new HTTP error with URL context
func NewHTTPErrorWithURL(statusCode int, message, url string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		URL:        url,
	}
}

// FetchError aborts a single target's check cycle: the page could not be retrieved.
type FetchError struct {
	URL     string
	Wrapped error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for '%s': %v", e.URL, e.Wrapped)
}

func (e *FetchError) Unwrap() error {
	return e.Wrapped
}

// NewFetchError creates a new fetch error
func NewFetchError(url string, wrapped error) *FetchError {
	return &FetchError{URL: url, Wrapped: wrapped}
}

// ExtractionError is scoped to one link; the link is dropped and extraction continues.
type ExtractionError struct {
	RawLink string
	Reason  string
	Wrapped error
}

func (e *ExtractionError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("extraction failed for link '%s': %s: %v", e.RawLink, e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("extraction failed for link '%s': %s", e.RawLink, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Wrapped
}

// NewExtractionError creates a new extraction error
func NewExtractionError(rawLink, reason string, wrapped error) *ExtractionError {
	return &ExtractionError{RawLink: rawLink, Reason: reason, Wrapped: wrapped}
}

// AcquisitionError means both the primary extractor and the raw download failed for one resource.
type AcquisitionError struct {
	URL      string
	Primary  error
	Fallback error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition failed for '%s': primary: %v; fallback: %v", e.URL, e.Primary, e.Fallback)
}

// Unwrap exposes both attempt errors to errors.Is / errors.As.
func (e *AcquisitionError) Unwrap() []error {
	var errs []error
	if e.Primary != nil {
		errs = append(errs, e.Primary)
	}
	if e.Fallback != nil {
		errs = append(errs, e.Fallback)
	}
	return errs
}

// NewAcquisitionError creates a new acquisition error
func NewAcquisitionError(url string, primary, fallback error) *AcquisitionError {
	return &AcquisitionError{URL: url, Primary: primary, Fallback: fallback}
}

// SizeLimitExceeded is returned when an artifact grows past the configured cap.
type SizeLimitExceeded struct {
	URL   string
	Limit int64
	Size  int64
}

func (e *SizeLimitExceeded) Error() string {
	if e.Size > 0 {
		return fmt.Sprintf("artifact '%s' exceeds size limit: %d > %d bytes", e.URL, e.Size, e.Limit)
	}
	return fmt.Sprintf("artifact '%s' exceeds size limit of %d bytes", e.URL, e.Limit)
}

// NewSizeLimitExceeded creates a new size limit error
func NewSizeLimitExceeded(url string, limit, size int64) *SizeLimitExceeded {
	return &SizeLimitExceeded{URL: url, Limit: limit, Size: size}
}

// RenderError reports a failed external rasterization run.
type RenderError struct {
	InputPath string
	DPI       int
	Wrapped   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed for '%s' at %d dpi: %v", e.InputPath, e.DPI, e.Wrapped)
}

func (e *RenderError) Unwrap() error {
	return e.Wrapped
}

// NewRenderError creates a new render error
func NewRenderError(inputPath string, dpi int, wrapped error) *RenderError {
	return &RenderError{InputPath: inputPath, DPI: dpi, Wrapped: wrapped}
}

// PersistenceError reports a failed registry write. The next firing retries implicitly.
type PersistenceError struct {
	Operation string
	TargetID  string
	Wrapped   error
}

func (e *PersistenceError) Error() string {
	if e.TargetID != "" {
		return fmt.Sprintf("persistence error during %s for target '%s': %v", e.Operation, e.TargetID, e.Wrapped)
	}
	return fmt.Sprintf("persistence error during %s: %v", e.Operation, e.Wrapped)
}

func (e *PersistenceError) Unwrap() error {
	return e.Wrapped
}

// NewPersistenceError creates a new persistence error
func NewPersistenceError(operation, targetID string, wrapped error) *PersistenceError {
	return &PersistenceError{Operation: operation, TargetID: targetID, Wrapped: wrapped}
}

// CombineErrors combines multiple errors into a single error with formatted message
func CombineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var messages []string
	for _, err := range errs {
		if err != nil {
			messages = append(messages, err.Error())
		}
	}

	if len(messages) == 0 {
		return nil
	}

	return fmt.Errorf("multiple errors occurred: [%s]", strings.Join(messages, "; "))
}

// ErrorCollector helps collect multiple errors during processing
type ErrorCollector struct {
	errors []error
}

// Add adds an error to the collector
func (ec *ErrorCollector) Add(err error) {
	if err != nil {
		ec.errors = append(ec.errors, err)
	}
}

// AddWithContext adds an error with additional context
func (ec *ErrorCollector) AddWithContext(err error, context string) {
	if err != nil {
		ec.errors = append(ec.errors, WrapError(err, context))
	}
}

// HasErrors returns true if any errors were collected
func (ec *ErrorCollector) HasErrors() bool {
	return len(ec.errors) > 0
}

// Error returns a combined error from all collected errors
func (ec *ErrorCollector) Error() error {
	return CombineErrors(ec.errors)
}

// Errors returns all collected errors
func (ec *ErrorCollector) Errors() []error {
	return ec.errors
}
