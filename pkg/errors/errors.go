// Package errors provides a structured error system for the cache
// coordinator with error codes, categories, and context.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a structured error code for coordinator operations.
type ErrorCode string

const (
	// Configuration errors
	ErrCodeInvalidConfig    ErrorCode = "INVALID_CONFIG"
	ErrCodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	ErrCodeConfigSave       ErrorCode = "CONFIG_SAVE"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Registration errors
	ErrCodeNilComponent      ErrorCode = "NIL_COMPONENT"
	ErrCodeNotRegistered     ErrorCode = "NOT_REGISTERED"
	ErrCodeAlreadyRegistered ErrorCode = "ALREADY_REGISTERED"

	// Resource errors
	ErrCodeLimitExceeded ErrorCode = "LIMIT_EXCEEDED"
	ErrCodeProbeFailed   ErrorCode = "PROBE_FAILED"

	// State errors
	ErrCodeAlreadyStarted ErrorCode = "ALREADY_STARTED"
	ErrCodeNotStarted     ErrorCode = "NOT_STARTED"

	// Strategy errors
	ErrCodeStrategyPersist ErrorCode = "STRATEGY_PERSIST"
	ErrCodeStrategyLoad    ErrorCode = "STRATEGY_LOAD"

	// Internal errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryRegistration  ErrorCategory = "registration"
	CategoryResource      ErrorCategory = "resource"
	CategoryState         ErrorCategory = "state"
	CategoryStrategy      ErrorCategory = "strategy"
	CategoryInternal      ErrorCategory = "internal"
)

// CoordError represents a structured error with context and metadata.
type CoordError struct {
	Code      ErrorCode         `json:"code"`
	Category  ErrorCategory     `json:"category"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"context,omitempty"`
	Cause     error             `json:"-"`
	Timestamp time.Time         `json:"timestamp"`
	Component string            `json:"component,omitempty"`
	Operation string            `json:"operation,omitempty"`
}

// Error implements the error interface.
func (e *CoordError) Error() string {
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error wrapping compatibility.
func (e *CoordError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code (for errors.Is compatibility).
func (e *CoordError) Is(target error) bool {
	if coordErr, ok := target.(*CoordError); ok {
		return e.Code == coordErr.Code
	}
	return false
}

// String returns a detailed representation for logging.
func (e *CoordError) String() string {
	parts := []string{
		fmt.Sprintf("Code=%s", e.Code),
		fmt.Sprintf("Category=%s", e.Category),
		fmt.Sprintf("Message=%q", e.Message),
	}
	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}
	for k, v := range e.Context {
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}
	return fmt.Sprintf("CoordError{%s}", strings.Join(parts, ", "))
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *CoordError {
	return &CoordError{
		Code:      code,
		Category:  GetCategory(code),
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]string),
	}
}

// GetCategory determines the category for an error code.
func GetCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrCodeInvalidConfig, ErrCodeConfigLoad, ErrCodeConfigSave, ErrCodeConfigValidation:
		return CategoryConfiguration
	case ErrCodeNilComponent, ErrCodeNotRegistered, ErrCodeAlreadyRegistered:
		return CategoryRegistration
	case ErrCodeLimitExceeded, ErrCodeProbeFailed:
		return CategoryResource
	case ErrCodeAlreadyStarted, ErrCodeNotStarted:
		return CategoryState
	case ErrCodeStrategyPersist, ErrCodeStrategyLoad:
		return CategoryStrategy
	default:
		return CategoryInternal
	}
}

// WithContext adds contextual information to an error.
func (e *CoordError) WithContext(key, value string) *CoordError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithComponent sets the component for an error.
func (e *CoordError) WithComponent(component string) *CoordError {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error.
func (e *CoordError) WithOperation(operation string) *CoordError {
	e.Operation = operation
	return e
}

// WithCause sets the underlying cause.
func (e *CoordError) WithCause(cause error) *CoordError {
	e.Cause = cause
	return e
}
