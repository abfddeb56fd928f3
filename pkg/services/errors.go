// Package services implements the application layer between the HTTP
// surface and the engine, stores, and gate.
package services

import (
	"errors"
	"fmt"

	"github.com/thomasdavis/generous/pkg/toolspace"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidDefinition = errors.New("invalid workflow definition")
	ErrUnknownToolspace  = errors.New("workflow references an unknown toolspace")
	ErrEmptyOwnerID      = errors.New("owner ID cannot be empty")

	// Permission errors (403 Forbidden).
	ErrWorkflowDisabled = errors.New("workflow is disabled")
	ErrNotOwner         = errors.New("only the workflow owner may execute it")
	ErrToolDenied       = errors.New("tool invocation denied by toolspace policy")

	// Business logic conflicts (409 Conflict).
	ErrToolspaceInUse = errors.New("toolspace is referenced by existing workflows")

	// The execution finished but its terminal record could not be written.
	ErrRecordNotPersisted = errors.New("execution record could not be persisted")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidDefinition) ||
		errors.Is(err, ErrUnknownToolspace) ||
		errors.Is(err, ErrEmptyOwnerID)
}

// IsPermissionError checks if an error is a policy denial that should return
// HTTP 403.
func IsPermissionError(err error) bool {
	return errors.Is(err, ErrWorkflowDisabled) ||
		errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrToolDenied)
}

// IsConflictError checks if an error is a business logic conflict that
// should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrToolspaceInUse)
}

// IsQuotaError checks if an error is a quota denial that should return
// HTTP 429.
func IsQuotaError(err error) bool {
	return toolspace.IsQuotaExceeded(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
