package domain

import "fmt"

// ValidationError covers bad client input: unknown skill or tier, out-of-range
// stage, amount mismatch.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError is returned when a non-terminal payment already exists for the
// same enrollment stage.
type ConflictError struct {
	Reference string
	Stage     int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("stage %d already has an open payment %s", e.Stage, e.Reference)
}

func NewConflictError(reference string, stage int) *ConflictError {
	return &ConflictError{Reference: reference, Stage: stage}
}

// GatewayError wraps any auth or API failure against the external provider,
// keeping the upstream message for diagnostics.
type GatewayError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway error (%d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("gateway error (%d): %s", e.StatusCode, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func NewGatewayError(statusCode int, message string, err error) *GatewayError {
	return &GatewayError{StatusCode: statusCode, Message: message, Err: err}
}

type InvalidTransitionError struct {
	From PaymentStatus
	To   PaymentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

func NewInvalidTransitionError(from, to PaymentStatus) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}
