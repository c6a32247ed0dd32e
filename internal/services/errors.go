package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by services and mapped to HTTP status codes
// by the handlers.
var (
	ErrTestNotFound       = errors.New("test not found")
	ErrTestNotActive      = errors.New("test is not active")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrAttemptNotActive   = errors.New("attempt is not in progress")
	ErrAttemptTimeExpired = errors.New("attempt time has expired")
	ErrQuestionNotInTest  = errors.New("question does not belong to this test")
)

// ConflictError reports that the user already has an in-progress attempt
// for the same test. ExistingAttemptID lets clients resume instead of
// retrying.
type ConflictError struct {
	ExistingAttemptID uint
	Message           string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(existingAttemptID uint) *ConflictError {
	return &ConflictError{
		ExistingAttemptID: existingAttemptID,
		Message:           fmt.Sprintf("an in-progress attempt already exists (attempt %d)", existingAttemptID),
	}
}

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// ValidationErrors aggregates per-field validation failures.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Error()
}

// BusinessRuleError reports a request that is well-formed but violates a
// domain rule.
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violated (%s): %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}

// PermissionError reports an authorization failure on a resource.
type PermissionError struct {
	UserID     string `json:"user_id"`
	Resource   string `json:"resource"`
	ResourceID uint   `json:"resource_id"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		Resource:   resource,
		ResourceID: resourceID,
		Action:     action,
		Reason:     reason,
	}
}
