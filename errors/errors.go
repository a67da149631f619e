/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidemark/docstore/storagemodels"
)

// Common sentinel errors
var (
	// ErrValidation is returned when input validation fails. Validation
	// failures are the caller's fault and are never retried by this layer.
	ErrValidation = errors.New("validation failed")

	// ErrMapping is returned when a DTO/DAO conversion fails.
	ErrMapping = errors.New("mapping failed")

	// ErrUnsupportedSpecification is returned when a query is built from a
	// specification form the compiler does not understand.
	ErrUnsupportedSpecification = errors.New("unsupported specification")

	// ErrUnsupportedOperator is returned for comparison operators the
	// filter compiler does not understand.
	ErrUnsupportedOperator = errors.New("unsupported comparison operator")

	// ErrConfiguration is returned for type or partition-key
	// misconfiguration detected at registration time. It is fatal.
	ErrConfiguration = errors.New("invalid model configuration")

	// ErrBackend wraps any unexpected failure from the backend store.
	ErrBackend = errors.New("backend operation failed")

	// ErrNotFound is returned when a document is not found.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned when creating a document that already
	// exists.
	ErrAlreadyExists = errors.New("document already exists")
)

// ValidationError aggregates every violation found while validating one
// operation's input, rather than stopping at the first.
type ValidationError struct {
	Operation  string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed: %s", e.Operation, strings.Join(e.Violations, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// MappingError represents a DTO/DAO conversion failure.
type MappingError struct {
	Direction string // "ToDao" or "FromDao"
	Cause     error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s mapping failed: %v", e.Direction, e.Cause)
}

func (e *MappingError) Unwrap() error { return e.Cause }

func (e *MappingError) Is(target error) bool {
	return target == ErrMapping
}

// UnsupportedSpecificationError is returned when the query compiler is
// handed a specification variant it cannot translate.
type UnsupportedSpecificationError struct {
	Name string
}

func (e *UnsupportedSpecificationError) Error() string {
	return fmt.Sprintf("specification %q is not supported", e.Name)
}

func (e *UnsupportedSpecificationError) Is(target error) bool {
	return target == ErrUnsupportedSpecification
}

// UnsupportedOperatorError is returned for an unknown comparison operator.
type UnsupportedOperatorError struct {
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("comparison operator %q is not supported", e.Operator)
}

func (e *UnsupportedOperatorError) Is(target error) bool {
	return target == ErrUnsupportedOperator
}

// ConfigurationError represents a per-type misconfiguration detected when a
// model is registered.
type ConfigurationError struct {
	Type    string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("model %s: %s", e.Type, e.Message)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// BackendError wraps an unexpected backend failure. It carries the original
// cause and the backend's status classification; the backend's native error
// type never crosses the facade boundary unwrapped.
type BackendError struct {
	Operation string
	Status    storagemodels.OperationStatus
	Cause     error
}

func (e *BackendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: backend operation failed (status %d): %v", e.Operation, e.Status, e.Cause)
	}
	return fmt.Sprintf("%s: backend operation failed: %v", e.Operation, e.Cause)
}

func (e *BackendError) Unwrap() error { return e.Cause }

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// NotFoundError represents a missing document.
type NotFoundError struct {
	Type string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %q not found", e.Type, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents a create conflict.
type AlreadyExistsError struct {
	Type string
	ID   string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with id %q already exists", e.Type, e.ID)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// Helper constructors

// NewValidationError creates a ValidationError for one operation.
func NewValidationError(operation string, violations ...string) error {
	return &ValidationError{Operation: operation, Violations: violations}
}

// NewMappingError creates a MappingError for one conversion direction.
func NewMappingError(direction string, cause error) error {
	return &MappingError{Direction: direction, Cause: cause}
}

// NewUnsupportedSpecificationError creates an UnsupportedSpecificationError.
func NewUnsupportedSpecificationError(name string) error {
	return &UnsupportedSpecificationError{Name: name}
}

// NewUnsupportedOperatorError creates an UnsupportedOperatorError.
func NewUnsupportedOperatorError(op string) error {
	return &UnsupportedOperatorError{Operator: op}
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(typeName, message string) error {
	return &ConfigurationError{Type: typeName, Message: message}
}

// NewBackendError wraps a backend failure with its status classification.
func NewBackendError(operation string, status storagemodels.OperationStatus, cause error) error {
	return &BackendError{Operation: operation, Status: status, Cause: cause}
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(typeName, id string) error {
	return &NotFoundError{Type: typeName, ID: id}
}

// NewAlreadyExistsError creates an AlreadyExistsError.
func NewAlreadyExistsError(typeName, id string) error {
	return &AlreadyExistsError{Type: typeName, ID: id}
}

// Predicates

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsMapping checks if an error is a mapping error.
func IsMapping(err error) bool {
	return errors.Is(err, ErrMapping)
}

// IsUnsupportedSpecification checks if an error is an unsupported
// specification error.
func IsUnsupportedSpecification(err error) bool {
	return errors.Is(err, ErrUnsupportedSpecification)
}

// IsUnsupportedOperator checks if an error is an unsupported operator error.
func IsUnsupportedOperator(err error) bool {
	return errors.Is(err, ErrUnsupportedOperator)
}

// IsConfiguration checks if an error is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsBackend checks if an error is a wrapped backend failure.
func IsBackend(err error) bool {
	return errors.Is(err, ErrBackend)
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
