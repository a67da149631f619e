/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package validation

import (
	"fmt"
	"strings"

	"github.com/tidemark/docstore/errors"
	"github.com/tidemark/docstore/storagemodels"
)

// forbiddenIDChars are rejected by the backend inside document ids.
const forbiddenIDChars = `/\?#`

// Limits holds the ceilings the validator enforces. MaxPageSize mirrors the
// backend's documented page-size ceiling; the bulk ceilings are soft
// performance guards, not protocol limits.
type Limits struct {
	MaxIDLength    int
	MaxPageSize    int32
	MaxBatchSize   int
	MaxConcurrency int
}

// DefaultLimits returns the standard ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxIDLength:    255,
		MaxPageSize:    1000,
		MaxBatchSize:   100,
		MaxConcurrency: 50,
	}
}

// Normalize replaces non-positive ceilings with the defaults.
func (l *Limits) Normalize() {
	d := DefaultLimits()
	if l.MaxIDLength <= 0 {
		l.MaxIDLength = d.MaxIDLength
	}
	if l.MaxPageSize <= 0 {
		l.MaxPageSize = d.MaxPageSize
	}
	if l.MaxBatchSize <= 0 {
		l.MaxBatchSize = d.MaxBatchSize
	}
	if l.MaxConcurrency <= 0 {
		l.MaxConcurrency = d.MaxConcurrency
	}
}

// Validator performs the stateless input checks every facade operation runs
// before any network call.
type Validator struct {
	limits Limits
}

// New returns a Validator enforcing the given limits.
func New(limits Limits) *Validator {
	limits.Normalize()
	return &Validator{limits: limits}
}

// Limits returns the ceilings this validator enforces.
func (v *Validator) Limits() Limits { return v.limits }

// ValidateIDAndPartitionKey checks a point operation's addressing input.
func (v *Validator) ValidateIDAndPartitionKey(id string, partitionKey any, operation string) error {
	var violations []string
	violations = v.appendIDViolations(violations, id)
	if isEmptyKey(partitionKey) {
		violations = append(violations, "partition key must not be empty")
	}
	if len(violations) > 0 {
		return errors.NewValidationError(operation, violations...)
	}
	return nil
}

// ValidateDocument checks a document before it is written. partitionKeyValue
// is the value read off the document through the registered accessor. All
// violations are aggregated into one failure rather than stopping at the
// first.
func (v *Validator) ValidateDocument(doc storagemodels.Document, operation string, partitionKeyValue any) error {
	var violations []string

	base := doc.Document()
	violations = v.appendIDViolations(violations, base.ID)
	if isEmptyKey(partitionKeyValue) {
		violations = append(violations, "partition key value must not be empty")
	}
	if operation != "Create" && base.CreatedOnUTC.IsZero() {
		violations = append(violations, "createdOnUtc must be set for "+operation)
	}
	if !base.CreatedOnUTC.IsZero() && !base.UpdatedOnUTC.IsZero() && base.CreatedOnUTC.After(base.UpdatedOnUTC) {
		violations = append(violations, "createdOnUtc must not be after updatedOnUtc")
	}

	if len(violations) > 0 {
		return errors.NewValidationError(operation, violations...)
	}
	return nil
}

// ValidatePagingParameters checks a requested page size against the
// backend's page-size ceiling.
func (v *Validator) ValidatePagingParameters(pageSize int32, operation string) error {
	if pageSize <= 0 {
		return errors.NewValidationError(operation, "page size must be positive")
	}
	if pageSize > v.limits.MaxPageSize {
		return errors.NewValidationError(operation,
			fmt.Sprintf("page size %d exceeds maximum %d", pageSize, v.limits.MaxPageSize))
	}
	return nil
}

// ValidateBulkItems checks that every item's partition key value agrees with
// the declared partition key of the bulk call. itemKeys holds the values read
// off each item through the registered accessor, in submission order. An
// empty collection is a valid no-op.
func (v *Validator) ValidateBulkItems(itemKeys []any, declared any, operation string) error {
	var violations []string
	if isEmptyKey(declared) {
		violations = append(violations, "partition key must not be empty")
	}
	for i, key := range itemKeys {
		if mismatch := BulkItemKeyMismatch(key, declared); mismatch != "" {
			violations = append(violations, fmt.Sprintf("item %d: %s", i, mismatch))
		}
	}
	if len(violations) > 0 {
		return errors.NewValidationError(operation, violations...)
	}
	return nil
}

// BulkItemKeyMismatch reports why one item's partition key value disagrees
// with the declared key, or "" when it agrees. The bulk executor uses this
// per item so a single bad item fails alone instead of aborting siblings.
func BulkItemKeyMismatch(itemKey, declared any) string {
	if isEmptyKey(itemKey) {
		return "partition key value must not be empty"
	}
	if fmt.Sprintf("%v", itemKey) != fmt.Sprintf("%v", declared) {
		return fmt.Sprintf("partition key %v does not match declared key %v", itemKey, declared)
	}
	return ""
}

// ValidateBulkOperationParameters checks batch size and concurrency against
// the configured ceilings.
func (v *Validator) ValidateBulkOperationParameters(batchSize, maxConcurrency int, operation string) error {
	var violations []string
	if batchSize <= 0 {
		violations = append(violations, "batch size must be positive")
	} else if batchSize > v.limits.MaxBatchSize {
		violations = append(violations, fmt.Sprintf("batch size %d exceeds maximum %d", batchSize, v.limits.MaxBatchSize))
	}
	if maxConcurrency <= 0 {
		violations = append(violations, "max concurrency must be positive")
	} else if maxConcurrency > v.limits.MaxConcurrency {
		violations = append(violations, fmt.Sprintf("max concurrency %d exceeds maximum %d", maxConcurrency, v.limits.MaxConcurrency))
	}
	if len(violations) > 0 {
		return errors.NewValidationError(operation, violations...)
	}
	return nil
}

func (v *Validator) appendIDViolations(violations []string, id string) []string {
	if id == "" {
		return append(violations, "id must not be empty")
	}
	if len(id) > v.limits.MaxIDLength {
		violations = append(violations, fmt.Sprintf("id length %d exceeds maximum %d", len(id), v.limits.MaxIDLength))
	}
	if strings.ContainsAny(id, forbiddenIDChars) {
		violations = append(violations, `id must not contain any of '/', '\', '?', '#'`)
	}
	return violations
}

// isEmptyKey reports whether a partition key value is missing. Numeric and
// boolean keys are never empty; string keys are empty when blank.
func isEmptyKey(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}
