/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package storagemodels

import (
	"time"
)

// RawDocument is the schema-less document shape exchanged with the backend
// store. Field names are the wire-level property names.
type RawDocument = map[string]any

// DocumentBase carries the storage metadata every persisted document has.
// Storage-shape (DAO) types embed it and gain the audit and soft-delete
// lifecycle managed by the audit package.
type DocumentBase struct {
	ID           string    `json:"id"`
	CreatedOnUTC time.Time `json:"createdOnUtc"`
	UpdatedOnUTC time.Time `json:"updatedOnUtc"`
	CreatedBy    string    `json:"createdBy"`
	UpdatedBy    string    `json:"updatedBy"`
	Deleted      bool      `json:"deleted"`
}

// Document returns the embedded base so generic code can reach the storage
// metadata of any DAO type.
func (d *DocumentBase) Document() *DocumentBase { return d }

// Document is implemented by every storage-shape type via an embedded
// DocumentBase.
type Document interface {
	Document() *DocumentBase
}

// ComparisonOperator is the operator of a PropertyFilter.
type ComparisonOperator string

const (
	OpEqual          ComparisonOperator = "="
	OpNotEqual       ComparisonOperator = "!="
	OpGreater        ComparisonOperator = ">"
	OpLess           ComparisonOperator = "<"
	OpGreaterOrEqual ComparisonOperator = ">="
	OpLessOrEqual    ComparisonOperator = "<="
	OpIn             ComparisonOperator = "IN"
)

// PropertyFilter describes one predicate over a document property. A
// sequence of filters is ANDed together; an empty sequence matches all
// documents. For OpIn the value must be a slice; its elements are inlined
// as literals rather than bound as a parameter.
type PropertyFilter struct {
	PropertyName  string
	PropertyValue any
	Operator      ComparisonOperator
}

// Specification is an opaque, provider-specific query descriptor. The only
// concrete form the query compiler supports is QuerySpecification.
type Specification interface {
	// SpecificationName identifies the concrete specification form.
	SpecificationName() string
}

// QuerySpecification is a parameterized query string. The text is immutable
// once constructed and the parameter map is copied on construction and on
// read, so a specification can be shared freely between goroutines.
type QuerySpecification struct {
	text   string
	params map[string]any
}

// NewQuerySpecification builds a specification from query text and named
// parameters. The parameter map is copied; later mutation of the caller's
// map does not affect the specification.
func NewQuerySpecification(text string, params map[string]any) *QuerySpecification {
	copied := make(map[string]any, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return &QuerySpecification{text: text, params: copied}
}

func (s *QuerySpecification) SpecificationName() string { return "query" }

// Text returns the query text.
func (s *QuerySpecification) Text() string { return s.text }

// Parameters returns a copy of the named parameters.
func (s *QuerySpecification) Parameters() map[string]any {
	copied := make(map[string]any, len(s.params))
	for k, v := range s.params {
		copied[k] = v
	}
	return copied
}

// Page is one page of a token-based paged query. A non-empty
// ContinuationToken resumes the query exactly where this page ended; an
// empty token means the result set is exhausted. TotalCount is populated
// only by the count-augmented paging variant, and only on the first page.
type Page[T any] struct {
	Items             []T
	ContinuationToken string
	TotalCount        *int64
}

// OperationStatus classifies the outcome of a backend operation. The values
// follow the backend's HTTP-flavored status codes.
type OperationStatus int

const (
	StatusOK                 OperationStatus = 200
	StatusCreated            OperationStatus = 201
	StatusNoContent          OperationStatus = 204
	StatusBadRequest         OperationStatus = 400
	StatusNotFound           OperationStatus = 404
	StatusRequestTimeout     OperationStatus = 408
	StatusConflict           OperationStatus = 409
	StatusPreconditionFailed OperationStatus = 412
	StatusTooManyRequests    OperationStatus = 429
	StatusInternalError      OperationStatus = 500
	StatusServiceUnavailable OperationStatus = 503
)

// Retryable reports whether an operation that failed with this status may
// succeed if retried. Retrying is the caller's responsibility; this layer
// only records the classification.
func (s OperationStatus) Retryable() bool {
	switch s {
	case StatusRequestTimeout, StatusTooManyRequests, StatusServiceUnavailable, StatusInternalError:
		return true
	}
	return false
}

// Succeeded reports whether the status denotes a successful operation.
func (s OperationStatus) Succeeded() bool {
	return s >= 200 && s < 300
}
