/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidemark/docstore/storagemodels"
)

// Query is the compiled, backend-facing form of a specification:
// parameterized query text plus its named parameter values.
type Query struct {
	Text       string
	Parameters map[string]any
}

// QueryOptions scope a query execution.
type QueryOptions struct {
	// PartitionKey scopes the query to one partition; nil queries across
	// all partitions.
	PartitionKey any
	// PageSize caps the number of items returned per page. Zero lets the
	// store choose.
	PageSize int32
	// ContinuationToken resumes a previous page. Tokens are single-use
	// cursors tied to the query that produced them.
	ContinuationToken string
}

// QueryPage is one page of raw documents. An empty ContinuationToken means
// the result set is exhausted.
type QueryPage struct {
	Items             []storagemodels.RawDocument
	ContinuationToken string
	RequestCharge     float64
}

// OperationKind identifies a batch write operation.
type OperationKind int

const (
	OperationCreate OperationKind = iota
	OperationUpsert
	OperationReplace
	OperationDelete
)

func (k OperationKind) String() string {
	switch k {
	case OperationCreate:
		return "Create"
	case OperationUpsert:
		return "Upsert"
	case OperationReplace:
		return "Replace"
	case OperationDelete:
		return "Delete"
	}
	return "Unknown"
}

// BatchOperation is one write inside a batch execution.
type BatchOperation struct {
	Kind     OperationKind
	ID       string
	Document storagemodels.RawDocument
}

// BatchItemResult reports the per-item outcome of a batch execution. A
// failed item never aborts its siblings.
type BatchItemResult struct {
	Index         int
	Status        storagemodels.OperationStatus
	RequestCharge float64
	Err           error
}

// Store is the contract the repository engine requires from a document
// store. Implementations expose point read/write by (id, partition key),
// batch execution with per-item status and consumed capacity, and query
// execution returning pages of raw documents plus an opaque continuation
// token. Each Store instance is bound to one container.
type Store interface {
	ReadItem(ctx context.Context, id string, partitionKey any) (storagemodels.RawDocument, float64, error)
	CreateItem(ctx context.Context, doc storagemodels.RawDocument, partitionKey any) (float64, error)
	UpsertItem(ctx context.Context, doc storagemodels.RawDocument, partitionKey any) (float64, error)
	ReplaceItem(ctx context.Context, doc storagemodels.RawDocument, partitionKey any) (float64, error)
	DeleteItem(ctx context.Context, id string, partitionKey any) (float64, error)
	QueryItems(ctx context.Context, q Query, opts QueryOptions) (QueryPage, error)
	QueryCount(ctx context.Context, q Query, opts QueryOptions) (int64, float64, error)
	ExecuteBatch(ctx context.Context, partitionKey any, ops []BatchOperation) ([]BatchItemResult, error)
}

// StatusError is the error shape Store implementations return so the layers
// above can classify failures without knowing the store's native error
// types.
type StatusError struct {
	Status  storagemodels.OperationStatus
	Message string
	Cause   error
}

func (e *StatusError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (status %d): %v", e.Message, e.Status, e.Cause)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *StatusError) Unwrap() error { return e.Cause }

// NewStatusError builds a classified store error.
func NewStatusError(status storagemodels.OperationStatus, message string, cause error) *StatusError {
	return &StatusError{Status: status, Message: message, Cause: cause}
}

// StatusOf extracts the status classification from a store error. Errors
// without a classification count as internal.
func StatusOf(err error) storagemodels.OperationStatus {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return storagemodels.StatusInternalError
}
