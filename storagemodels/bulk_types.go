/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package storagemodels

// BulkOperationType selects how bulk items are stamped and written.
type BulkOperationType int

const (
	// BulkCreate stamps every item as newly created and fails items that
	// already exist.
	BulkCreate BulkOperationType = iota
	// BulkUpsert applies the upsert heuristic per item: an item with a real
	// CreatedOnUTC is treated as an update, everything else as a create.
	BulkUpsert
)

func (t BulkOperationType) String() string {
	switch t {
	case BulkCreate:
		return "Create"
	case BulkUpsert:
		return "Upsert"
	}
	return "Unknown"
}

// BulkOptions configures a bulk execute call.
type BulkOptions struct {
	OperationType  BulkOperationType
	BatchSize      int // Max items per dispatched batch (default: 25)
	MaxConcurrency int // Max batches in flight at once (default: 4)
}

// DefaultBulkOptions returns the default bulk execution options.
func DefaultBulkOptions() BulkOptions {
	return BulkOptions{
		OperationType:  BulkUpsert,
		BatchSize:      25,
		MaxConcurrency: 4,
	}
}

// BulkItemFailure records one item that a bulk call could not persist. It is
// returned in-band inside BulkExecuteResult, never thrown.
type BulkItemFailure[T any] struct {
	Item      T
	Status    OperationStatus
	Retryable bool
	Cause     error
}

// BulkExecuteResult aggregates the outcome of one bulk call. It is
// constructed once per call and immutable after return. Item ordering does
// not necessarily match submission ordering.
type BulkExecuteResult[T any] struct {
	SuccessfulItems    []T
	FailedItems        []BulkItemFailure[T]
	TotalRequestCharge float64
}

// IsSuccess reports whether every submitted item was persisted.
func (r *BulkExecuteResult[T]) IsSuccess() bool {
	return len(r.FailedItems) == 0
}

// TotalItems returns the number of items accounted for in the result.
func (r *BulkExecuteResult[T]) TotalItems() int {
	return len(r.SuccessfulItems) + len(r.FailedItems)
}

// SuccessRate returns the percentage of items persisted. An empty submission
// counts as 100.
func (r *BulkExecuteResult[T]) SuccessRate() float64 {
	total := r.TotalItems()
	if total == 0 {
		return 100
	}
	return float64(len(r.SuccessfulItems)) / float64(total) * 100
}
