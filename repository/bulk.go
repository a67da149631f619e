/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package repository

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tidemark/docstore/backend"
	"github.com/tidemark/docstore/errors"
	"github.com/tidemark/docstore/mapping"
	"github.com/tidemark/docstore/storagemodels"
	"github.com/tidemark/docstore/validation"
)

// bulkItem pairs a caller's item with its prepared storage shape so
// failures can report the original item.
type bulkItem[D storagemodels.Document, T any] struct {
	item T
	dao  D
}

// ExecuteBulk persists the items in concurrent batches and accounts for
// every item exactly once. Malformed parameters fail the whole call before
// any write; a malformed item never does — it lands in FailedItems as
// non-retryable and its siblings proceed. Cancellation is the one fatal
// mid-flight condition: the call returns the context error and the result
// must be discarded.
func (r *Repository[D, T]) ExecuteBulk(ctx context.Context, items []T, partitionKey any, opts storagemodels.BulkOptions) (*storagemodels.BulkExecuteResult[T], error) {
	defaults := storagemodels.DefaultBulkOptions()
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaults.BatchSize
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaults.MaxConcurrency
	}
	operation := "ExecuteBulk/" + opts.OperationType.String()

	if err := r.validator.ValidateBulkOperationParameters(opts.BatchSize, opts.MaxConcurrency, operation); err != nil {
		return nil, err
	}
	if err := r.validator.ValidateBulkItems(nil, partitionKey, operation); err != nil {
		return nil, err
	}

	result := &storagemodels.BulkExecuteResult[T]{}
	if len(items) == 0 {
		return result, nil
	}

	// Screen items before any I/O. Problems here are caller bugs, so they
	// are terminal for the item, never retryable.
	valid := make([]bulkItem[D, T], 0, len(items))
	for _, item := range items {
		dao, err := r.mapper.ToDao(item)
		if err != nil {
			result.FailedItems = append(result.FailedItems, storagemodels.BulkItemFailure[T]{
				Item:   item,
				Status: storagemodels.StatusBadRequest,
				Cause:  err,
			})
			continue
		}
		base := dao.Document()
		if base.ID == "" {
			base.ID = r.generateID()
		}
		if msg := validation.BulkItemKeyMismatch(r.model.PartitionKeyValue(dao), partitionKey); msg != "" {
			result.FailedItems = append(result.FailedItems, storagemodels.BulkItemFailure[T]{
				Item:   item,
				Status: storagemodels.StatusBadRequest,
				Cause:  errors.NewValidationError(operation, msg),
			})
			continue
		}
		if err := r.validator.ValidateIDAndPartitionKey(base.ID, partitionKey, operation); err != nil {
			result.FailedItems = append(result.FailedItems, storagemodels.BulkItemFailure[T]{
				Item:   item,
				Status: storagemodels.StatusBadRequest,
				Cause:  err,
			})
			continue
		}
		valid = append(valid, bulkItem[D, T]{item: item, dao: dao})
	}

	docs := make([]storagemodels.Document, len(valid))
	for i := range valid {
		docs[i] = valid[i].dao
	}
	r.audit.SetBulkAuditFields(docs, opts.OperationType)

	kind := backend.OperationUpsert
	if opts.OperationType == storagemodels.BulkCreate {
		kind = backend.OperationCreate
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxConcurrency)

	for start := 0; start < len(valid); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch := valid[start:end]

		g.Go(func() error {
			charge, successes, failures, err := r.dispatchBatch(gctx, batch, partitionKey, kind)
			if err != nil {
				return err
			}
			mu.Lock()
			result.SuccessfulItems = append(result.SuccessfulItems, successes...)
			result.FailedItems = append(result.FailedItems, failures...)
			result.TotalRequestCharge += charge
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.NewBackendError(operation, backend.StatusOf(err), err)
	}

	log := r.logger.Debug
	if len(result.FailedItems) > 0 {
		log = r.logger.Warn
	}
	log("bulk execution finished",
		zap.String("operation", operation),
		zap.Int("submitted", len(items)),
		zap.Int("succeeded", len(result.SuccessfulItems)),
		zap.Int("failed", len(result.FailedItems)),
		zap.Float64("requestCharge", result.TotalRequestCharge))
	return result, nil
}

// dispatchBatch sends one batch to the store and splits its items into
// successes and in-band failures.
func (r *Repository[D, T]) dispatchBatch(ctx context.Context, batch []bulkItem[D, T], partitionKey any, kind backend.OperationKind) (float64, []T, []storagemodels.BulkItemFailure[T], error) {
	ops := make([]backend.BatchOperation, 0, len(batch))
	var failures []storagemodels.BulkItemFailure[T]
	dispatched := make([]bulkItem[D, T], 0, len(batch))

	for _, bi := range batch {
		raw, err := mapping.ToTree(bi.dao)
		if err != nil {
			failures = append(failures, storagemodels.BulkItemFailure[T]{
				Item:   bi.item,
				Status: storagemodels.StatusBadRequest,
				Cause:  errors.NewMappingError("ToTree", err),
			})
			continue
		}
		ops = append(ops, backend.BatchOperation{
			Kind:     kind,
			ID:       bi.dao.Document().ID,
			Document: raw,
		})
		dispatched = append(dispatched, bi)
	}
	if len(ops) == 0 {
		return 0, nil, failures, nil
	}

	results, err := r.writeStore.ExecuteBatch(ctx, partitionKey, ops)
	if err != nil {
		return 0, nil, nil, err
	}

	var charge float64
	var successes []T
	for _, res := range results {
		bi := dispatched[res.Index]
		charge += res.RequestCharge
		if res.Status.Succeeded() {
			item, err := r.mapper.FromDao(bi.dao)
			if err != nil {
				// the write went through; report the input shape rather than
				// failing a persisted item, but leave a trace
				r.logger.Warn("mapping persisted bulk item back failed",
					zap.String("id", bi.dao.Document().ID),
					zap.Error(err))
				item = bi.item
			}
			successes = append(successes, item)
			continue
		}
		failures = append(failures, storagemodels.BulkItemFailure[T]{
			Item:      bi.item,
			Status:    res.Status,
			Retryable: res.Status.Retryable(),
			Cause:     res.Err,
		})
	}
	return charge, successes, failures, nil
}

// ReadBulk streams the specification's result set in mapped batches of
// batchSize. A batch that fails to map terminates the stream with an error
// result carrying no items.
func (r *Repository[D, T]) ReadBulk(ctx context.Context, spec storagemodels.Specification, partitionKey any, batchSize int32) <-chan storagemodels.BatchResult[T] {
	out := make(chan storagemodels.BatchResult[T], 1)

	go func() {
		defer close(out)

		if err := r.validator.ValidatePagingParameters(batchSize, "ReadBulk"); err != nil {
			out <- storagemodels.BatchResult[T]{Err: err}
			return
		}

		token := ""
		for {
			page, err := r.GetPage(ctx, spec, partitionKey, batchSize, token)
			if err != nil {
				select {
				case <-ctx.Done():
				case out <- storagemodels.BatchResult[T]{Err: err}:
				}
				return
			}
			if len(page.Items) > 0 {
				select {
				case <-ctx.Done():
					return
				case out <- storagemodels.BatchResult[T]{Items: page.Items}:
				}
			}
			if page.ContinuationToken == "" {
				return
			}
			token = page.ContinuationToken
		}
	}()

	return out
}
