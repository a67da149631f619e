/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package repository

import (
	"context"

	"github.com/tidemark/docstore/backend"
	"github.com/tidemark/docstore/errors"
	"github.com/tidemark/docstore/query"
	"github.com/tidemark/docstore/storagemodels"
)

// Stream compiles the filters and streams every matching document in the
// partition one at a time.
func (r *Repository[D, T]) Stream(ctx context.Context, filters []storagemodels.PropertyFilter, partitionKey any, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	spec, err := query.BuildSelect(filters)
	if err != nil {
		return failedStream[T](err)
	}
	return r.StreamBySpecification(ctx, spec, partitionKey, opts...)
}

// StreamAll streams every document across all partitions.
func (r *Repository[D, T]) StreamAll(ctx context.Context, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	spec, err := query.BuildSelect(nil)
	if err != nil {
		return failedStream[T](err)
	}
	return r.StreamBySpecification(ctx, spec, nil, opts...)
}

// StreamBySpecification streams the specification's result set. Results
// arrive in result-set order with per-item metadata; an item that fails to
// map is reported in-band and the stream continues. Page-level failures end
// the stream after one error result. Cancelling the context stops the
// stream; the channel is always closed.
func (r *Repository[D, T]) StreamBySpecification(ctx context.Context, spec storagemodels.Specification, partitionKey any, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}

	q, err := query.ToQuery(spec)
	if err != nil {
		return failedStream[T](err)
	}
	q = query.ExcludeSoftDeleted(q)

	resultCh := make(chan storagemodels.StreamResult[T], options.BufferSize)
	go r.streamWorker(ctx, q, partitionKey, options, 0, -1, resultCh)
	return resultCh
}

// StreamWithOffset streams like StreamBySpecification but skips the first
// offset items and yields at most limit items. The skip happens client side;
// metadata indices are relative to the yielded window. A negative limit
// means no cap.
func (r *Repository[D, T]) StreamWithOffset(ctx context.Context, spec storagemodels.Specification, partitionKey any, offset int64, limit int64, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}

	q, err := query.ToQuery(spec)
	if err != nil {
		return failedStream[T](err)
	}
	q = query.ExcludeSoftDeleted(q)
	if offset < 0 {
		offset = 0
	}

	resultCh := make(chan storagemodels.StreamResult[T], options.BufferSize)
	go r.streamWorker(ctx, q, partitionKey, options, offset, limit, resultCh)
	return resultCh
}

// streamWorker pulls pages from the backend and fans items into the result
// channel, reporting progress after each page.
func (r *Repository[D, T]) streamWorker(
	ctx context.Context,
	q backend.Query,
	partitionKey any,
	options storagemodels.StreamOptions,
	skip int64,
	limit int64,
	resultCh chan<- storagemodels.StreamResult[T],
) {
	defer close(resultCh)

	var itemIndex int64
	var pageNumber int
	startTime := r.clock()

	reportProgress := func() {
		if options.ProgressHandler == nil {
			return
		}
		progress := storagemodels.StreamProgress{
			ItemsProcessed: itemIndex,
			PagesProcessed: pageNumber,
			StartTime:      startTime,
		}
		if elapsed := r.clock().Sub(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	queryOpts := backend.QueryOptions{
		PartitionKey: partitionKey,
		PageSize:     options.PageSize,
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		page, err := r.store.QueryItems(ctx, q, queryOpts)
		if err != nil {
			result := storagemodels.StreamResult[T]{
				Error: errors.NewBackendError("Stream", backend.StatusOf(err), err),
				Meta: storagemodels.StreamMeta{
					Index:      itemIndex,
					PageNumber: pageNumber,
					Timestamp:  r.clock(),
				},
			}
			select {
			case <-ctx.Done():
			case resultCh <- result:
			}
			return
		}
		pageNumber++

		for _, raw := range page.Items {
			if skip > 0 {
				skip--
				continue
			}
			if limit >= 0 && itemIndex >= limit {
				reportProgress()
				return
			}

			select {
			case <-ctx.Done():
				return
			default:
			}

			result := r.streamItem(raw, itemIndex, pageNumber)
			itemIndex++

			select {
			case <-ctx.Done():
				return
			case resultCh <- result:
			}
		}

		reportProgress()

		if page.ContinuationToken == "" {
			return
		}
		queryOpts.ContinuationToken = page.ContinuationToken
	}
}

// streamItem decodes and maps one raw document into a stream result.
func (r *Repository[D, T]) streamItem(raw storagemodels.RawDocument, index int64, pageNumber int) storagemodels.StreamResult[T] {
	meta := storagemodels.StreamMeta{
		Index:      index,
		PageNumber: pageNumber,
		Timestamp:  r.clock(),
	}

	rawCopy := make(storagemodels.RawDocument, len(raw))
	for k, v := range raw {
		rawCopy[k] = v
	}

	dao, err := r.decode(raw)
	if err != nil {
		return storagemodels.StreamResult[T]{Error: err, Raw: rawCopy, Meta: meta}
	}
	item, err := r.mapper.FromDao(dao)
	if err != nil {
		return storagemodels.StreamResult[T]{Error: err, Raw: rawCopy, Meta: meta}
	}
	return storagemodels.StreamResult[T]{Item: item, Raw: rawCopy, Meta: meta}
}

// failedStream yields a single error result and closes.
func failedStream[T any](err error) <-chan storagemodels.StreamResult[T] {
	ch := make(chan storagemodels.StreamResult[T], 1)
	ch <- storagemodels.StreamResult[T]{Error: err}
	close(ch)
	return ch
}
