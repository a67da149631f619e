/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tidemark/docstore/backend"
	"github.com/tidemark/docstore/errors"
	"github.com/tidemark/docstore/mapping"
	"github.com/tidemark/docstore/query"
	"github.com/tidemark/docstore/storagemodels"
)

// Find compiles the filters into a specification and returns every matching
// document in the partition.
func (r *Repository[D, T]) Find(ctx context.Context, filters []storagemodels.PropertyFilter, partitionKey any) ([]T, error) {
	spec, err := query.BuildSelect(filters)
	if err != nil {
		return nil, err
	}
	return r.Query(ctx, spec, partitionKey)
}

// Query drains the specification's full result set. Prefer the streaming or
// paged variants for result sets of unknown size.
func (r *Repository[D, T]) Query(ctx context.Context, spec storagemodels.Specification, partitionKey any) ([]T, error) {
	var items []T
	token := ""
	for {
		page, err := r.GetPage(ctx, spec, partitionKey, r.validator.Limits().MaxPageSize, token)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if page.ContinuationToken == "" {
			return items, nil
		}
		token = page.ContinuationToken
	}
}

// GetPage executes one page of the specification. Passing the returned
// continuation token resumes exactly where the page ended; an empty token in
// the returned page means the result set is exhausted.
func (r *Repository[D, T]) GetPage(ctx context.Context, spec storagemodels.Specification, partitionKey any, pageSize int32, continuationToken string) (storagemodels.Page[T], error) {
	var zero storagemodels.Page[T]
	if err := r.validator.ValidatePagingParameters(pageSize, "GetPage"); err != nil {
		return zero, err
	}
	q, err := query.ToQuery(spec)
	if err != nil {
		return zero, err
	}
	q = query.ExcludeSoftDeleted(q)

	raw, err := r.store.QueryItems(ctx, q, backend.QueryOptions{
		PartitionKey:      partitionKey,
		PageSize:          pageSize,
		ContinuationToken: continuationToken,
	})
	if err != nil {
		return zero, errors.NewBackendError("GetPage", backend.StatusOf(err), err)
	}
	r.logger.Debug("queried page",
		zap.Int("items", len(raw.Items)),
		zap.Float64("requestCharge", raw.RequestCharge))

	items, err := r.mapRawItems(raw.Items)
	if err != nil {
		return zero, err
	}
	return storagemodels.Page[T]{
		Items:             items,
		ContinuationToken: raw.ContinuationToken,
	}, nil
}

// GetPageWithCount behaves like GetPage and additionally reports the total
// match count on the first page. Continuation pages skip the count; its
// value cannot change mid-pagination in any way the caller could use.
func (r *Repository[D, T]) GetPageWithCount(ctx context.Context, spec storagemodels.Specification, partitionKey any, pageSize int32, continuationToken string) (storagemodels.Page[T], error) {
	page, err := r.GetPage(ctx, spec, partitionKey, pageSize, continuationToken)
	if err != nil {
		return page, err
	}
	if continuationToken != "" {
		return page, nil
	}
	count, err := r.GetCountWithCache(ctx, spec, partitionKey)
	if err != nil {
		return storagemodels.Page[T]{}, err
	}
	page.TotalCount = &count
	return page, nil
}

// GetCount executes the specification's count form directly, bypassing the
// cache.
func (r *Repository[D, T]) GetCount(ctx context.Context, spec storagemodels.Specification, partitionKey any) (int64, error) {
	q, err := query.ToCountQuery(spec)
	if err != nil {
		return 0, err
	}
	q = query.ExcludeSoftDeleted(q)
	count, charge, err := r.store.QueryCount(ctx, q, backend.QueryOptions{PartitionKey: partitionKey})
	if err != nil {
		return 0, errors.NewBackendError("GetCount", backend.StatusOf(err), err)
	}
	r.logger.Debug("counted documents",
		zap.Int64("count", count), zap.Float64("requestCharge", charge))
	return count, nil
}

// countEntry is immutable once stored; refreshes replace the whole entry.
type countEntry struct {
	count    int64
	storedAt time.Time
}

// GetCountWithCache returns the specification's match count, served from the
// count cache while the entry is fresh. Entries are keyed by query text and
// partition, so distinct specifications never collide.
func (r *Repository[D, T]) GetCountWithCache(ctx context.Context, spec storagemodels.Specification, partitionKey any) (int64, error) {
	key, err := countCacheKey(spec, partitionKey)
	if err != nil {
		return 0, err
	}

	if v, ok := r.countCache.Load(key); ok {
		entry := v.(countEntry)
		if r.clock().Sub(entry.storedAt) < r.countTTL {
			return entry.count, nil
		}
	}

	count, err := r.GetCount(ctx, spec, partitionKey)
	if err != nil {
		return 0, err
	}
	r.countCache.Store(key, countEntry{count: count, storedAt: r.clock()})
	return count, nil
}

// InvalidateCountCache drops the cached count for one specification and
// partition.
func (r *Repository[D, T]) InvalidateCountCache(spec storagemodels.Specification, partitionKey any) {
	key, err := countCacheKey(spec, partitionKey)
	if err != nil {
		return
	}
	r.countCache.Delete(key)
}

// InvalidateAllCounts drops every cached count.
func (r *Repository[D, T]) InvalidateAllCounts() {
	r.countCache.Range(func(key, _ any) bool {
		r.countCache.Delete(key)
		return true
	})
}

// GetTotalCount counts every document in the partition. It always asks the
// backend; callers wanting the cached form go through GetCountWithCache.
func (r *Repository[D, T]) GetTotalCount(ctx context.Context, partitionKey any) (int64, error) {
	spec, err := query.BuildSelect(nil)
	if err != nil {
		return 0, err
	}
	return r.GetCount(ctx, spec, partitionKey)
}

func countCacheKey(spec storagemodels.Specification, partitionKey any) (string, error) {
	qs, ok := spec.(*storagemodels.QuerySpecification)
	if !ok {
		name := "nil"
		if spec != nil {
			name = spec.SpecificationName()
		}
		return "", errors.NewUnsupportedSpecificationError(name)
	}
	return fmt.Sprintf("%s|%v", qs.Text(), partitionKey), nil
}

// mapRawItems decodes and maps a page of raw documents, aborting on the
// first failure.
func (r *Repository[D, T]) mapRawItems(raw []storagemodels.RawDocument) ([]T, error) {
	daos := make([]D, 0, len(raw))
	for i, doc := range raw {
		dao, err := r.decode(doc)
		if err != nil {
			return nil, errors.NewMappingError(fmt.Sprintf("page element %d", i), err)
		}
		daos = append(daos, dao)
	}
	items, err := mapping.FromDaos[D, T](r.mapper, daos)
	if err != nil {
		return nil, err
	}
	return items, nil
}
