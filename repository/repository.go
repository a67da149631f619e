/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package repository

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tidemark/docstore/audit"
	"github.com/tidemark/docstore/backend"
	"github.com/tidemark/docstore/errors"
	"github.com/tidemark/docstore/mapping"
	"github.com/tidemark/docstore/registry"
	"github.com/tidemark/docstore/storagemodels"
	"github.com/tidemark/docstore/validation"
)

// Repository is the typed facade over one registered document model. D is
// the storage shape (a pointer type embedding storagemodels.DocumentBase),
// T the domain shape exchanged with callers. A Repository is safe for
// concurrent use.
type Repository[D storagemodels.Document, T any] struct {
	store      backend.Store
	writeStore backend.Store
	model      *registry.ModelConfig
	mapper     mapping.Mapper[D, T]
	validator  *validation.Validator
	audit      *audit.Manager
	logger     *zap.Logger
	clock      func() time.Time
	countTTL   time.Duration
	generateID func() string

	countCache sync.Map // cache key -> countEntry
}

// New builds a Repository for D's registered model. The model must have been
// registered via registry.RegisterModel before the first call.
func New[D storagemodels.Document, T any](store backend.Store, mapper mapping.Mapper[D, T], opts ...Option) (*Repository[D, T], error) {
	if store == nil {
		return nil, errors.NewConfigurationError("repository", "store must not be nil")
	}
	if mapper == nil {
		return nil, errors.NewConfigurationError("repository", "mapper must not be nil")
	}
	model, err := registry.ModelFor[D]()
	if err != nil {
		return nil, err
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	writeStore := s.writeStore
	if writeStore == nil {
		writeStore = store
	}

	return &Repository[D, T]{
		store:      store,
		writeStore: writeStore,
		model:      model,
		mapper:     mapper,
		validator:  validation.New(s.limits),
		audit:      audit.NewManager(s.users, audit.WithClock(s.clock)),
		logger:     s.logger.With(zap.String("model", model.TypeName())),
		clock:      s.clock,
		countTTL:   s.countTTL,
		generateID: s.generateID,
	}, nil
}

// Model exposes the registered model configuration.
func (r *Repository[D, T]) Model() *registry.ModelConfig { return r.model }

// GetByID reads one document by its identity pair. Soft-deleted documents
// are reported as not found.
func (r *Repository[D, T]) GetByID(ctx context.Context, id string, partitionKey any) (T, error) {
	var zero T
	if err := r.validator.ValidateIDAndPartitionKey(id, partitionKey, "GetByID"); err != nil {
		return zero, err
	}

	raw, charge, err := r.store.ReadItem(ctx, id, partitionKey)
	if err != nil {
		return zero, r.wrapBackend("GetByID", id, err)
	}
	r.logger.Debug("read document",
		zap.String("id", id), zap.Float64("requestCharge", charge))

	dao, err := r.decode(raw)
	if err != nil {
		return zero, err
	}
	if dao.Document().Deleted {
		return zero, errors.NewNotFoundError(r.model.TypeName(), id)
	}
	return r.mapper.FromDao(dao)
}

// Create persists a new document. An empty id is minted automatically; a
// colliding id fails with an already-exists error.
func (r *Repository[D, T]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	dao, err := r.mapper.ToDao(item)
	if err != nil {
		return zero, err
	}

	base := dao.Document()
	if base.ID == "" {
		base.ID = r.generateID()
	}
	r.audit.SetCreateAuditFields(dao)

	pk := r.model.PartitionKeyValue(dao)
	if err := r.validator.ValidateDocument(dao, "Create", pk); err != nil {
		return zero, err
	}

	raw, err := mapping.ToTree(dao)
	if err != nil {
		return zero, errors.NewMappingError("ToTree", err)
	}
	charge, err := r.writeStore.CreateItem(ctx, raw, pk)
	if err != nil {
		if backend.StatusOf(err) == storagemodels.StatusConflict {
			return zero, errors.NewAlreadyExistsError(r.model.TypeName(), base.ID)
		}
		return zero, r.wrapBackend("Create", base.ID, err)
	}
	r.logger.Debug("created document",
		zap.String("id", base.ID), zap.Float64("requestCharge", charge))
	return r.mapper.FromDao(dao)
}

// Replace overwrites an existing document, refreshing the update stamps and
// preserving the creation stamps carried on the item.
func (r *Repository[D, T]) Replace(ctx context.Context, item T) (T, error) {
	return r.put(ctx, item, "Replace")
}

// Upsert creates or overwrites a document. Whether the audit stamps follow
// the create or the update path is decided per item by its creation stamp.
func (r *Repository[D, T]) Upsert(ctx context.Context, item T) (T, error) {
	return r.put(ctx, item, "Upsert")
}

func (r *Repository[D, T]) put(ctx context.Context, item T, operation string) (T, error) {
	var zero T
	dao, err := r.mapper.ToDao(item)
	if err != nil {
		return zero, err
	}

	base := dao.Document()
	if operation == "Upsert" {
		if base.ID == "" {
			base.ID = r.generateID()
		}
		r.audit.SetUpsertAuditFields(dao)
	} else {
		r.audit.SetUpdateAuditFields(dao)
	}

	pk := r.model.PartitionKeyValue(dao)
	if err := r.validator.ValidateDocument(dao, operation, pk); err != nil {
		return zero, err
	}

	raw, err := mapping.ToTree(dao)
	if err != nil {
		return zero, errors.NewMappingError("ToTree", err)
	}

	var charge float64
	if operation == "Upsert" {
		charge, err = r.writeStore.UpsertItem(ctx, raw, pk)
	} else {
		charge, err = r.writeStore.ReplaceItem(ctx, raw, pk)
	}
	if err != nil {
		if backend.StatusOf(err) == storagemodels.StatusNotFound {
			return zero, errors.NewNotFoundError(r.model.TypeName(), base.ID)
		}
		return zero, r.wrapBackend(operation, base.ID, err)
	}
	r.logger.Debug("wrote document",
		zap.String("operation", operation),
		zap.String("id", base.ID), zap.Float64("requestCharge", charge))
	return r.mapper.FromDao(dao)
}

// Delete soft-deletes a document: the stored copy is kept with its deleted
// marker set and fresh update stamps, and subsequent reads report not found.
func (r *Repository[D, T]) Delete(ctx context.Context, id string, partitionKey any) error {
	if err := r.validator.ValidateIDAndPartitionKey(id, partitionKey, "Delete"); err != nil {
		return err
	}

	raw, _, err := r.store.ReadItem(ctx, id, partitionKey)
	if err != nil {
		return r.wrapBackend("Delete", id, err)
	}
	dao, err := r.decode(raw)
	if err != nil {
		return err
	}
	base := dao.Document()
	if base.Deleted {
		return errors.NewNotFoundError(r.model.TypeName(), id)
	}
	base.Deleted = true
	r.audit.SetUpdateAuditFields(dao)

	updated, err := mapping.ToTree(dao)
	if err != nil {
		return errors.NewMappingError("ToTree", err)
	}
	charge, err := r.writeStore.ReplaceItem(ctx, updated, partitionKey)
	if err != nil {
		return r.wrapBackend("Delete", id, err)
	}
	r.logger.Debug("soft-deleted document",
		zap.String("id", id), zap.Float64("requestCharge", charge))
	return nil
}

// HardDelete removes a document physically.
func (r *Repository[D, T]) HardDelete(ctx context.Context, id string, partitionKey any) error {
	if err := r.validator.ValidateIDAndPartitionKey(id, partitionKey, "HardDelete"); err != nil {
		return err
	}
	charge, err := r.writeStore.DeleteItem(ctx, id, partitionKey)
	if err != nil {
		return r.wrapBackend("HardDelete", id, err)
	}
	r.logger.Debug("deleted document",
		zap.String("id", id), zap.Float64("requestCharge", charge))
	return nil
}

// decode turns a raw backend document into the storage shape.
func (r *Repository[D, T]) decode(raw storagemodels.RawDocument) (D, error) {
	dao := mapping.NewDao[D]()
	if err := mapping.FromTree(raw, dao); err != nil {
		var zero D
		return zero, errors.NewMappingError("FromTree", err)
	}
	return dao, nil
}

// wrapBackend converts a store error into the engine taxonomy, preserving
// not-found as its own kind.
func (r *Repository[D, T]) wrapBackend(operation, id string, err error) error {
	status := backend.StatusOf(err)
	if status == storagemodels.StatusNotFound {
		return errors.NewNotFoundError(r.model.TypeName(), id)
	}
	return errors.NewBackendError(operation, status, err)
}
