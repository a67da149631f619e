/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package audit

import (
	"time"

	"github.com/tidemark/docstore/storagemodels"
)

// FallbackActor is recorded when no user context is configured or the
// configured one misbehaves.
const FallbackActor = "system"

// UserContext supplies the actor identity stamped on documents. Implementations
// must not panic; the manager guards against it regardless.
type UserContext interface {
	CurrentUser() string
}

// StaticUserContext always reports the same actor.
type StaticUserContext string

func (s StaticUserContext) CurrentUser() string { return string(s) }

// Manager stamps audit metadata on documents for create, update, upsert and
// bulk flows. Stamping is deterministic given the clock and user context.
type Manager struct {
	users UserContext
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates an audit Manager. A nil user context stamps the
// fallback actor.
func NewManager(users UserContext, opts ...Option) *Manager {
	m := &Manager{
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetCreateAuditFields stamps a newly created document: both timestamps set
// to now, both actors set to the current user, soft-delete flag cleared.
func (m *Manager) SetCreateAuditFields(doc storagemodels.Document) {
	base := doc.Document()
	now := m.now()
	actor := m.currentActor()

	base.CreatedOnUTC = now
	base.UpdatedOnUTC = now
	base.CreatedBy = actor
	base.UpdatedBy = actor
	base.Deleted = false
}

// SetUpdateAuditFields stamps an updated document. A document arriving with
// an unset CreatedOnUTC is repaired by backfilling the creation fields; that
// is a defensive measure, not the normal path.
func (m *Manager) SetUpdateAuditFields(doc storagemodels.Document) {
	base := doc.Document()
	now := m.now()
	actor := m.currentActor()

	if base.CreatedOnUTC.IsZero() {
		base.CreatedOnUTC = now
		base.CreatedBy = actor
	}
	base.UpdatedOnUTC = now
	base.UpdatedBy = actor
}

// SetUpsertAuditFields stamps a document whose create-vs-update intent is
// unknown. A real CreatedOnUTC marks the document as round-tripped and it is
// treated as an update; the zero value marks it as externally supplied and
// it is treated as a create. A document whose CreatedOnUTC was legitimately
// left at the zero value is indistinguishable from a fresh one and will be
// re-stamped as a create.
func (m *Manager) SetUpsertAuditFields(doc storagemodels.Document) {
	if doc.Document().CreatedOnUTC.IsZero() {
		m.SetCreateAuditFields(doc)
		return
	}
	m.SetUpdateAuditFields(doc)
}

// SetBulkAuditFields stamps a whole bulk submission. Create operations stamp
// every item uniformly; upsert operations apply the upsert heuristic per
// item.
func (m *Manager) SetBulkAuditFields(docs []storagemodels.Document, operationType storagemodels.BulkOperationType) {
	for _, doc := range docs {
		if operationType == storagemodels.BulkCreate {
			m.SetCreateAuditFields(doc)
		} else {
			m.SetUpsertAuditFields(doc)
		}
	}
}

// currentActor resolves the actor identity. A panicking or empty user
// context is a boundary fault, not a retryable condition; the fallback
// identity is stamped instead of leaking the fault into the write path.
func (m *Manager) currentActor() (actor string) {
	defer func() {
		if r := recover(); r != nil {
			actor = FallbackActor
		}
	}()

	if m.users == nil {
		return FallbackActor
	}
	actor = m.users.CurrentUser()
	if actor == "" {
		actor = FallbackActor
	}
	return actor
}
