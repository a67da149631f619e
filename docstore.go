/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package docstore

import (
	"reflect"
	"sync"

	"github.com/tidemark/docstore/backend"
	"github.com/tidemark/docstore/errors"
	"github.com/tidemark/docstore/mapping"
	"github.com/tidemark/docstore/repository"
	"github.com/tidemark/docstore/storagemodels"
)

// Manager owns one backend store and hands out typed repositories over it.
// Repositories are built lazily and cached per storage type, so every caller
// asking for the same model shares one instance (and one count cache).
type Manager struct {
	store backend.Store
	opts  []repository.Option

	mu    sync.RWMutex
	repos map[reflect.Type]any
}

// NewManager creates a Manager over the given store. The options are applied
// to every repository it builds.
func NewManager(store backend.Store, opts ...repository.Option) (*Manager, error) {
	if store == nil {
		return nil, errors.NewConfigurationError("manager", "store must not be nil")
	}
	return &Manager{
		store: store,
		opts:  opts,
		repos: make(map[reflect.Type]any),
	}, nil
}

// Store returns the backend store the manager was built over.
func (m *Manager) Store() backend.Store { return m.store }

// RepositoryFor returns the manager's repository for the model D, building
// it on first use with the default structural mapper. D must be registered
// via registry.RegisterModel beforehand.
func RepositoryFor[D storagemodels.Document, T any](m *Manager) (*repository.Repository[D, T], error) {
	key := reflect.TypeOf((*D)(nil)).Elem()

	m.mu.RLock()
	cached, ok := m.repos[key]
	m.mu.RUnlock()
	if ok {
		repo, valid := cached.(*repository.Repository[D, T])
		if !valid {
			return nil, errors.NewConfigurationError("manager",
				"model "+key.String()+" is already bound to a different domain type")
		}
		return repo, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.repos[key]; ok {
		repo, valid := cached.(*repository.Repository[D, T])
		if !valid {
			return nil, errors.NewConfigurationError("manager",
				"model "+key.String()+" is already bound to a different domain type")
		}
		return repo, nil
	}

	mapper := mapping.NewStructuralMapper[D, T]()
	repo, err := repository.New[D, T](m.store, mapper, m.opts...)
	if err != nil {
		return nil, err
	}
	m.repos[key] = repo
	return repo, nil
}
