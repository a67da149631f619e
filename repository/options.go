/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package repository

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tidemark/docstore/audit"
	"github.com/tidemark/docstore/backend"
	"github.com/tidemark/docstore/validation"
)

const defaultCountCacheTTL = 5 * time.Minute

type settings struct {
	logger     *zap.Logger
	limits     validation.Limits
	users      audit.UserContext
	writeStore backend.Store
	clock      func() time.Time
	countTTL   time.Duration
	generateID func() string
}

func defaultSettings() settings {
	return settings{
		logger:     zap.NewNop(),
		limits:     validation.DefaultLimits(),
		clock:      time.Now,
		countTTL:   defaultCountCacheTTL,
		generateID: uuid.NewString,
	}
}

// Option customizes a Repository.
type Option func(*settings)

// WithLogger attaches a structured logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLimits overrides the validation ceilings.
func WithLimits(limits validation.Limits) Option {
	return func(s *settings) { s.limits = limits }
}

// WithUserContext supplies the caller identity used for audit stamps.
func WithUserContext(users audit.UserContext) Option {
	return func(s *settings) { s.users = users }
}

// WithWriteStore routes writes to a different store than reads, for
// deployments that split read and write connections.
func WithWriteStore(store backend.Store) Option {
	return func(s *settings) { s.writeStore = store }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithCountCacheTTL sets how long cached counts stay fresh.
func WithCountCacheTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.countTTL = ttl
		}
	}
}

// WithIDGenerator overrides how ids for new documents are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *settings) {
		if gen != nil {
			s.generateID = gen
		}
	}
}
