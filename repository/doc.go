/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// Package repository is the typed facade of the engine. A Repository binds
// one registered document model to a backend store and a DAO/DTO mapper,
// and layers validation, audit stamping, soft deletion, token-based paging,
// streaming reads, cached counts and concurrent bulk writes on top of the
// store's primitive operations.
//
// All blocking operations take a context. Channel-returning operations
// always close their channel, whether the stream drains, fails, or is
// cancelled.
package repository
