/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// Package docstore is a repository engine over a partitioned document
// store. It provides typed repositories with validation, audit stamping,
// soft deletion, token-based paging, streaming reads, cached counts and
// concurrent bulk writes, backed by DynamoDB or an in-process store.
//
// Basic usage:
//
//	registry.RegisterModel[*OrderRecord](registry.ModelConfig{
//		PartitionKeyProperty: "customerId",
//	})
//
//	manager, _ := docstore.NewManager(memory.New())
//	orders, _ := docstore.RepositoryFor[*OrderRecord, Order](manager)
//	created, err := orders.Create(ctx, order)
package docstore
