/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// Package storagemodels defines the shared data model of the repository
// engine: the storage document envelope, property filters and query
// specifications, paging and streaming result shapes, and the bulk
// execution result types.
package storagemodels
