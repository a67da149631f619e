/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// Package registry associates storage-shape Go types with their model
// configuration: the partition key property, the backend database and
// container, and a partition key accessor compiled once at registration.
package registry
