/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// Package backend defines the contract between the repository engine and
// the underlying document store. The engine depends only on this contract,
// never on a particular store's wire protocol; connection management,
// network retries and consistency mechanics all live behind it.
package backend
