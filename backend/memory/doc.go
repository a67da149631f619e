/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// Package memory provides an in-process backend.Store. It evaluates the
// compiled query dialect over per-partition document slices, issues
// continuation tokens bound to the query that produced them, and simulates
// request charges, so repository behavior can be exercised end to end
// without a live document store.
package memory
