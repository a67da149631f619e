/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// Package query compiles property filters and query specifications into the
// parameterized query text the backend store executes.
package query
