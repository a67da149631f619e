/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// Package validation implements the stateless input checks that run before
// any network call: document ids, partition keys, page sizes, bulk
// parameters, and document shape. Failures aggregate every violation into a
// single ValidationError.
package validation
