/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// Package audit manages the creation/update timestamps and actor identity
// stamped on documents during create, update, upsert and bulk writes.
package audit
