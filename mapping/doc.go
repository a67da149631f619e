/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// Package mapping converts between storage documents (DAO) and domain
// objects (DTO). The default StructuralMapper round-trips values through a
// neutral property tree; batch and streaming forms are derived from the
// per-element conversion, never implemented independently.
package mapping
