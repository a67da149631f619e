/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// Package errors defines the uniform error taxonomy surfaced to callers of
// the repository engine. Every kind pairs a sentinel with a typed error
// implementing errors.Is, so callers can match either way regardless of
// which backend produced the fault.
package errors
