/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package storagemodels

import (
	"time"
)

// StreamResult represents a single item in a streamed query with metadata.
type StreamResult[T any] struct {
	Item  T           // The mapped item
	Raw   RawDocument // Raw backend document
	Error error       // Item-specific error, if any
	Meta  StreamMeta  // Metadata about this item
}

// StreamMeta contains metadata about a streamed item.
type StreamMeta struct {
	Index      int64     // Item index in stream (0-based)
	PageNumber int       // Backend page number (1-based)
	Timestamp  time.Time // When the item was retrieved
}

// BatchResult is one mapped batch of a bulk read. Err is set when mapping
// the batch failed; in that case Items is nil and the stream terminates.
type BatchResult[T any] struct {
	Items []T
	Err   error
}

// StreamOptions configures streaming behavior.
type StreamOptions struct {
	BufferSize      int                  // Result channel buffer size (default: 1)
	PageSize        int32                // Items per backend page (default: 100)
	ProgressHandler func(StreamProgress) // Optional progress callback
}

// StreamProgress tracks streaming progress. It is reported after each
// backend page.
type StreamProgress struct {
	ItemsProcessed int64     // Total items yielded so far
	PagesProcessed int       // Total backend pages consumed
	StartTime      time.Time // When streaming started
	CurrentRate    float64   // Items per second
}

// StreamOption is a functional option for configuring streaming.
type StreamOption func(*StreamOptions)

// DefaultStreamOptions returns the default streaming options. The single
// element buffer keeps memory use constant in the number of documents.
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		BufferSize: 1,
		PageSize:   100,
	}
}

// WithBufferSize sets the result channel buffer size.
func WithBufferSize(size int) StreamOption {
	return func(opts *StreamOptions) {
		opts.BufferSize = size
	}
}

// WithPageSize sets the backend page size.
func WithPageSize(size int32) StreamOption {
	return func(opts *StreamOptions) {
		opts.PageSize = size
	}
}

// WithProgressHandler sets a progress callback.
func WithProgressHandler(handler func(StreamProgress)) StreamOption {
	return func(opts *StreamOptions) {
		opts.ProgressHandler = handler
	}
}
