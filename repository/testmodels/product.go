/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// Package testmodels holds the DAO/DTO pair the repository tests exercise.
package testmodels

import (
	"github.com/go-openapi/strfmt"

	"github.com/tidemark/docstore/storagemodels"
)

// ProductRecord is the storage shape of a catalog product.
type ProductRecord struct {
	storagemodels.DocumentBase

	Category string  `json:"category"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Status   string  `json:"status"`
}

// Product is the domain shape exchanged with callers.
type Product struct {

	// Unique identifier of the product.
	ID string `json:"id,omitempty"`

	// Category the product is partitioned by.
	Category string `json:"category"`

	// Display name.
	Name string `json:"name"`

	// Unit price.
	Price float64 `json:"price"`

	// Units on hand.
	Stock int `json:"stock"`

	// Lifecycle status, e.g. "active".
	Status string `json:"status,omitempty"`

	// Timestamp when the product was created.
	// Format: date-time
	CreatedOnUTC strfmt.DateTime `json:"createdOnUtc,omitempty"`

	// Timestamp when the product was last updated.
	// Format: date-time
	UpdatedOnUTC strfmt.DateTime `json:"updatedOnUtc,omitempty"`
}
