/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/tidemark/docstore/errors"
	"github.com/tidemark/docstore/storagemodels"
)

// Mapper converts between the storage shape D and the domain shape T. Both
// directions must be pure and total aside from failing on malformed input.
// One Mapper is registered per DAO/DTO pair.
type Mapper[D storagemodels.Document, T any] interface {
	ToDao(dto T) (D, error)
	FromDao(dao D) (T, error)
}

// StructuralMapper is the zero-configuration default Mapper. It converts by
// a structural round-trip: the source is serialized into a neutral property
// tree and the tree is decoded into the target shape, matching properties
// by their wire names. Pairs with divergent shapes need a custom Mapper.
type StructuralMapper[D storagemodels.Document, T any] struct{}

// NewStructuralMapper returns the default mapper for a DAO/DTO pair.
func NewStructuralMapper[D storagemodels.Document, T any]() *StructuralMapper[D, T] {
	return &StructuralMapper[D, T]{}
}

// ToDao converts a domain object to its storage shape.
func (m *StructuralMapper[D, T]) ToDao(dto T) (D, error) {
	var zero D
	if isNilValue(dto) {
		return zero, errors.NewMappingError("ToDao", fmt.Errorf("source must not be nil"))
	}

	dao := NewDao[D]()
	if err := roundTrip(dto, dao); err != nil {
		return zero, errors.NewMappingError("ToDao", err)
	}
	return dao, nil
}

// FromDao converts a storage document to its domain shape.
func (m *StructuralMapper[D, T]) FromDao(dao D) (T, error) {
	var dto T
	if isNilValue(dao) {
		return dto, errors.NewMappingError("FromDao", fmt.Errorf("source must not be nil"))
	}

	if err := roundTrip(dao, &dto); err != nil {
		var zero T
		return zero, errors.NewMappingError("FromDao", err)
	}
	return dto, nil
}

// FromDaos maps a finite sequence of documents element by element via
// FromDao, stopping at the first failure.
func FromDaos[D storagemodels.Document, T any](m Mapper[D, T], daos []D) ([]T, error) {
	dtos := make([]T, 0, len(daos))
	for i, dao := range daos {
		dto, err := m.FromDao(dao)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

// MapResult is one element of a streamed mapping.
type MapResult[T any] struct {
	Item T
	Err  error
}

// FromDaoStream maps an asynchronous sequence cooperatively: it pulls one
// document, maps it, yields one result, and only then pulls the next, so at
// most one element is in flight. Cancellation stops the stream without
// wrapping the context error into a result.
func FromDaoStream[D storagemodels.Document, T any](ctx context.Context, m Mapper[D, T], in <-chan D) <-chan MapResult[T] {
	out := make(chan MapResult[T])

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case dao, ok := <-in:
				if !ok {
					return
				}
				dto, err := m.FromDao(dao)
				select {
				case <-ctx.Done():
					return
				case out <- MapResult[T]{Item: dto, Err: err}:
				}
			}
		}
	}()

	return out
}

// ToTree serializes a value into the neutral property tree keyed by wire
// names. Backends use this as the document's raw shape.
func ToTree(v any) (storagemodels.RawDocument, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	tree := make(storagemodels.RawDocument)
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// FromTree decodes a neutral property tree into dst, which must be a
// pointer. Timestamps arrive as RFC 3339 strings and are converted by the
// decode hooks.
func FromTree(tree storagemodels.RawDocument, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(tree)
}

// roundTrip converts src into the neutral tree and decodes the tree into
// dst.
func roundTrip(src, dst any) error {
	tree, err := ToTree(src)
	if err != nil {
		return fmt.Errorf("encoding source: %w", err)
	}
	if err := FromTree(tree, dst); err != nil {
		return fmt.Errorf("decoding target: %w", err)
	}
	return nil
}

// NewDao allocates a fresh DAO value. D is a pointer type (the Document
// interface has a pointer receiver), so the zero value would be nil.
func NewDao[D storagemodels.Document]() D {
	t := reflect.TypeOf((*D)(nil)).Elem()
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface().(D)
	}
	var zero D
	return zero
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
