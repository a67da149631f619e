/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/tidemark/docstore/errors"
	"github.com/tidemark/docstore/storagemodels"
)

// ModelConfig binds one storage-shape type to its backend location and
// partition key. It is validated once, when the model is registered, never
// per call.
type ModelConfig struct {
	// PartitionKeyProperty is the wire-level name of the property whose
	// value partitions documents of this type.
	PartitionKeyProperty string
	// Database and Container identify where documents of this type live.
	Database  string
	Container string

	typeName     string
	partitionKey func(doc any) any
}

// TypeName returns the registered Go type name.
func (c *ModelConfig) TypeName() string { return c.typeName }

// PartitionKeyValue reads the partition key off a document through the
// accessor compiled at registration time.
func (c *ModelConfig) PartitionKeyValue(doc any) any {
	return c.partitionKey(doc)
}

var (
	modelRegistry = make(map[reflect.Type]*ModelConfig)
	mu            sync.RWMutex
)

// RegisterModel validates and registers the model configuration for the
// storage type D. It fails with a ConfigurationError if the named partition
// key property does not exist on D, is not readable, or does not have a
// supported primitive type. Registering the same type twice is an error.
func RegisterModel[D storagemodels.Document](cfg ModelConfig) (*ModelConfig, error) {
	t := reflect.TypeOf((*D)(nil)).Elem()
	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	name := st.Name()

	if st.Kind() != reflect.Struct {
		return nil, errors.NewConfigurationError(name, "storage type must be a struct")
	}
	if cfg.PartitionKeyProperty == "" {
		return nil, errors.NewConfigurationError(name, "partition key property name must not be empty")
	}

	index, ft, ok := findProperty(st, cfg.PartitionKeyProperty)
	if !ok {
		return nil, errors.NewConfigurationError(name,
			fmt.Sprintf("partition key property %q not found", cfg.PartitionKeyProperty))
	}
	if !supportedKeyKind(ft.Kind()) {
		return nil, errors.NewConfigurationError(name,
			fmt.Sprintf("partition key property %q has unsupported type %s", cfg.PartitionKeyProperty, ft))
	}

	cfg.typeName = name
	cfg.partitionKey = compileAccessor(index)

	mu.Lock()
	defer mu.Unlock()
	if _, exists := modelRegistry[t]; exists {
		return nil, errors.NewConfigurationError(name, "model already registered")
	}
	c := cfg
	modelRegistry[t] = &c
	return &c, nil
}

// ModelFor returns the registered configuration for D.
func ModelFor[D storagemodels.Document]() (*ModelConfig, error) {
	t := reflect.TypeOf((*D)(nil)).Elem()

	mu.RLock()
	defer mu.RUnlock()
	cfg, ok := modelRegistry[t]
	if !ok {
		name := t.String()
		return nil, errors.NewConfigurationError(name, "model not registered")
	}
	return cfg, nil
}

// Reset clears all registrations. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	modelRegistry = make(map[reflect.Type]*ModelConfig)
}

// compileAccessor builds the per-type partition key accessor over the
// resolved field index chain, so no name lookup happens per call.
func compileAccessor(index []int) func(doc any) any {
	return func(doc any) any {
		v := reflect.ValueOf(doc)
		for v.Kind() == reflect.Pointer {
			v = v.Elem()
		}
		return v.FieldByIndex(index).Interface()
	}
}

// findProperty resolves a wire-level property name to a struct field,
// looking through embedded structs. Matching order: mapstructure tag, json
// tag, field name (case-insensitive).
func findProperty(st reflect.Type, property string) ([]int, reflect.Type, bool) {
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Anonymous {
			et := f.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				if idx, ft, ok := findProperty(et, property); ok {
					return append([]int{i}, idx...), ft, true
				}
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if matchesProperty(f, property) {
			return []int{i}, f.Type, true
		}
	}
	return nil, nil, false
}

func matchesProperty(f reflect.StructField, property string) bool {
	if tag := tagName(f.Tag.Get("mapstructure")); tag != "" {
		return tag == property
	}
	if tag := tagName(f.Tag.Get("json")); tag != "" {
		return tag == property
	}
	return strings.EqualFold(f.Name, property)
}

func tagName(tag string) string {
	if tag == "" || tag == "-" {
		return ""
	}
	if i := strings.Index(tag, ","); i >= 0 {
		tag = tag[:i]
	}
	return tag
}

func supportedKeyKind(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Int, reflect.Int32, reflect.Int64, reflect.Float64, reflect.Bool:
		return true
	}
	return false
}
