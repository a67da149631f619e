/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package query

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidemark/docstore/backend"
	"github.com/tidemark/docstore/errors"
	"github.com/tidemark/docstore/storagemodels"
)

// DocumentAlias is the column alias every compiled query addresses
// properties through.
const DocumentAlias = "c"

// matchAllPredicate is what an empty filter set compiles to.
const matchAllPredicate = "1=1"

// SoftDeleteProperty is the envelope flag marking a soft-deleted document.
const SoftDeleteProperty = "deleted"

var countRewritePattern = regexp.MustCompile(`(?i)^\s*SELECT\s+\*\s+FROM\s+`)

// Builder accumulates query text and named parameters and produces an
// immutable QuerySpecification.
type Builder struct {
	text   string
	params map[string]any
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{params: make(map[string]any)}
}

// WithText sets the query text.
func (b *Builder) WithText(text string) *Builder {
	b.text = text
	return b
}

// WithParameter binds one named parameter. The name must include the "@"
// prefix used in the query text.
func (b *Builder) WithParameter(name string, value any) *Builder {
	b.params[name] = value
	return b
}

// Build produces the immutable specification.
func (b *Builder) Build() *storagemodels.QuerySpecification {
	return storagemodels.NewQuerySpecification(b.text, b.params)
}

// ParameterName returns the placeholder for a property, "@" plus the
// property name with any character the backend would reject stripped.
func ParameterName(property string) string {
	var sb strings.Builder
	for _, r := range property {
		if r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return "@" + sb.String()
}

// BuildWhereClause compiles a filter sequence into the WHERE predicate of a
// backend query. Filters are ANDed; an empty sequence compiles to an
// always-true predicate. Every non-IN filter references a named placeholder
// matching ParameterName; IN filters inline their values as literals because
// driver-side array parameters are unreliable across backends — callers
// supply IN values already sanitized.
func BuildWhereClause(filters []storagemodels.PropertyFilter) (string, error) {
	if len(filters) == 0 {
		return matchAllPredicate, nil
	}

	clauses := make([]string, 0, len(filters))
	for _, f := range filters {
		switch f.Operator {
		case storagemodels.OpEqual, storagemodels.OpNotEqual,
			storagemodels.OpGreater, storagemodels.OpLess,
			storagemodels.OpGreaterOrEqual, storagemodels.OpLessOrEqual:
			clauses = append(clauses, fmt.Sprintf("%s.%s %s %s",
				DocumentAlias, f.PropertyName, f.Operator, ParameterName(f.PropertyName)))
		case storagemodels.OpIn:
			list, err := inLiterals(f.PropertyValue)
			if err != nil {
				return "", errors.NewValidationError("BuildWhereClause",
					fmt.Sprintf("property %s: %v", f.PropertyName, err))
			}
			clauses = append(clauses, fmt.Sprintf("%s.%s IN (%s)", DocumentAlias, f.PropertyName, list))
		default:
			return "", errors.NewUnsupportedOperatorError(string(f.Operator))
		}
	}
	return strings.Join(clauses, " AND "), nil
}

// AddParameters binds every non-IN filter's value on the builder. It must
// be called with the same filter set used to build the WHERE clause, or the
// placeholder names will not match.
func AddParameters(filters []storagemodels.PropertyFilter, b *Builder) {
	for _, f := range filters {
		if f.Operator == storagemodels.OpIn {
			continue
		}
		b.WithParameter(ParameterName(f.PropertyName), f.PropertyValue)
	}
}

// BuildSelect compiles a filter sequence into a complete SELECT
// specification over the document alias.
func BuildSelect(filters []storagemodels.PropertyFilter) (*storagemodels.QuerySpecification, error) {
	where, err := BuildWhereClause(filters)
	if err != nil {
		return nil, err
	}
	b := NewBuilder().WithText(fmt.Sprintf("SELECT * FROM %s WHERE %s", DocumentAlias, where))
	AddParameters(filters, b)
	return b.Build(), nil
}

// ToQuery translates a specification into a backend query. Only the
// parameterized-text form is supported.
func ToQuery(spec storagemodels.Specification) (backend.Query, error) {
	qs, ok := spec.(*storagemodels.QuerySpecification)
	if !ok {
		name := "nil"
		if spec != nil {
			name = spec.SpecificationName()
		}
		return backend.Query{}, errors.NewUnsupportedSpecificationError(name)
	}
	return backend.Query{Text: qs.Text(), Parameters: qs.Parameters()}, nil
}

// ExcludeSoftDeleted appends a predicate hiding soft-deleted documents from
// a compiled query, so paged reads, streams and counts agree with point
// reads about what exists. Every document written through the engine carries
// the deleted flag, so the predicate never hides a live document.
func ExcludeSoftDeleted(q backend.Query) backend.Query {
	clause := fmt.Sprintf("%s.%s != true", DocumentAlias, SoftDeleteProperty)
	if hasWhereClause(q.Text) {
		q.Text += " AND " + clause
	} else {
		q.Text += " WHERE " + clause
	}
	return q
}

// hasWhereClause reports whether the text carries a WHERE keyword outside
// string literals.
func hasWhereClause(text string) bool {
	const keyword = " WHERE "
	upper := strings.ToUpper(text)
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		switch {
		case escaped:
			escaped = false
		case text[i] == '\\' && inString:
			escaped = true
		case text[i] == '"':
			inString = !inString
		}
		if !inString && strings.HasPrefix(upper[i:], keyword) {
			return true
		}
	}
	return false
}

// ToCountQuery derives a count query from a specification by rewriting a
// leading "SELECT * FROM" into a count projection and copying the
// parameters. The rewrite is textual and anchored at the start of the text;
// specifications outside that subset are rejected rather than silently
// miscounted.
func ToCountQuery(spec storagemodels.Specification) (backend.Query, error) {
	q, err := ToQuery(spec)
	if err != nil {
		return backend.Query{}, err
	}
	if !countRewritePattern.MatchString(q.Text) {
		return backend.Query{}, errors.NewUnsupportedSpecificationError("non-star projection")
	}
	q.Text = countRewritePattern.ReplaceAllString(q.Text, "SELECT VALUE COUNT(1) FROM ")
	return q, nil
}

// inLiterals renders the elements of an IN filter value as a literal list.
func inLiterals(value any) (string, error) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return "", fmt.Errorf("IN value must be a slice")
	}
	if rv.Len() == 0 {
		return "", fmt.Errorf("IN value must not be empty")
	}

	parts := make([]string, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		lit, err := literal(rv.Index(i).Interface())
		if err != nil {
			return "", err
		}
		parts[i] = lit
	}
	return strings.Join(parts, ", "), nil
}

func literal(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t), nil
	case bool:
		return strconv.FormatBool(t), nil
	case int, int32, int64, float32, float64:
		return fmt.Sprintf("%v", t), nil
	default:
		return "", fmt.Errorf("unsupported literal type %T", v)
	}
}
