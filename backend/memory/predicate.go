/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package memory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidemark/docstore/backend"
	"github.com/tidemark/docstore/storagemodels"
)

// The store evaluates the query dialect the filter compiler emits: a SELECT
// over the document alias with an optional WHERE of AND-joined comparisons,
// "@name" placeholders, inlined IN literal lists and the match-all "1=1".
// Text outside that subset is rejected as a bad request rather than
// approximated.

type predicate interface {
	matches(doc storagemodels.RawDocument) (bool, error)
}

type matchAll struct{}

func (matchAll) matches(storagemodels.RawDocument) (bool, error) { return true, nil }

type conjunction struct {
	terms []predicate
}

func (c conjunction) matches(doc storagemodels.RawDocument) (bool, error) {
	for _, t := range c.terms {
		ok, err := t.matches(doc)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

type comparison struct {
	property string
	operator string
	value    any
}

func (c comparison) matches(doc storagemodels.RawDocument) (bool, error) {
	actual, present := doc[c.property]
	if !present {
		return false, nil
	}
	return compareValues(actual, c.operator, c.value)
}

type membership struct {
	property string
	values   []any
}

func (m membership) matches(doc storagemodels.RawDocument) (bool, error) {
	actual, present := doc[m.property]
	if !present {
		return false, nil
	}
	for _, v := range m.values {
		ok, err := compareValues(actual, "=", v)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

var selectPrefixes = []string{
	"SELECT * FROM ",
	"SELECT VALUE COUNT(1) FROM ",
}

func parseQuery(q backend.Query) (predicate, error) {
	text := strings.TrimSpace(q.Text)

	matchedPrefix := ""
	for _, p := range selectPrefixes {
		if len(text) >= len(p) && strings.EqualFold(text[:len(p)], p) {
			matchedPrefix = p
			break
		}
	}
	if matchedPrefix == "" {
		return nil, badQuery(q.Text, "unsupported projection")
	}

	rest := strings.TrimSpace(text[len(matchedPrefix):])
	alias, where, hasWhere := cutFold(rest, " WHERE ")
	if strings.TrimSpace(alias) != "c" {
		return nil, badQuery(q.Text, "unsupported source alias")
	}
	if !hasWhere {
		return matchAll{}, nil
	}
	return parseWhere(strings.TrimSpace(where), q)
}

func parseWhere(where string, q backend.Query) (predicate, error) {
	if where == "1=1" {
		return matchAll{}, nil
	}

	var terms []predicate
	for _, clause := range splitFold(where, " AND ") {
		term, err := parseClause(strings.TrimSpace(clause), q)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return conjunction{terms: terms}, nil
}

func parseClause(clause string, q backend.Query) (predicate, error) {
	if clause == "1=1" {
		return matchAll{}, nil
	}

	if prop, list, ok := cutFold(clause, " IN "); ok {
		property, err := propertyPath(prop, q)
		if err != nil {
			return nil, err
		}
		values, err := parseLiteralList(strings.TrimSpace(list), q)
		if err != nil {
			return nil, err
		}
		return membership{property: property, values: values}, nil
	}

	// longest operators first so ">=" is not read as ">"
	for _, op := range []string{"!=", ">=", "<=", "=", ">", "<"} {
		idx := strings.Index(clause, " "+op+" ")
		if idx < 0 {
			continue
		}
		property, err := propertyPath(clause[:idx], q)
		if err != nil {
			return nil, err
		}
		value, err := resolveOperand(strings.TrimSpace(clause[idx+len(op)+2:]), q)
		if err != nil {
			return nil, err
		}
		return comparison{property: property, operator: op, value: value}, nil
	}
	return nil, badQuery(q.Text, fmt.Sprintf("unsupported clause %q", clause))
}

func propertyPath(expr string, q backend.Query) (string, error) {
	expr = strings.TrimSpace(expr)
	prop, ok := strings.CutPrefix(expr, "c.")
	if !ok || prop == "" || strings.Contains(prop, ".") {
		return "", badQuery(q.Text, fmt.Sprintf("unsupported property expression %q", expr))
	}
	return prop, nil
}

func resolveOperand(expr string, q backend.Query) (any, error) {
	if strings.HasPrefix(expr, "@") {
		value, bound := q.Parameters[expr]
		if !bound {
			return nil, badQuery(q.Text, fmt.Sprintf("parameter %s is not bound", expr))
		}
		return value, nil
	}
	return parseLiteral(expr, q)
}

func parseLiteral(expr string, q backend.Query) (any, error) {
	switch {
	case strings.HasPrefix(expr, `"`):
		s, err := strconv.Unquote(expr)
		if err != nil {
			return nil, badQuery(q.Text, fmt.Sprintf("malformed string literal %s", expr))
		}
		return s, nil
	case expr == "true":
		return true, nil
	case expr == "false":
		return false, nil
	default:
		n, err := strconv.ParseFloat(expr, 64)
		if err != nil {
			return nil, badQuery(q.Text, fmt.Sprintf("malformed literal %s", expr))
		}
		return n, nil
	}
}

// parseLiteralList parses "(lit, lit, ...)". String literals may themselves
// contain commas, so the scan is quote-aware.
func parseLiteralList(expr string, q backend.Query) ([]any, error) {
	if !strings.HasPrefix(expr, "(") || !strings.HasSuffix(expr, ")") {
		return nil, badQuery(q.Text, fmt.Sprintf("malformed IN list %s", expr))
	}
	inner := expr[1 : len(expr)-1]

	var values []any
	var current strings.Builder
	inString := false
	escaped := false
	flush := func() error {
		token := strings.TrimSpace(current.String())
		current.Reset()
		if token == "" {
			return badQuery(q.Text, "empty IN list element")
		}
		v, err := parseLiteral(token, q)
		if err != nil {
			return err
		}
		values = append(values, v)
		return nil
	}
	for _, r := range inner {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case r == ',' && !inString:
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		current.WriteRune(r)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return values, nil
}

// compareValues compares a document value against a query operand. Numbers
// compare numerically across int/float representations; strings compare
// lexicographically; booleans support equality only.
func compareValues(actual any, operator string, expected any) (bool, error) {
	if an, aok := asFloat(actual); aok {
		en, eok := asFloat(expected)
		if !eok {
			return false, nil
		}
		return compareOrdered(an, en, operator)
	}

	switch a := actual.(type) {
	case string:
		e, ok := expected.(string)
		if !ok {
			return false, nil
		}
		return compareOrdered(a, e, operator)
	case bool:
		e, ok := expected.(bool)
		if !ok {
			return false, nil
		}
		switch operator {
		case "=":
			return a == e, nil
		case "!=":
			return a != e, nil
		}
		return false, fmt.Errorf("operator %s is not defined for booleans", operator)
	case nil:
		switch operator {
		case "=":
			return expected == nil, nil
		case "!=":
			return expected != nil, nil
		}
		return false, nil
	}
	return false, fmt.Errorf("cannot compare value of type %T", actual)
}

func compareOrdered[T string | float64](a, b T, operator string) (bool, error) {
	switch operator {
	case "=":
		return a == b, nil
	case "!=":
		return a != b, nil
	case ">":
		return a > b, nil
	case "<":
		return a < b, nil
	case ">=":
		return a >= b, nil
	case "<=":
		return a <= b, nil
	}
	return false, fmt.Errorf("unsupported operator %s", operator)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func badQuery(text, reason string) error {
	return backend.NewStatusError(storagemodels.StatusBadRequest,
		fmt.Sprintf("query %q: %s", text, reason), nil)
}

// cutFold is strings.Cut with a case-insensitive separator.
func cutFold(s, sep string) (before, after string, found bool) {
	idx := indexFold(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+len(sep):], true
}

// splitFold splits on a case-insensitive separator, ignoring separators
// inside string literals.
func splitFold(s, sep string) []string {
	var parts []string
	for {
		idx := indexFoldOutsideStrings(s, sep)
		if idx < 0 {
			parts = append(parts, s)
			return parts
		}
		parts = append(parts, s[:idx])
		s = s[idx+len(sep):]
	}
}

func indexFold(s, sep string) int {
	return strings.Index(strings.ToUpper(s), strings.ToUpper(sep))
}

func indexFoldOutsideStrings(s, sep string) int {
	upper := strings.ToUpper(s)
	upperSep := strings.ToUpper(sep)
	inString := false
	escaped := false
	for i := 0; i+len(sep) <= len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\' && inString:
			escaped = true
		case s[i] == '"':
			inString = !inString
		}
		if !inString && strings.HasPrefix(upper[i:], upperSep) {
			return i
		}
	}
	return -1
}
