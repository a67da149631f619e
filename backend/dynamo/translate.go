/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package dynamo

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tidemark/docstore/backend"
	"github.com/tidemark/docstore/storagemodels"
)

// The engine compiles specifications against the "c" document alias with
// "@name" placeholders, double-quoted string literals and "!=". DynamoDB
// PartiQL wants a quoted table name, bare attribute paths, positional "?"
// parameters, single-quoted string literals and "<>", so the adapter
// rewrites the statement before execution. Literals are converted to the
// PartiQL single-quoted form first; every later rewrite step leaves
// single-quoted segments untouched, and double quotes from then on only
// delimit identifiers the adapter itself inserts.

var parameterPattern = regexp.MustCompile(`@[A-Za-z0-9_]+`)

const countProjectionPrefix = "SELECT VALUE COUNT(1) FROM "

// translateQuery rewrites an engine query into a PartiQL statement scoped to
// the given partition, returning the statement and its positional parameters.
func translateQuery(q backend.Query, tableName, partitionKeyAttr string, partitionKey any) (string, []types.AttributeValue, error) {
	text := strings.TrimSpace(q.Text)

	// Count projections are rewritten to star selects; PartiQL on DynamoDB
	// has no aggregates, so the adapter counts pages itself.
	if n := len(countProjectionPrefix); len(text) >= n && strings.EqualFold(text[:n], countProjectionPrefix) {
		text = "SELECT * FROM " + text[n:]
	}

	text, err := rewriteLiterals(text)
	if err != nil {
		return "", nil, backend.NewStatusError(storagemodels.StatusBadRequest,
			fmt.Sprintf("query %q: %v", q.Text, err), nil)
	}

	stmt, ok := rewriteSource(text, tableName)
	if !ok {
		return "", nil, backend.NewStatusError(storagemodels.StatusBadRequest,
			fmt.Sprintf("query %q: unsupported source clause", q.Text), nil)
	}
	stmt = stripAliasOutsideStrings(stmt)
	stmt = rewriteNotEqualsOutsideStrings(stmt)

	if partitionKey != nil {
		scope := fmt.Sprintf("%q = ?", partitionKeyAttr)
		if containsFoldOutsideStrings(stmt, " WHERE ") {
			stmt += " AND " + scope
		} else {
			stmt += " WHERE " + scope
		}
	}

	params, stmt, err := bindParameters(stmt, q.Parameters)
	if err != nil {
		return "", nil, err
	}
	if partitionKey != nil {
		av, err := attributevalue.Marshal(partitionKey)
		if err != nil {
			return "", nil, backend.NewStatusError(storagemodels.StatusBadRequest,
				"cannot marshal partition key", err)
		}
		params = append(params, av)
	}
	return stmt, params, nil
}

// rewriteLiterals converts the compiler's double-quoted string literals into
// single-quoted PartiQL literals, doubling embedded single quotes. PartiQL
// treats double quotes as identifier delimiters, so inlined IN literals
// would otherwise resolve as attribute names.
func rewriteLiterals(text string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(text); {
		if text[i] != '"' {
			sb.WriteByte(text[i])
			i++
			continue
		}
		end := i + 1
		escaped := false
		for end < len(text) {
			c := text[end]
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				break
			}
			end++
		}
		if end >= len(text) {
			return "", fmt.Errorf("unterminated string literal")
		}
		value, err := strconv.Unquote(text[i : end+1])
		if err != nil {
			return "", fmt.Errorf("malformed string literal %s", text[i:end+1])
		}
		sb.WriteByte('\'')
		sb.WriteString(strings.ReplaceAll(value, "'", "''"))
		sb.WriteByte('\'')
		i = end + 1
	}
	return sb.String(), nil
}

// rewriteSource replaces the document alias in the FROM clause with the
// quoted table name.
func rewriteSource(text, tableName string) (string, bool) {
	idx := indexFoldOutsideStrings(text, " FROM c")
	if idx < 0 {
		return "", false
	}
	after := text[idx+len(" FROM c"):]
	if after != "" && after[0] != ' ' {
		return "", false
	}
	return text[:idx] + fmt.Sprintf(" FROM %q", tableName) + after, true
}

// bindParameters converts "@name" placeholders to positional "?" markers in
// order of appearance and collects the corresponding values.
func bindParameters(stmt string, values map[string]any) ([]types.AttributeValue, string, error) {
	var params []types.AttributeValue
	var bindErr error

	rewritten := replaceOutsideStrings(stmt, func(segment string) string {
		return parameterPattern.ReplaceAllStringFunc(segment, func(name string) string {
			if bindErr != nil {
				return name
			}
			value, bound := values[name]
			if !bound {
				bindErr = backend.NewStatusError(storagemodels.StatusBadRequest,
					fmt.Sprintf("parameter %s is not bound", name), nil)
				return name
			}
			av, err := attributevalue.Marshal(value)
			if err != nil {
				bindErr = backend.NewStatusError(storagemodels.StatusBadRequest,
					fmt.Sprintf("cannot marshal parameter %s", name), err)
				return name
			}
			params = append(params, av)
			return "?"
		})
	})
	if bindErr != nil {
		return nil, "", bindErr
	}
	return params, rewritten, nil
}

// stripAliasOutsideStrings removes the "c." property prefix everywhere
// except inside string literals.
func stripAliasOutsideStrings(s string) string {
	return replaceOutsideStrings(s, func(segment string) string {
		return strings.ReplaceAll(segment, "c.", "")
	})
}

// rewriteNotEqualsOutsideStrings rewrites the engine's "!=" into the "<>"
// PartiQL spells inequality with.
func rewriteNotEqualsOutsideStrings(s string) string {
	return replaceOutsideStrings(s, func(segment string) string {
		return strings.ReplaceAll(segment, "!=", "<>")
	})
}

// replaceOutsideStrings applies fn to every run of text outside
// single-quoted string literals and reassembles the statement. A doubled
// quote inside a literal toggles out and straight back in, leaving an empty
// outside segment, which is harmless.
func replaceOutsideStrings(s string, fn func(string) string) string {
	var sb strings.Builder
	var segment strings.Builder
	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			sb.WriteByte(ch)
			if ch == '\'' {
				inString = false
			}
			continue
		}
		if ch == '\'' {
			sb.WriteString(fn(segment.String()))
			segment.Reset()
			sb.WriteByte(ch)
			inString = true
			continue
		}
		segment.WriteByte(ch)
	}
	sb.WriteString(fn(segment.String()))
	return sb.String()
}

func containsFoldOutsideStrings(s, sub string) bool {
	return indexFoldOutsideStrings(s, sub) >= 0
}

func indexFoldOutsideStrings(s, sub string) int {
	upper := strings.ToUpper(s)
	upperSub := strings.ToUpper(sub)
	inString := false
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i] == '\'' {
			inString = !inString
		}
		if !inString && strings.HasPrefix(upper[i:], upperSub) {
			return i
		}
	}
	return -1
}
