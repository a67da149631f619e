/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/tidemark/docstore/backend"
	"github.com/tidemark/docstore/storagemodels"
)

func TestTranslateQuery(t *testing.T) {
	t.Run("NamedParametersBecomePositional", func(t *testing.T) {
		q := backend.Query{
			Text: "SELECT * FROM c WHERE c.category = @category AND c.price >= @price",
			Parameters: map[string]any{
				"@category": "electronics",
				"@price":    25,
			},
		}
		stmt, params, err := translateQuery(q, "products", "partitionKey", nil)
		if err != nil {
			t.Fatalf("translateQuery failed: %v", err)
		}
		expected := `SELECT * FROM "products" WHERE category = ? AND price >= ?`
		if stmt != expected {
			t.Errorf("got %q, want %q", stmt, expected)
		}
		if len(params) != 2 {
			t.Fatalf("expected 2 parameters, got %d", len(params))
		}
		// positional order must follow appearance in the text
		if s, ok := params[0].(*types.AttributeValueMemberS); !ok || s.Value != "electronics" {
			t.Errorf("first parameter should be the category, got %v", params[0])
		}
		if _, ok := params[1].(*types.AttributeValueMemberN); !ok {
			t.Errorf("second parameter should be numeric, got %v", params[1])
		}
	})

	t.Run("PartitionScopeAppendedToExistingWhere", func(t *testing.T) {
		q := backend.Query{
			Text:       "SELECT * FROM c WHERE c.status = @status",
			Parameters: map[string]any{"@status": "active"},
		}
		stmt, params, err := translateQuery(q, "products", "partitionKey", "electronics")
		if err != nil {
			t.Fatalf("translateQuery failed: %v", err)
		}
		expected := `SELECT * FROM "products" WHERE status = ? AND "partitionKey" = ?`
		if stmt != expected {
			t.Errorf("got %q, want %q", stmt, expected)
		}
		if len(params) != 2 {
			t.Fatalf("expected 2 parameters, got %d", len(params))
		}
		if s, ok := params[1].(*types.AttributeValueMemberS); !ok || s.Value != "electronics" {
			t.Errorf("partition key must bind last, got %v", params[1])
		}
	})

	t.Run("PartitionScopeAddsWhereWhenAbsent", func(t *testing.T) {
		q := backend.Query{Text: "SELECT * FROM c"}
		stmt, _, err := translateQuery(q, "products", "partitionKey", "garden")
		if err != nil {
			t.Fatalf("translateQuery failed: %v", err)
		}
		expected := `SELECT * FROM "products" WHERE "partitionKey" = ?`
		if stmt != expected {
			t.Errorf("got %q, want %q", stmt, expected)
		}
	})

	t.Run("CountProjectionRewrittenToStar", func(t *testing.T) {
		q := backend.Query{
			Text:       "SELECT VALUE COUNT(1) FROM c WHERE c.status = @status",
			Parameters: map[string]any{"@status": "active"},
		}
		stmt, _, err := translateQuery(q, "products", "partitionKey", nil)
		if err != nil {
			t.Fatalf("translateQuery failed: %v", err)
		}
		expected := `SELECT * FROM "products" WHERE status = ?`
		if stmt != expected {
			t.Errorf("got %q, want %q", stmt, expected)
		}
	})

	t.Run("StringLiteralsBecomeSingleQuoted", func(t *testing.T) {
		// PartiQL reads double quotes as identifiers, so inlined literals
		// must come out single-quoted and otherwise untouched
		q := backend.Query{Text: `SELECT * FROM c WHERE c.name IN ("c.fake", "x@y")`}
		stmt, params, err := translateQuery(q, "products", "partitionKey", nil)
		if err != nil {
			t.Fatalf("translateQuery failed: %v", err)
		}
		expected := `SELECT * FROM "products" WHERE name IN ('c.fake', 'x@y')`
		if stmt != expected {
			t.Errorf("got %q, want %q", stmt, expected)
		}
		if len(params) != 0 {
			t.Errorf("inlined literals must not bind parameters, got %d", len(params))
		}
	})

	t.Run("EmbeddedSingleQuoteIsDoubled", func(t *testing.T) {
		q := backend.Query{Text: `SELECT * FROM c WHERE c.name IN ("it's")`}
		stmt, _, err := translateQuery(q, "products", "partitionKey", nil)
		if err != nil {
			t.Fatalf("translateQuery failed: %v", err)
		}
		expected := `SELECT * FROM "products" WHERE name IN ('it''s')`
		if stmt != expected {
			t.Errorf("got %q, want %q", stmt, expected)
		}
	})

	t.Run("NotEqualsBecomesAngleBrackets", func(t *testing.T) {
		q := backend.Query{
			Text:       `SELECT * FROM c WHERE c.status != @status AND c.note IN ("a != b")`,
			Parameters: map[string]any{"@status": "retired"},
		}
		stmt, params, err := translateQuery(q, "products", "partitionKey", nil)
		if err != nil {
			t.Fatalf("translateQuery failed: %v", err)
		}
		expected := `SELECT * FROM "products" WHERE status <> ? AND note IN ('a != b')`
		if stmt != expected {
			t.Errorf("got %q, want %q", stmt, expected)
		}
		if len(params) != 1 {
			t.Errorf("expected 1 bound parameter, got %d", len(params))
		}
	})

	t.Run("UnterminatedLiteralRejected", func(t *testing.T) {
		q := backend.Query{Text: `SELECT * FROM c WHERE c.name IN ("broken)`}
		_, _, err := translateQuery(q, "products", "partitionKey", nil)
		if backend.StatusOf(err) != storagemodels.StatusBadRequest {
			t.Errorf("expected bad request, got %v", err)
		}
	})

	t.Run("UnboundParameterIsBadRequest", func(t *testing.T) {
		q := backend.Query{Text: "SELECT * FROM c WHERE c.status = @status"}
		_, _, err := translateQuery(q, "products", "partitionKey", nil)
		if backend.StatusOf(err) != storagemodels.StatusBadRequest {
			t.Errorf("expected bad request, got %v", err)
		}
	})

	t.Run("MissingSourceClauseRejected", func(t *testing.T) {
		q := backend.Query{Text: "DELETE FROM t"}
		_, _, err := translateQuery(q, "products", "partitionKey", nil)
		if backend.StatusOf(err) != storagemodels.StatusBadRequest {
			t.Errorf("expected bad request, got %v", err)
		}
	})
}

type fakeAPIError struct {
	code string
}

func (e *fakeAPIError) Error() string                 { return e.code }
func (e *fakeAPIError) ErrorCode() string             { return e.code }
func (e *fakeAPIError) ErrorMessage() string          { return e.code }
func (e *fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected storagemodels.OperationStatus
	}{
		{"Throughput", &types.ProvisionedThroughputExceededException{}, storagemodels.StatusTooManyRequests},
		{"RequestLimit", &types.RequestLimitExceeded{}, storagemodels.StatusTooManyRequests},
		{"Internal", &types.InternalServerError{}, storagemodels.StatusInternalError},
		{"TableMissing", &types.ResourceNotFoundException{}, storagemodels.StatusServiceUnavailable},
		{"Throttling", &fakeAPIError{code: "ThrottlingException"}, storagemodels.StatusTooManyRequests},
		{"Validation", &fakeAPIError{code: "ValidationException"}, storagemodels.StatusBadRequest},
		{"Deadline", context.DeadlineExceeded, storagemodels.StatusRequestTimeout},
		{"Generic", errors.New("boom"), storagemodels.StatusInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classify("Op", tt.err)
			if got := backend.StatusOf(classified); got != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, got)
			}
			if !errors.Is(classified, tt.err) {
				t.Error("classified error must wrap the cause")
			}
		})
	}
}

func TestClassifyRetryableFlag(t *testing.T) {
	classified := classify("Op", retryableErr{})
	if got := backend.StatusOf(classified); got != storagemodels.StatusServiceUnavailable {
		t.Errorf("expected service unavailable for a retryable SDK error, got %d", got)
	}
}

type retryableErr struct{}

func (retryableErr) Error() string     { return "transient" }
func (retryableErr) IsRetryable() bool { return true }
