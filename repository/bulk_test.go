/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package repository

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tidemark/docstore/audit"
	"github.com/tidemark/docstore/backend/memory"
	"github.com/tidemark/docstore/errors"
	"github.com/tidemark/docstore/mapping"
	"github.com/tidemark/docstore/query"
	"github.com/tidemark/docstore/registry"
	"github.com/tidemark/docstore/repository/testmodels"
	"github.com/tidemark/docstore/storagemodels"
)

func testProduct(id, category string) testmodels.Product {
	return testmodels.Product{ID: id, Category: category, Name: "item-" + id, Price: 10, Status: "active"}
}

func bulkItems(n int) []testmodels.Product {
	items := make([]testmodels.Product, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, testProduct(fmt.Sprintf("b%d", i+1), "electronics"))
	}
	return items
}

func TestExecuteBulk(t *testing.T) {
	ctx := context.Background()

	t.Run("AllItemsSucceed", func(t *testing.T) {
		repo, _ := setupRepo(t)
		result, err := repo.ExecuteBulk(ctx, bulkItems(5), "electronics", storagemodels.BulkOptions{
			OperationType:  storagemodels.BulkCreate,
			BatchSize:      2,
			MaxConcurrency: 2,
		})
		if err != nil {
			t.Fatalf("ExecuteBulk failed: %v", err)
		}
		if !result.IsSuccess() {
			t.Fatalf("expected full success, failures: %+v", result.FailedItems)
		}
		if len(result.SuccessfulItems) != 5 || result.TotalItems() != 5 {
			t.Errorf("accounting off: %d successful, %d total", len(result.SuccessfulItems), result.TotalItems())
		}
		if result.TotalRequestCharge <= 0 {
			t.Error("expected accumulated request charge")
		}

		// everything must actually be readable afterwards
		for i := 1; i <= 5; i++ {
			if _, err := repo.GetByID(ctx, fmt.Sprintf("b%d", i), "electronics"); err != nil {
				t.Errorf("item b%d not persisted: %v", i, err)
			}
		}
	})

	t.Run("MismatchedItemFailsAlone", func(t *testing.T) {
		repo, _ := setupRepo(t)
		items := bulkItems(4)
		items = append(items, testProduct("stray", "garden"))

		result, err := repo.ExecuteBulk(ctx, items, "electronics", storagemodels.BulkOptions{
			OperationType: storagemodels.BulkCreate,
		})
		if err != nil {
			t.Fatalf("ExecuteBulk failed: %v", err)
		}
		if len(result.FailedItems) != 1 {
			t.Fatalf("expected exactly one failed item, got %d", len(result.FailedItems))
		}
		failure := result.FailedItems[0]
		if failure.Item.ID != "stray" {
			t.Errorf("wrong item failed: %s", failure.Item.ID)
		}
		if failure.Retryable {
			t.Error("a key mismatch is a caller bug and must not be retryable")
		}
		if len(result.SuccessfulItems) != 4 {
			t.Errorf("siblings must proceed, got %d successes", len(result.SuccessfulItems))
		}
	})

	t.Run("ConflictReportedPerItem", func(t *testing.T) {
		repo, _ := setupRepo(t)
		if _, err := repo.Create(ctx, testProduct("b1", "electronics")); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		result, err := repo.ExecuteBulk(ctx, bulkItems(3), "electronics", storagemodels.BulkOptions{
			OperationType: storagemodels.BulkCreate,
		})
		if err != nil {
			t.Fatalf("ExecuteBulk failed: %v", err)
		}
		if len(result.FailedItems) != 1 {
			t.Fatalf("expected one conflict, got %d failures", len(result.FailedItems))
		}
		if result.FailedItems[0].Status != storagemodels.StatusConflict {
			t.Errorf("expected conflict status, got %d", result.FailedItems[0].Status)
		}
		if result.FailedItems[0].Retryable {
			t.Error("a conflict must not be retryable")
		}
	})

	t.Run("ThrottledItemIsRetryable", func(t *testing.T) {
		repo, store := setupRepo(t)
		store.FailWrites("b2", storagemodels.StatusTooManyRequests)

		result, err := repo.ExecuteBulk(ctx, bulkItems(3), "electronics", storagemodels.BulkOptions{
			OperationType: storagemodels.BulkUpsert,
		})
		if err != nil {
			t.Fatalf("ExecuteBulk failed: %v", err)
		}
		if len(result.FailedItems) != 1 {
			t.Fatalf("expected one failure, got %d", len(result.FailedItems))
		}
		if !result.FailedItems[0].Retryable {
			t.Error("throttling must be marked retryable")
		}
	})

	t.Run("UpsertOverwritesExisting", func(t *testing.T) {
		repo, _ := setupRepo(t)
		if _, err := repo.Create(ctx, testProduct("b1", "electronics")); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		items := bulkItems(2)
		items[0].Price = 77
		result, err := repo.ExecuteBulk(ctx, items, "electronics", storagemodels.BulkOptions{
			OperationType: storagemodels.BulkUpsert,
		})
		if err != nil {
			t.Fatalf("ExecuteBulk failed: %v", err)
		}
		if !result.IsSuccess() {
			t.Fatalf("expected full success, failures: %+v", result.FailedItems)
		}
		got, err := repo.GetByID(ctx, "b1", "electronics")
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got.Price != 77 {
			t.Error("upsert did not overwrite the existing item")
		}
	})

	t.Run("OversizedParametersFailTheCall", func(t *testing.T) {
		repo, _ := setupRepo(t)
		_, err := repo.ExecuteBulk(ctx, bulkItems(2), "electronics", storagemodels.BulkOptions{
			BatchSize: 10_000,
		})
		if !errors.IsValidation(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("EmptySubmissionSucceeds", func(t *testing.T) {
		repo, _ := setupRepo(t)
		result, err := repo.ExecuteBulk(ctx, nil, "electronics", storagemodels.DefaultBulkOptions())
		if err != nil {
			t.Fatalf("ExecuteBulk failed: %v", err)
		}
		if !result.IsSuccess() || result.SuccessRate() != 100 {
			t.Error("an empty submission is a successful no-op")
		}
	})

	t.Run("CancellationFailsTheCall", func(t *testing.T) {
		repo, _ := setupRepo(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := repo.ExecuteBulk(cancelled, bulkItems(3), "electronics", storagemodels.DefaultBulkOptions())
		if err == nil {
			t.Fatal("expected the call to fail on a cancelled context")
		}
	})

	t.Run("MappingFallbackIsLoggedAndStillSucceeds", func(t *testing.T) {
		registry.Reset()
		if _, err := registry.RegisterModel[*testmodels.ProductRecord](registry.ModelConfig{
			PartitionKeyProperty: "category",
			Database:             "catalog",
			Container:            "products",
		}); err != nil {
			t.Fatalf("RegisterModel failed: %v", err)
		}

		core, logs := observer.New(zap.WarnLevel)
		mapper := writeOnlyMapper{mapping.NewStructuralMapper[*testmodels.ProductRecord, testmodels.Product]()}
		repo, err := New[*testmodels.ProductRecord, testmodels.Product](memory.New(), mapper,
			WithUserContext(audit.StaticUserContext("tester")),
			WithLogger(zap.New(core)))
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		result, err := repo.ExecuteBulk(ctx, bulkItems(1), "electronics", storagemodels.BulkOptions{
			OperationType: storagemodels.BulkCreate,
		})
		if err != nil {
			t.Fatalf("ExecuteBulk failed: %v", err)
		}
		// the write went through, so the item counts as successful even
		// though it could not be mapped back
		if !result.IsSuccess() || len(result.SuccessfulItems) != 1 {
			t.Fatalf("persisted item must be reported successful, got %+v", result)
		}
		if result.SuccessfulItems[0].ID != "b1" {
			t.Errorf("fallback must report the submitted item, got %+v", result.SuccessfulItems[0])
		}
		if logs.FilterMessage("mapping persisted bulk item back failed").Len() != 1 {
			t.Error("expected a warning about the mapping fallback")
		}
	})

	t.Run("MintsMissingIDs", func(t *testing.T) {
		repo, _ := setupRepo(t)
		items := []testmodels.Product{{Category: "electronics", Name: "anon"}}
		result, err := repo.ExecuteBulk(ctx, items, "electronics", storagemodels.BulkOptions{
			OperationType: storagemodels.BulkCreate,
		})
		if err != nil {
			t.Fatalf("ExecuteBulk failed: %v", err)
		}
		if !result.IsSuccess() {
			t.Fatalf("expected success, failures: %+v", result.FailedItems)
		}
		if result.SuccessfulItems[0].ID == "" {
			t.Error("expected a minted id on the returned item")
		}
	})
}

// writeOnlyMapper maps into storage fine but cannot map back, like a DTO
// whose read side rejects the stored shape.
type writeOnlyMapper struct {
	mapping.Mapper[*testmodels.ProductRecord, testmodels.Product]
}

func (writeOnlyMapper) FromDao(*testmodels.ProductRecord) (testmodels.Product, error) {
	return testmodels.Product{}, fmt.Errorf("read side unavailable")
}

func TestReadBulk(t *testing.T) {
	ctx := context.Background()

	t.Run("BatchesFollowPageSize", func(t *testing.T) {
		repo, _ := setupRepo(t)
		seedProducts(t, repo, 5)
		spec, err := query.BuildSelect(nil)
		if err != nil {
			t.Fatalf("BuildSelect failed: %v", err)
		}

		var sizes []int
		for batch := range repo.ReadBulk(ctx, spec, "electronics", 2) {
			if batch.Err != nil {
				t.Fatalf("unexpected batch error: %v", batch.Err)
			}
			sizes = append(sizes, len(batch.Items))
		}
		if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
			t.Errorf("expected batch sizes [2 2 1], got %v", sizes)
		}
	})

	t.Run("InvalidBatchSizeReportedInBand", func(t *testing.T) {
		repo, _ := setupRepo(t)
		spec, _ := query.BuildSelect(nil)
		batch, ok := <-repo.ReadBulk(ctx, spec, "electronics", 0)
		if !ok || !errors.IsValidation(batch.Err) {
			t.Errorf("expected an in-band validation error, got %+v", batch)
		}
	})
}
