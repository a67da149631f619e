/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/tidemark/docstore/query"
	"github.com/tidemark/docstore/storagemodels"
)

func TestStream(t *testing.T) {
	ctx := context.Background()

	t.Run("YieldsAllItemsInOrder", func(t *testing.T) {
		repo, _ := setupRepo(t)
		seedProducts(t, repo, 5)

		var progressPages int
		results := repo.Stream(ctx, nil, "electronics",
			storagemodels.WithPageSize(2),
			storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
				progressPages = p.PagesProcessed
			}))

		var names []string
		var lastIndex int64 = -1
		for res := range results {
			if res.Error != nil {
				t.Fatalf("unexpected stream error: %v", res.Error)
			}
			if res.Meta.Index != lastIndex+1 {
				t.Errorf("indices must be consecutive, got %d after %d", res.Meta.Index, lastIndex)
			}
			lastIndex = res.Meta.Index
			names = append(names, res.Item.Name)
		}
		if len(names) != 5 {
			t.Fatalf("expected 5 items, got %d", len(names))
		}
		if progressPages != 3 {
			t.Errorf("expected progress over 3 pages, got %d", progressPages)
		}
	})

	t.Run("FiltersApply", func(t *testing.T) {
		repo, _ := setupRepo(t)
		seedProducts(t, repo, 5)

		results := repo.Stream(ctx, []storagemodels.PropertyFilter{
			{PropertyName: "price", PropertyValue: 40, Operator: storagemodels.OpGreaterOrEqual},
		}, "electronics")

		count := 0
		for res := range results {
			if res.Error != nil {
				t.Fatalf("unexpected stream error: %v", res.Error)
			}
			count++
		}
		if count != 2 {
			t.Errorf("expected 2 items priced >= 40, got %d", count)
		}
	})

	t.Run("MalformedDocumentReportedInBand", func(t *testing.T) {
		repo, store := setupRepo(t)
		seedProducts(t, repo, 1)
		_, err := store.CreateItem(ctx, storagemodels.RawDocument{
			"id": "bad", "category": "electronics", "price": "not-a-number", "deleted": false,
		}, "electronics")
		if err != nil {
			t.Fatalf("backend create failed: %v", err)
		}

		var good, bad int
		for res := range repo.Stream(ctx, nil, "electronics") {
			if res.Error != nil {
				bad++
				if res.Raw == nil {
					t.Error("failed items must carry the raw document")
				}
				continue
			}
			good++
		}
		if good != 1 || bad != 1 {
			t.Errorf("expected 1 good and 1 bad item, got %d/%d", good, bad)
		}
	})

	t.Run("ProgressUsesInjectedClock", func(t *testing.T) {
		frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		repo, _ := setupRepo(t, WithClock(func() time.Time { return frozen }))
		seedProducts(t, repo, 3)

		var last storagemodels.StreamProgress
		for res := range repo.Stream(ctx, nil, "electronics",
			storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) { last = p })) {
			if res.Error != nil {
				t.Fatalf("unexpected stream error: %v", res.Error)
			}
		}
		if !last.StartTime.Equal(frozen) {
			t.Errorf("start time must come from the injected clock, got %v", last.StartTime)
		}
		// zero elapsed time on the injected clock means no rate
		if last.CurrentRate != 0 {
			t.Errorf("expected no rate under a frozen clock, got %f", last.CurrentRate)
		}
	})

	t.Run("CancellationClosesStream", func(t *testing.T) {
		repo, _ := setupRepo(t)
		seedProducts(t, repo, 5)

		streamCtx, cancel := context.WithCancel(ctx)
		results := repo.Stream(streamCtx, nil, "electronics", storagemodels.WithPageSize(1))

		<-results
		cancel()
		for range results {
			// drain until the worker notices cancellation and closes
		}
	})

	t.Run("UnsupportedSpecificationFailsInBand", func(t *testing.T) {
		repo, _ := setupRepo(t)
		results := repo.StreamBySpecification(ctx, fakeSpec{}, "electronics")
		res, ok := <-results
		if !ok || res.Error == nil {
			t.Fatal("expected a single error result")
		}
		if _, ok := <-results; ok {
			t.Error("stream must close after the error")
		}
	})
}

type fakeSpec struct{}

func (fakeSpec) SpecificationName() string { return "graph" }

func TestStreamAll(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)
	seedProducts(t, repo, 3)
	if _, err := repo.Create(ctx, testProduct("g1", "garden")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	count := 0
	for res := range repo.StreamAll(ctx) {
		if res.Error != nil {
			t.Fatalf("unexpected stream error: %v", res.Error)
		}
		count++
	}
	if count != 4 {
		t.Errorf("expected 4 items across partitions, got %d", count)
	}
}

func TestStreamWithOffset(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)
	seedProducts(t, repo, 5)

	spec, err := query.BuildSelect(nil)
	if err != nil {
		t.Fatalf("BuildSelect failed: %v", err)
	}

	t.Run("SkipsAndCaps", func(t *testing.T) {
		var names []string
		for res := range repo.StreamWithOffset(ctx, spec, "electronics", 1, 2, storagemodels.WithPageSize(2)) {
			if res.Error != nil {
				t.Fatalf("unexpected stream error: %v", res.Error)
			}
			names = append(names, res.Item.Name)
		}
		if len(names) != 2 || names[0] != "gadget-2" || names[1] != "gadget-3" {
			t.Errorf("expected [gadget-2 gadget-3], got %v", names)
		}
	})

	t.Run("NegativeLimitMeansUnbounded", func(t *testing.T) {
		count := 0
		for res := range repo.StreamWithOffset(ctx, spec, "electronics", 3, -1) {
			if res.Error != nil {
				t.Fatalf("unexpected stream error: %v", res.Error)
			}
			count++
		}
		if count != 2 {
			t.Errorf("expected the last 2 items, got %d", count)
		}
	})
}
