/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package memory

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/tidemark/docstore/backend"
	"github.com/tidemark/docstore/storagemodels"
)

// Request charge simulation, roughly modeled on a document store's pricing:
// point reads are cheap, writes cost more, queries pay a base plus per item.
const (
	readCharge      = 1.0
	writeCharge     = 5.0
	queryBaseCharge = 2.3
	queryItemCharge = 1.0
)

// Store is an in-process implementation of backend.Store. It honors the
// full contract, including continuation tokens bound to the query that
// produced them, so it serves both tests and embedded use.
type Store struct {
	mu         sync.RWMutex
	partitions map[string][]storagemodels.RawDocument

	failures map[string]storagemodels.OperationStatus

	counters Counters
}

// Counters tracks backend calls, for asserting call counts in tests.
type Counters struct {
	Reads   int
	Writes  int
	Queries int
	Counts  int
	Batches int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		partitions: make(map[string][]storagemodels.RawDocument),
		failures:   make(map[string]storagemodels.OperationStatus),
	}
}

// FailWrites makes every write of the given document id fail with the given
// status until cleared. Used to exercise per-item bulk failure paths.
func (s *Store) FailWrites(id string, status storagemodels.OperationStatus) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id] = status
	return s
}

// ClearFailures removes all injected write failures.
func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]storagemodels.OperationStatus)
}

// Counters returns a snapshot of the call counters.
func (s *Store) Counters() Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters
}

func (s *Store) ReadItem(ctx context.Context, id string, partitionKey any) (storagemodels.RawDocument, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	s.counters.Reads++
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.partitions[keyString(partitionKey)]
	for _, doc := range docs {
		if docID(doc) == id {
			return cloneDoc(doc), readCharge, nil
		}
	}
	return nil, readCharge, backend.NewStatusError(storagemodels.StatusNotFound,
		fmt.Sprintf("document %q not found", id), nil)
}

func (s *Store) CreateItem(ctx context.Context, doc storagemodels.RawDocument, partitionKey any) (float64, error) {
	return s.write(ctx, backend.OperationCreate, doc, partitionKey)
}

func (s *Store) UpsertItem(ctx context.Context, doc storagemodels.RawDocument, partitionKey any) (float64, error) {
	return s.write(ctx, backend.OperationUpsert, doc, partitionKey)
}

func (s *Store) ReplaceItem(ctx context.Context, doc storagemodels.RawDocument, partitionKey any) (float64, error) {
	return s.write(ctx, backend.OperationReplace, doc, partitionKey)
}

func (s *Store) DeleteItem(ctx context.Context, id string, partitionKey any) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Writes++

	key := keyString(partitionKey)
	docs := s.partitions[key]
	for i, doc := range docs {
		if docID(doc) == id {
			s.partitions[key] = append(docs[:i:i], docs[i+1:]...)
			return writeCharge, nil
		}
	}
	return writeCharge, backend.NewStatusError(storagemodels.StatusNotFound,
		fmt.Sprintf("document %q not found", id), nil)
}

func (s *Store) write(ctx context.Context, kind backend.OperationKind, doc storagemodels.RawDocument, partitionKey any) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Writes++
	return s.writeLocked(kind, doc, partitionKey)
}

func (s *Store) writeLocked(kind backend.OperationKind, doc storagemodels.RawDocument, partitionKey any) (float64, error) {
	id := docID(doc)
	if id == "" {
		return 0, backend.NewStatusError(storagemodels.StatusBadRequest, "document has no id", nil)
	}
	if status, ok := s.failures[id]; ok {
		return 0, backend.NewStatusError(status, fmt.Sprintf("injected failure for %q", id), nil)
	}

	key := keyString(partitionKey)
	docs := s.partitions[key]
	existing := -1
	for i, d := range docs {
		if docID(d) == id {
			existing = i
			break
		}
	}

	switch kind {
	case backend.OperationCreate:
		if existing >= 0 {
			return 0, backend.NewStatusError(storagemodels.StatusConflict,
				fmt.Sprintf("document %q already exists", id), nil)
		}
		s.partitions[key] = append(docs, cloneDoc(doc))
	case backend.OperationReplace:
		if existing < 0 {
			return 0, backend.NewStatusError(storagemodels.StatusNotFound,
				fmt.Sprintf("document %q not found", id), nil)
		}
		docs[existing] = cloneDoc(doc)
	default: // upsert
		if existing >= 0 {
			docs[existing] = cloneDoc(doc)
		} else {
			s.partitions[key] = append(docs, cloneDoc(doc))
		}
	}
	return writeCharge, nil
}

func (s *Store) QueryItems(ctx context.Context, q backend.Query, opts backend.QueryOptions) (backend.QueryPage, error) {
	if err := ctx.Err(); err != nil {
		return backend.QueryPage{}, err
	}
	s.mu.Lock()
	s.counters.Queries++
	s.mu.Unlock()

	matched, err := s.evaluate(q, opts.PartitionKey)
	if err != nil {
		return backend.QueryPage{}, err
	}

	offset := 0
	if opts.ContinuationToken != "" {
		offset, err = decodeToken(opts.ContinuationToken, q, opts.PartitionKey)
		if err != nil {
			return backend.QueryPage{}, err
		}
	}
	if offset > len(matched) {
		offset = len(matched)
	}

	pageSize := int(opts.PageSize)
	if pageSize <= 0 {
		pageSize = 100
	}
	end := offset + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	page := backend.QueryPage{
		Items:         matched[offset:end],
		RequestCharge: queryBaseCharge + queryItemCharge*float64(end-offset),
	}
	if end < len(matched) {
		page.ContinuationToken = encodeToken(end, q, opts.PartitionKey)
	}
	return page, nil
}

func (s *Store) QueryCount(ctx context.Context, q backend.Query, opts backend.QueryOptions) (int64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	s.mu.Lock()
	s.counters.Counts++
	s.mu.Unlock()

	matched, err := s.evaluate(q, opts.PartitionKey)
	if err != nil {
		return 0, 0, err
	}
	return int64(len(matched)), queryBaseCharge, nil
}

// ExecuteBatch applies each operation independently: one item's failure
// never aborts its siblings. Cancellation aborts the whole batch with the
// context error.
func (s *Store) ExecuteBatch(ctx context.Context, partitionKey any, ops []backend.BatchOperation) ([]backend.BatchItemResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Batches++

	results := make([]backend.BatchItemResult, 0, len(ops))
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var charge float64
		var err error
		switch op.Kind {
		case backend.OperationDelete:
			charge, err = s.deleteLocked(op.ID, partitionKey)
		default:
			charge, err = s.writeLocked(op.Kind, op.Document, partitionKey)
		}

		res := backend.BatchItemResult{Index: i, RequestCharge: charge}
		if err != nil {
			res.Status = backend.StatusOf(err)
			res.Err = err
		} else {
			res.Status = storagemodels.StatusOK
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Store) deleteLocked(id string, partitionKey any) (float64, error) {
	key := keyString(partitionKey)
	docs := s.partitions[key]
	for i, doc := range docs {
		if docID(doc) == id {
			s.partitions[key] = append(docs[:i:i], docs[i+1:]...)
			return writeCharge, nil
		}
	}
	return writeCharge, backend.NewStatusError(storagemodels.StatusNotFound,
		fmt.Sprintf("document %q not found", id), nil)
}

// evaluate runs the query predicate over the scoped partitions and returns
// matching documents in deterministic order: partitions sorted by key, then
// insertion order within a partition.
func (s *Store) evaluate(q backend.Query, partitionKey any) ([]storagemodels.RawDocument, error) {
	pred, err := parseQuery(q)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	if partitionKey != nil {
		keys = []string{keyString(partitionKey)}
	} else {
		for k := range s.partitions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	var matched []storagemodels.RawDocument
	for _, k := range keys {
		for _, doc := range s.partitions[k] {
			ok, err := pred.matches(doc)
			if err != nil {
				return nil, err
			}
			if ok {
				matched = append(matched, cloneDoc(doc))
			}
		}
	}
	return matched, nil
}

// continuationToken ties a cursor offset to the query that produced it.
type continuationToken struct {
	Query  uint64 `json:"q"`
	Offset int    `json:"o"`
}

func queryFingerprint(q backend.Query, partitionKey any) uint64 {
	h := fnv.New64a()
	h.Write([]byte(q.Text))
	h.Write([]byte(keyString(partitionKey)))
	return h.Sum64()
}

func encodeToken(offset int, q backend.Query, partitionKey any) string {
	data, _ := json.Marshal(continuationToken{Query: queryFingerprint(q, partitionKey), Offset: offset})
	return base64.StdEncoding.EncodeToString(data)
}

func decodeToken(token string, q backend.Query, partitionKey any) (int, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return 0, backend.NewStatusError(storagemodels.StatusBadRequest, "malformed continuation token", err)
	}
	var ct continuationToken
	if err := json.Unmarshal(data, &ct); err != nil {
		return 0, backend.NewStatusError(storagemodels.StatusBadRequest, "malformed continuation token", err)
	}
	if ct.Query != queryFingerprint(q, partitionKey) {
		return 0, backend.NewStatusError(storagemodels.StatusBadRequest,
			"continuation token does not belong to this query", nil)
	}
	return ct.Offset, nil
}

func keyString(partitionKey any) string {
	return fmt.Sprintf("%v", partitionKey)
}

func docID(doc storagemodels.RawDocument) string {
	id, _ := doc["id"].(string)
	return id
}

func cloneDoc(doc storagemodels.RawDocument) storagemodels.RawDocument {
	copied := make(storagemodels.RawDocument, len(doc))
	for k, v := range doc {
		copied[k] = v
	}
	return copied
}
