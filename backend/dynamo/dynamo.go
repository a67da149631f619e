/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/tidemark/docstore/backend"
	"github.com/tidemark/docstore/storagemodels"
)

// Default attribute names for the document identity pair. They match the
// wire names the document envelope serializes to.
const (
	DefaultIDAttribute           = "id"
	DefaultPartitionKeyAttribute = "partitionKey"
)

// Store implements backend.Store on a DynamoDB table. Point operations use
// the item APIs with conditional expressions; queries run as PartiQL
// statements translated from the engine's compiled query dialect.
type Store struct {
	client           *sdk.Client
	tableName        string
	idAttr           string
	partitionKeyAttr string
}

// Option adjusts a Store.
type Option func(*Store)

// WithIDAttribute overrides the attribute holding the document id.
func WithIDAttribute(name string) Option {
	return func(s *Store) { s.idAttr = name }
}

// WithPartitionKeyAttribute overrides the attribute holding the partition key.
func WithPartitionKeyAttribute(name string) Option {
	return func(s *Store) { s.partitionKeyAttr = name }
}

// New wraps an existing DynamoDB client.
func New(client *sdk.Client, tableName string, opts ...Option) *Store {
	s := &Store{
		client:           client,
		tableName:        tableName,
		idAttr:           DefaultIDAttribute,
		partitionKeyAttr: DefaultPartitionKeyAttribute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromCredentials builds a client from static credentials and wraps it.
func NewFromCredentials(ctx context.Context, accessKey, secretKey, region, tableName string, opts ...Option) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return New(sdk.NewFromConfig(cfg), tableName, opts...), nil
}

func (s *Store) ReadItem(ctx context.Context, id string, partitionKey any) (storagemodels.RawDocument, float64, error) {
	key, err := s.buildKey(id, partitionKey)
	if err != nil {
		return nil, 0, err
	}

	out, err := s.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:              &s.tableName,
		Key:                    key,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if err != nil {
		return nil, 0, classify("GetItem", err)
	}
	charge := consumed(out.ConsumedCapacity)
	if out.Item == nil {
		return nil, charge, backend.NewStatusError(storagemodels.StatusNotFound,
			fmt.Sprintf("document %q not found", id), nil)
	}

	var doc storagemodels.RawDocument
	if err := attributevalue.UnmarshalMap(out.Item, &doc); err != nil {
		return nil, charge, backend.NewStatusError(storagemodels.StatusInternalError,
			"failed to unmarshal item", err)
	}
	return doc, charge, nil
}

func (s *Store) CreateItem(ctx context.Context, doc storagemodels.RawDocument, partitionKey any) (float64, error) {
	return s.put(ctx, doc, partitionKey, conditionAbsent)
}

func (s *Store) UpsertItem(ctx context.Context, doc storagemodels.RawDocument, partitionKey any) (float64, error) {
	return s.put(ctx, doc, partitionKey, conditionNone)
}

func (s *Store) ReplaceItem(ctx context.Context, doc storagemodels.RawDocument, partitionKey any) (float64, error) {
	return s.put(ctx, doc, partitionKey, conditionPresent)
}

func (s *Store) DeleteItem(ctx context.Context, id string, partitionKey any) (float64, error) {
	key, err := s.buildKey(id, partitionKey)
	if err != nil {
		return 0, err
	}

	condition := fmt.Sprintf("attribute_exists(%s)", s.idAttr)
	out, err := s.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:              &s.tableName,
		Key:                    key,
		ConditionExpression:    &condition,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return 0, backend.NewStatusError(storagemodels.StatusNotFound,
				fmt.Sprintf("document %q not found", id), err)
		}
		return 0, classify("DeleteItem", err)
	}
	return consumed(out.ConsumedCapacity), nil
}

type putCondition int

const (
	conditionNone putCondition = iota
	conditionAbsent
	conditionPresent
)

func (s *Store) put(ctx context.Context, doc storagemodels.RawDocument, partitionKey any, cond putCondition) (float64, error) {
	av, err := attributevalue.MarshalMap(map[string]any(doc))
	if err != nil {
		return 0, backend.NewStatusError(storagemodels.StatusBadRequest,
			"failed to marshal document", err)
	}
	pkAttr, err := attributevalue.Marshal(partitionKey)
	if err != nil {
		return 0, backend.NewStatusError(storagemodels.StatusBadRequest,
			"cannot marshal partition key", err)
	}
	av[s.partitionKeyAttr] = pkAttr

	input := &sdk.PutItemInput{
		TableName:              &s.tableName,
		Item:                   av,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	}
	switch cond {
	case conditionAbsent:
		input.ConditionExpression = aws.String(fmt.Sprintf("attribute_not_exists(%s)", s.idAttr))
	case conditionPresent:
		input.ConditionExpression = aws.String(fmt.Sprintf("attribute_exists(%s)", s.idAttr))
	}

	out, err := s.client.PutItem(ctx, input)
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			if cond == conditionAbsent {
				return 0, backend.NewStatusError(storagemodels.StatusConflict,
					"document already exists", err)
			}
			return 0, backend.NewStatusError(storagemodels.StatusNotFound,
				"document not found", err)
		}
		return 0, classify("PutItem", err)
	}
	return consumed(out.ConsumedCapacity), nil
}

func (s *Store) QueryItems(ctx context.Context, q backend.Query, opts backend.QueryOptions) (backend.QueryPage, error) {
	stmt, params, err := translateQuery(q, s.tableName, s.partitionKeyAttr, opts.PartitionKey)
	if err != nil {
		return backend.QueryPage{}, err
	}

	input := &sdk.ExecuteStatementInput{
		Statement:              &stmt,
		Parameters:             params,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	}
	if opts.PageSize > 0 {
		input.Limit = aws.Int32(opts.PageSize)
	}
	if opts.ContinuationToken != "" {
		input.NextToken = &opts.ContinuationToken
	}

	out, err := s.client.ExecuteStatement(ctx, input)
	if err != nil {
		return backend.QueryPage{}, classify("ExecuteStatement", err)
	}

	page := backend.QueryPage{
		Items:         make([]storagemodels.RawDocument, 0, len(out.Items)),
		RequestCharge: consumed(out.ConsumedCapacity),
	}
	for _, item := range out.Items {
		var doc storagemodels.RawDocument
		if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
			return backend.QueryPage{}, backend.NewStatusError(storagemodels.StatusInternalError,
				"failed to unmarshal query item", err)
		}
		page.Items = append(page.Items, doc)
	}
	if out.NextToken != nil {
		page.ContinuationToken = *out.NextToken
	}
	return page, nil
}

// QueryCount pages through the statement and counts items. PartiQL on
// DynamoDB has no COUNT aggregate, so the count is computed client side and
// the charge accumulates across pages.
func (s *Store) QueryCount(ctx context.Context, q backend.Query, opts backend.QueryOptions) (int64, float64, error) {
	var total int64
	var charge float64

	pageOpts := backend.QueryOptions{PartitionKey: opts.PartitionKey, PageSize: opts.PageSize}
	for {
		page, err := s.QueryItems(ctx, q, pageOpts)
		if err != nil {
			return 0, charge, err
		}
		total += int64(len(page.Items))
		charge += page.RequestCharge
		if page.ContinuationToken == "" {
			return total, charge, nil
		}
		pageOpts.ContinuationToken = page.ContinuationToken
	}
}

// ExecuteBatch issues the operations as individual conditional writes so
// each item reports its own status. DynamoDB's native batch APIs drop
// condition expressions, which would turn create conflicts into silent
// overwrites.
func (s *Store) ExecuteBatch(ctx context.Context, partitionKey any, ops []backend.BatchOperation) ([]backend.BatchItemResult, error) {
	results := make([]backend.BatchItemResult, 0, len(ops))
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var charge float64
		var err error
		switch op.Kind {
		case backend.OperationCreate:
			charge, err = s.CreateItem(ctx, op.Document, partitionKey)
		case backend.OperationUpsert:
			charge, err = s.UpsertItem(ctx, op.Document, partitionKey)
		case backend.OperationReplace:
			charge, err = s.ReplaceItem(ctx, op.Document, partitionKey)
		case backend.OperationDelete:
			charge, err = s.DeleteItem(ctx, op.ID, partitionKey)
		default:
			err = backend.NewStatusError(storagemodels.StatusBadRequest,
				fmt.Sprintf("unknown operation kind %d", op.Kind), nil)
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

func (s *Store) buildKey(id string, partitionKey any) (map[string]types.AttributeValue, error) {
	pkAttr, err := attributevalue.Marshal(partitionKey)
	if err != nil {
		return nil, backend.NewStatusError(storagemodels.StatusBadRequest,
			"cannot marshal partition key", err)
	}
	return map[string]types.AttributeValue{
		s.partitionKeyAttr: pkAttr,
		s.idAttr:           &types.AttributeValueMemberS{Value: id},
	}, nil
}

func consumed(cc *types.ConsumedCapacity) float64 {
	if cc == nil || cc.CapacityUnits == nil {
		return 0
	}
	return *cc.CapacityUnits
}

// classify maps a DynamoDB SDK error onto the engine's status taxonomy.
func classify(operation string, err error) error {
	status := storagemodels.StatusInternalError

	var throughput *types.ProvisionedThroughputExceededException
	var requestLimit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	var tableMissing *types.ResourceNotFoundException
	var apiErr smithy.APIError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = storagemodels.StatusRequestTimeout
	case errors.As(err, &throughput), errors.As(err, &requestLimit):
		status = storagemodels.StatusTooManyRequests
	case errors.As(err, &internal):
		status = storagemodels.StatusInternalError
	case errors.As(err, &tableMissing):
		status = storagemodels.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		switch apiErr.ErrorCode() {
		case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
			status = storagemodels.StatusTooManyRequests
		case "ValidationException":
			status = storagemodels.StatusBadRequest
		case "ServiceUnavailable":
			status = storagemodels.StatusServiceUnavailable
		}
	default:
		if retryable, ok := err.(interface{ IsRetryable() bool }); ok && retryable.IsRetryable() {
			status = storagemodels.StatusServiceUnavailable
		}
	}

	return backend.NewStatusError(status, fmt.Sprintf("%s failed", operation), err)
}
