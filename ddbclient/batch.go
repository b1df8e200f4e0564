package ddbclient

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/dynokit/ddberr"
)

// Service limits for a single BatchGetItem / BatchWriteItem call.
const (
	maxBatchGetSize   = 100
	maxBatchWriteSize = 25
)

// WriteOp is a single write destined for a batch: a put of a full item or a
// delete by primary key. Construct with [PutOp] or [DeleteOp]; the zero
// value is rejected when requests are built.
type WriteOp struct {
	put Item
	del Item
}

// PutOp returns a WriteOp that stores item.
func PutOp(item Item) WriteOp { return WriteOp{put: item} }

// DeleteOp returns a WriteOp that removes the item with the given key.
func DeleteOp(key Item) WriteOp { return WriteOp{del: key} }

func (op WriteOp) toWriteRequest() (types.WriteRequest, error) {
	switch {
	case op.put != nil:
		return types.WriteRequest{PutRequest: &types.PutRequest{Item: op.put}}, nil
	case op.del != nil:
		return types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: op.del}}, nil
	default:
		return types.WriteRequest{}, ddberr.NewValidationError("batch write", "zero-value WriteOp, use PutOp or DeleteOp")
	}
}

type batchGetOpts struct {
	projection     []string
	consistentRead bool
}

type BatchGetOption func(*batchGetOpts)

// WithProjection limits fetched items to the named attributes.
func WithProjection(names ...string) BatchGetOption {
	return func(o *batchGetOpts) {
		o.projection = append(o.projection, names...)
	}
}

// WithConsistentRead makes every request in the set strongly consistent.
func WithConsistentRead() BatchGetOption {
	return func(o *batchGetOpts) {
		o.consistentRead = true
	}
}

// BatchGetRequests splits keys into service-legal BatchGetItem requests of
// at most 100 keys each, all against the client's table. Chunk order follows
// input order. No network traffic happens here; send the set with
// [RequestSet.SendAll].
//
// Per-item size limits are the service's to enforce, not checked here.
func (c *ReadClient) BatchGetRequests(keys []Item, opts ...BatchGetOption) (*RequestSet, error) {
	var o batchGetOpts
	for _, opt := range opts {
		opt(&o)
	}
	expr, err := buildProjection(o.projection)
	if err != nil {
		return nil, err
	}
	for i, key := range keys {
		if len(key) == 0 {
			return nil, ddberr.NewValidationError("batch get", fmt.Sprintf("key at index %d is empty", i))
		}
	}

	rs := c.newRequestSet(requestCount(len(keys), maxBatchGetSize))
	for _, run := range chunks(keys, maxBatchGetSize) {
		chunk := make([]Item, len(run))
		copy(chunk, run)

		ka := types.KeysAndAttributes{Keys: chunk}
		if o.consistentRead {
			ka.ConsistentRead = aws.Bool(true)
		}
		if expr != nil {
			ka.ProjectionExpression = expr.Projection()
			ka.ExpressionAttributeNames = expr.Names()
		}
		rs.requests = append(rs.requests, request{get: &dynamodb.BatchGetItemInput{
			RequestItems:           map[string]types.KeysAndAttributes{c.table: ka},
			ReturnConsumedCapacity: types.ReturnConsumedCapacityIndexes,
		}})
	}
	return rs, nil
}

// BatchWriteRequests splits ops into service-legal BatchWriteItem requests
// of at most 25 writes each, preserving each op's put/delete shape and the
// input order. No network traffic happens here; send the set with
// [RequestSet.SendAll].
func (c *WriteClient) BatchWriteRequests(ops []WriteOp) (*RequestSet, error) {
	writes := make([]types.WriteRequest, len(ops))
	for i, op := range ops {
		wr, err := op.toWriteRequest()
		if err != nil {
			return nil, fmt.Errorf("op at index %d: %w", i, err)
		}
		writes[i] = wr
	}

	rs := c.newRequestSet(requestCount(len(ops), maxBatchWriteSize))
	for _, run := range chunks(writes, maxBatchWriteSize) {
		rs.requests = append(rs.requests, request{write: &dynamodb.BatchWriteItemInput{
			RequestItems:           map[string][]types.WriteRequest{c.table: run},
			ReturnConsumedCapacity: types.ReturnConsumedCapacityIndexes,
		}})
	}
	return rs, nil
}

func requestCount(n, chunkSize int) int {
	return (n + chunkSize - 1) / chunkSize
}

// chunks splits xs into runs of at most size, in order. Runs alias the
// backing array of xs.
func chunks[T any](xs []T, size int) [][]T {
	out := make([][]T, 0, requestCount(len(xs), size))
	for start := 0; start < len(xs); start += size {
		end := start + size
		if end > len(xs) {
			end = len(xs)
		}
		out = append(out, xs[start:end])
	}
	return out
}

// projectionOf builds a projection over the given attribute names.
// Callers guarantee names is non-empty.
func projectionOf(names []string) expression.ProjectionBuilder {
	proj := expression.NamesList(expression.Name(names[0]))
	for _, name := range names[1:] {
		proj = proj.AddNames(expression.Name(name))
	}
	return proj
}

// buildProjection compiles attribute names into a standalone projection
// expression. A nil result means no projection was requested.
func buildProjection(names []string) (*expression.Expression, error) {
	if len(names) == 0 {
		return nil, nil
	}
	expr, err := expression.NewBuilder().WithProjection(projectionOf(names)).Build()
	if err != nil {
		return nil, ddberr.NewValidationError("projection", err.Error())
	}
	return &expr, nil
}
