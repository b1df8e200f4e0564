package ddbmock

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"

	"github.com/acksell/dynokit/ddbwire"
	"github.com/acksell/dynokit/table"
)

// Scan walks the whole table in key order, honoring Limit and
// ExclusiveStartKey with real LastEvaluatedKey cursors.
func (s *Store) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if params == nil || params.TableName == nil {
		return nil, fmt.Errorf("table name is required")
	}
	if params.IndexName != nil {
		return nil, fmt.Errorf("index scans are not supported")
	}
	state, err := s.activeTable(*params.TableName)
	if err != nil {
		return nil, err
	}
	enc := s.encoder(state)

	items, lastKey, err := s.readPage(pageRequest{
		enc:      enc,
		prefix:   enc.tablePrefix(),
		limit:    int(aws.ToInt32(params.Limit)),
		startKey: params.ExclusiveStartKey,
	})
	if err != nil {
		return nil, err
	}

	out := &dynamodb.ScanOutput{
		Items:            items,
		Count:            int32(len(items)),
		ScannedCount:     int32(len(items)),
		LastEvaluatedKey: lastKey,
	}
	if wantCapacity(params.ReturnConsumedCapacity) {
		cc := tableCapacity(*params.TableName, float64(len(items)))
		out.ConsumedCapacity = &cc
	}
	return out, nil
}

// Query serves partition key equality conditions, the shape the expression
// package compiles "Key(...).Equal(...)" into. Sort key conditions, filters
// and index queries are out of scope for this double.
func (s *Store) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if params == nil || params.TableName == nil {
		return nil, fmt.Errorf("table name is required")
	}
	if params.KeyConditionExpression == nil {
		return nil, fmt.Errorf("key condition expression is required")
	}
	if params.IndexName != nil {
		return nil, fmt.Errorf("index queries are not supported")
	}
	state, err := s.activeTable(*params.TableName)
	if err != nil {
		return nil, err
	}
	enc := s.encoder(state)

	partitionValue, err := partitionEquality(
		*params.KeyConditionExpression,
		params.ExpressionAttributeNames,
		params.ExpressionAttributeValues,
		state.def.KeyDefinitions.PartitionKey.Name,
	)
	if err != nil {
		return nil, err
	}
	// Reuse the key extractor for kind checking and value conversion.
	pkOnly := table.PrimaryKeyDefinition{PartitionKey: state.def.KeyDefinitions.PartitionKey}
	pk, err := pkOnly.ExtractPrimaryKey(ddbwire.Item{pkOnly.PartitionKey.Name: partitionValue})
	if err != nil {
		return nil, err
	}
	prefix, err := enc.partitionPrefix(pk.Values.PartitionKey)
	if err != nil {
		return nil, err
	}

	items, lastKey, err := s.readPage(pageRequest{
		enc:      enc,
		prefix:   prefix,
		limit:    int(aws.ToInt32(params.Limit)),
		startKey: params.ExclusiveStartKey,
		reverse:  params.ScanIndexForward != nil && !*params.ScanIndexForward,
	})
	if err != nil {
		return nil, err
	}

	out := &dynamodb.QueryOutput{
		Items:            items,
		Count:            int32(len(items)),
		ScannedCount:     int32(len(items)),
		LastEvaluatedKey: lastKey,
	}
	if wantCapacity(params.ReturnConsumedCapacity) {
		cc := tableCapacity(*params.TableName, float64(len(items)))
		out.ConsumedCapacity = &cc
	}
	return out, nil
}

// pageRequest is one bounded walk over a key range.
type pageRequest struct {
	enc      keyEncoder
	prefix   []byte
	limit    int
	startKey ddbwire.Item
	reverse  bool
}

// readPage iterates the prefix range, resuming after startKey when set, and
// stops at limit items. lastKey is non-nil only when the limit cut the walk
// short, matching the service's pagination contract.
func (s *Store) readPage(req pageRequest) (items []ddbwire.Item, lastKey ddbwire.Item, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = req.prefix
		opts.Reverse = req.reverse

		it := txn.NewIterator(opts)
		defer it.Close()

		if err := seekPage(it, req); err != nil {
			return err
		}

		for ; it.Valid(); it.Next() {
			if !bytes.HasPrefix(it.Item().Key(), req.prefix) {
				break
			}
			var item ddbwire.Item
			if err := it.Item().Value(func(val []byte) error {
				var err error
				item, err = ddbwire.DeserializeItem(string(val))
				return err
			}); err != nil {
				return err
			}
			items = append(items, item)
			if req.limit > 0 && len(items) >= req.limit {
				lastKey = req.enc.keyDefs.KeyAttributes(item)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return items, lastKey, nil
}

// seekPage positions the iterator at the first item of the page. A reverse
// iterator seeks to the end of the prefix range; an exclusive start key is
// skipped in either direction.
func seekPage(it *badger.Iterator, req pageRequest) error {
	if req.startKey == nil {
		if req.reverse {
			it.Seek(incrementBytes(req.prefix))
		} else {
			it.Seek(req.prefix)
		}
		return nil
	}

	startPK, err := req.enc.keyDefs.ExtractPrimaryKey(req.startKey)
	if err != nil {
		return fmt.Errorf("extract start key: %w", err)
	}
	start, err := req.enc.itemKey(startPK)
	if err != nil {
		return fmt.Errorf("encode start key: %w", err)
	}
	it.Seek(start)
	if it.Valid() && bytes.Equal(it.Item().Key(), start) {
		it.Next()
	}
	return nil
}

// partitionEquality pulls the partition key value out of a "#0 = :0" style
// condition, resolving name and value placeholders.
func partitionEquality(expr string, names map[string]string, values map[string]types.AttributeValue, partitionKey string) (types.AttributeValue, error) {
	parts := strings.Split(expr, "=")
	if len(parts) != 2 {
		return nil, fmt.Errorf("only partition key equality is supported, got %q", expr)
	}
	name := strings.TrimSpace(parts[0])
	if resolved, ok := names[name]; ok {
		name = resolved
	}
	if name != partitionKey {
		return nil, fmt.Errorf("key condition must target partition key %q, got %q", partitionKey, name)
	}
	ref := strings.TrimSpace(parts[1])
	value, ok := values[ref]
	if !ok {
		return nil, fmt.Errorf("no expression value bound for %q", ref)
	}
	return value, nil
}
