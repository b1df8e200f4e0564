package ddbmock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"

	"github.com/acksell/dynokit/ddbwire"
)

// Service limits enforced on callers, same as the real data plane.
const (
	maxBatchGetKeys = 100
	maxBatchWrites  = 25
)

// BatchGetItem looks up every requested key. Missing items are simply
// absent from the response, never an error. Consumed capacity is one unit
// per requested key.
func (s *Store) BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	if params == nil || len(params.RequestItems) == 0 {
		return nil, fmt.Errorf("request items are required")
	}
	total := 0
	for _, ka := range params.RequestItems {
		total += len(ka.Keys)
	}
	if total == 0 {
		return nil, fmt.Errorf("at least one key is required")
	}
	if total > maxBatchGetKeys {
		return nil, fmt.Errorf("too many items requested: %d > %d", total, maxBatchGetKeys)
	}

	out := &dynamodb.BatchGetItemOutput{
		Responses:       make(map[string][]ddbwire.Item),
		UnprocessedKeys: map[string]types.KeysAndAttributes{},
	}
	for name, ka := range params.RequestItems {
		state, err := s.activeTable(name)
		if err != nil {
			return nil, err
		}
		enc := s.encoder(state)

		err = s.db.View(func(txn *badger.Txn) error {
			for _, key := range ka.Keys {
				pk, err := state.def.KeyDefinitions.ExtractPrimaryKey(key)
				if err != nil {
					return fmt.Errorf("key for table %s: %w", name, err)
				}
				badgerKey, err := enc.itemKey(pk)
				if err != nil {
					return err
				}
				entry, err := txn.Get(badgerKey)
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if err := entry.Value(func(val []byte) error {
					item, err := ddbwire.DeserializeItem(string(val))
					if err != nil {
						return err
					}
					out.Responses[name] = append(out.Responses[name], item)
					return nil
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if wantCapacity(params.ReturnConsumedCapacity) {
			out.ConsumedCapacity = append(out.ConsumedCapacity, tableCapacity(name, float64(len(ka.Keys))))
		}
	}
	return out, nil
}

// BatchWriteItem applies every put and delete. The store never leaves
// writes unprocessed; use Client to script throttling responses. Consumed
// capacity is one unit per write.
func (s *Store) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if params == nil || len(params.RequestItems) == 0 {
		return nil, fmt.Errorf("request items are required")
	}
	total := 0
	for _, writes := range params.RequestItems {
		total += len(writes)
	}
	if total == 0 {
		return nil, fmt.Errorf("at least one write is required")
	}
	if total > maxBatchWrites {
		return nil, fmt.Errorf("too many items requested: %d > %d", total, maxBatchWrites)
	}

	out := &dynamodb.BatchWriteItemOutput{
		UnprocessedItems: map[string][]types.WriteRequest{},
	}
	for name, writes := range params.RequestItems {
		state, err := s.activeTable(name)
		if err != nil {
			return nil, err
		}
		enc := s.encoder(state)

		err = s.db.Update(func(txn *badger.Txn) error {
			for _, wr := range writes {
				if err := s.applyWrite(txn, state, enc, wr); err != nil {
					return fmt.Errorf("write to table %s: %w", name, err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if wantCapacity(params.ReturnConsumedCapacity) {
			out.ConsumedCapacity = append(out.ConsumedCapacity, tableCapacity(name, float64(len(writes))))
		}
	}
	return out, nil
}

func (s *Store) applyWrite(txn *badger.Txn, state *tableState, enc keyEncoder, wr types.WriteRequest) error {
	switch {
	case wr.PutRequest != nil && wr.DeleteRequest != nil:
		return fmt.Errorf("write request sets both put and delete")

	case wr.PutRequest != nil:
		pk, err := state.def.ExtractPrimaryKey(wr.PutRequest.Item)
		if err != nil {
			return err
		}
		badgerKey, err := enc.itemKey(pk)
		if err != nil {
			return err
		}
		text, err := ddbwire.SerializeItem(wr.PutRequest.Item)
		if err != nil {
			return err
		}
		return txn.Set(badgerKey, []byte(text))

	case wr.DeleteRequest != nil:
		pk, err := state.def.KeyDefinitions.ExtractPrimaryKey(wr.DeleteRequest.Key)
		if err != nil {
			return err
		}
		badgerKey, err := enc.itemKey(pk)
		if err != nil {
			return err
		}
		return txn.Delete(badgerKey)

	default:
		return fmt.Errorf("write request sets neither put nor delete")
	}
}
