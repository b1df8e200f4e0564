package ddbclient

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/acksell/dynokit/ddberr"
)

// request is one fully formed network call, bounded to the service limits.
// Exactly one field is set.
type request struct {
	get   *dynamodb.BatchGetItemInput
	write *dynamodb.BatchWriteItemInput
}

// RequestSet is an ordered sequence of prebuilt batch requests produced by
// BatchGetRequests or BatchWriteRequests. Build once, send once.
type RequestSet struct {
	api      DynamoAPI
	table    string
	log      zerolog.Logger
	requests []request
}

func (c *core) newRequestSet(capacity int) *RequestSet {
	return &RequestSet{
		api:      c.api,
		table:    c.table,
		log:      c.log,
		requests: make([]request, 0, capacity),
	}
}

// Len reports the number of requests in the set.
func (rs *RequestSet) Len() int { return len(rs.requests) }

// RequestResult is the outcome of one request in the set.
type RequestResult struct {
	// Items fetched by a get request, in service response order.
	Items []Item
	// UnprocessedKeys the service declined this round. Data, not an error;
	// re-split them into a fresh RequestSet to retry.
	UnprocessedKeys []Item
	// UnprocessedWrites the service declined this round.
	UnprocessedWrites []types.WriteRequest
	// Capacity entries as reported by the service.
	Capacity []types.ConsumedCapacity
}

// AggregateResult collects every request's outcome once SendAll succeeds.
type AggregateResult struct {
	// Results is index-aligned with the RequestSet: Results[i] belongs to
	// request i no matter in which order requests completed.
	Results []RequestResult
	// Items from all get requests, concatenated in request order.
	Items []Item
	// UnprocessedKeys from all get requests, concatenated in request order.
	UnprocessedKeys []Item
	// UnprocessedWrites from all write requests, concatenated in request order.
	UnprocessedWrites []types.WriteRequest
	// Capacity sums consumed units per table name, and per "table/index"
	// for capacity consumed on secondary indexes.
	Capacity map[string]float64
}

type sendOpts struct {
	concurrency int
}

type SendOption func(*sendOpts)

// WithConcurrency allows up to k requests in flight at once. Default 1.
func WithConcurrency(k int) SendOption {
	return func(o *sendOpts) {
		o.concurrency = k
	}
}

// SendAll dispatches every request in the set and aggregates the results.
//
// At most k requests (WithConcurrency, default 1) are in flight at any
// instant. The first failing request stops new launches; requests already
// in flight run to completion, their successes are discarded, and the first
// error is returned as a *ddberr.RequestError. Partially processed batches
// are NOT failures: unprocessed keys and writes come back as data on the
// result.
func (rs *RequestSet) SendAll(ctx context.Context, opts ...SendOption) (*AggregateResult, error) {
	o := sendOpts{concurrency: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency < 1 {
		return nil, ddberr.NewValidationError("send all", "concurrency must be at least 1")
	}

	n := rs.Len()
	results := make([]RequestResult, n)
	if n == 0 {
		return newAggregateResult(results), nil
	}

	workers := o.concurrency
	if workers > n {
		workers = n
	}

	var (
		next     atomic.Int64
		halted   atomic.Bool
		errOnce  sync.Once
		firstErr error
		wg       sync.WaitGroup
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for !halted.Load() {
				i := int(next.Add(1)) - 1
				if i >= n {
					return
				}
				res, err := rs.send(ctx, i)
				if err != nil {
					halted.Store(true)
					errOnce.Do(func() { firstErr = err })
					return
				}
				results[i] = res
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return newAggregateResult(results), nil
}

func (rs *RequestSet) send(ctx context.Context, i int) (RequestResult, error) {
	req := rs.requests[i]
	switch {
	case req.get != nil:
		out, err := rs.api.BatchGetItem(ctx, req.get)
		if err != nil {
			return RequestResult{}, ddberr.NewRequestError("batch get", rs.table, err)
		}
		res := RequestResult{
			Items:    out.Responses[rs.table],
			Capacity: out.ConsumedCapacity,
		}
		if unprocessed, ok := out.UnprocessedKeys[rs.table]; ok {
			res.UnprocessedKeys = unprocessed.Keys
		}
		rs.log.Debug().Str("table", rs.table).Int("request", i).Int("items", len(res.Items)).Msg("batch get sent")
		return res, nil
	case req.write != nil:
		out, err := rs.api.BatchWriteItem(ctx, req.write)
		if err != nil {
			return RequestResult{}, ddberr.NewRequestError("batch write", rs.table, err)
		}
		res := RequestResult{
			UnprocessedWrites: out.UnprocessedItems[rs.table],
			Capacity:          out.ConsumedCapacity,
		}
		rs.log.Debug().Str("table", rs.table).Int("request", i).Int("unprocessed", len(res.UnprocessedWrites)).Msg("batch write sent")
		return res, nil
	default:
		return RequestResult{}, ddberr.NewValidationError("send all", "empty request")
	}
}

func newAggregateResult(results []RequestResult) *AggregateResult {
	agg := &AggregateResult{
		Results:  results,
		Capacity: make(map[string]float64),
	}
	for _, r := range results {
		agg.Items = append(agg.Items, r.Items...)
		agg.UnprocessedKeys = append(agg.UnprocessedKeys, r.UnprocessedKeys...)
		agg.UnprocessedWrites = append(agg.UnprocessedWrites, r.UnprocessedWrites...)
		addCapacity(agg.Capacity, r.Capacity...)
	}
	return agg
}

// addCapacity folds consumed-capacity entries into sums, keyed by table
// name and by "table/index" for secondary index consumption.
func addCapacity(sums map[string]float64, caps ...types.ConsumedCapacity) {
	for _, cc := range caps {
		if cc.TableName == nil {
			continue
		}
		name := *cc.TableName
		if cc.CapacityUnits != nil {
			sums[name] += *cc.CapacityUnits
		}
		for index, units := range cc.GlobalSecondaryIndexes {
			if units.CapacityUnits != nil {
				sums[name+"/"+index] += *units.CapacityUnits
			}
		}
		for index, units := range cc.LocalSecondaryIndexes {
			if units.CapacityUnits != nil {
				sums[name+"/"+index] += *units.CapacityUnits
			}
		}
	}
}
