package ddbclient

import (
	"context"
	"maps"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/acksell/dynokit/ddberr"
)

type streamOpts struct {
	pageSize             int
	index                string
	descending           bool
	projection           []string
	eventuallyConsistent bool
}

type StreamOption func(*streamOpts)

// WithPageSize caps the number of items fetched per page request.
func WithPageSize(n int) StreamOption {
	return func(o *streamOpts) { o.pageSize = n }
}

// WithIndex reads from the named secondary index instead of the table.
func WithIndex(name string) StreamOption {
	return func(o *streamOpts) { o.index = name }
}

// WithDescending reverses the sort key order. Query only.
func WithDescending() StreamOption {
	return func(o *streamOpts) { o.descending = true }
}

// WithStreamProjection limits streamed items to the named attributes.
func WithStreamProjection(names ...string) StreamOption {
	return func(o *streamOpts) { o.projection = append(o.projection, names...) }
}

// WithEventuallyConsistentReads trades read-after-write consistency for
// cheaper reads. Reads are strongly consistent by default; secondary
// indexes are always eventually consistent regardless of this option.
func WithEventuallyConsistentReads() StreamOption {
	return func(o *streamOpts) { o.eventuallyConsistent = true }
}

// Stream pulls items out of a paginated Query or Scan one at a time,
// fetching the next page lazily inside Next. Shaped like sql.Rows:
//
//	stream, err := client.ScanStream(ddbclient.WithPageSize(100))
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for stream.Next(ctx) {
//	    item := stream.Item()
//	    ...
//	}
//	if err := stream.Err(); err != nil {
//	    return err
//	}
//
// At most one page request is ever in flight. Not safe for concurrent use
// by multiple goroutines.
type Stream struct {
	api   DynamoAPI
	log   zerolog.Logger
	table string

	// exactly one of query/scan is set
	query *dynamodb.QueryInput
	scan  *dynamodb.ScanInput

	buf      []Item
	pos      int
	cur      Item
	cursor   Item
	done     bool
	closed   bool
	err      error
	pages    int
	capacity map[string]float64
}

// QueryStream starts a pull-based stream over a Query. The key condition
// and any projection are compiled here, so malformed input fails before any
// network traffic.
func (c *ReadClient) QueryStream(keyCond expression.KeyConditionBuilder, opts ...StreamOption) (*Stream, error) {
	o, err := collectStreamOpts(opts)
	if err != nil {
		return nil, err
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if len(o.projection) > 0 {
		builder = builder.WithProjection(projectionOf(o.projection))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, ddberr.NewValidationError("query stream", err.Error())
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(c.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ProjectionExpression:      expr.Projection(),
		ReturnConsumedCapacity:    types.ReturnConsumedCapacityIndexes,
		Limit:                     o.limit(),
	}
	if o.index != "" {
		input.IndexName = aws.String(o.index)
	} else {
		input.ConsistentRead = aws.Bool(!o.eventuallyConsistent)
	}
	if o.descending {
		input.ScanIndexForward = aws.Bool(false)
	}
	return c.newStream(input, nil), nil
}

// ScanStream starts a pull-based stream over a full table (or index) scan.
func (c *ReadClient) ScanStream(opts ...StreamOption) (*Stream, error) {
	o, err := collectStreamOpts(opts)
	if err != nil {
		return nil, err
	}
	if o.descending {
		return nil, ddberr.NewValidationError("scan stream", "descending order applies to queries only")
	}

	input := &dynamodb.ScanInput{
		TableName:              aws.String(c.table),
		ReturnConsumedCapacity: types.ReturnConsumedCapacityIndexes,
		Limit:                  o.limit(),
	}
	if len(o.projection) > 0 {
		expr, err := buildProjection(o.projection)
		if err != nil {
			return nil, err
		}
		input.ProjectionExpression = expr.Projection()
		input.ExpressionAttributeNames = expr.Names()
	}
	if o.index != "" {
		input.IndexName = aws.String(o.index)
	} else {
		// Secondary indexes reject the consistency flag, so it is only set
		// when scanning the table itself.
		input.ConsistentRead = aws.Bool(!o.eventuallyConsistent)
	}
	return c.newStream(nil, input), nil
}

func collectStreamOpts(opts []StreamOption) (streamOpts, error) {
	var o streamOpts
	for _, opt := range opts {
		opt(&o)
	}
	if o.pageSize < 0 {
		return o, ddberr.NewValidationError("stream", "page size must not be negative")
	}
	return o, nil
}

func (o streamOpts) limit() *int32 {
	if o.pageSize > 0 {
		return aws.Int32(int32(o.pageSize))
	}
	return nil
}

func (c *ReadClient) newStream(query *dynamodb.QueryInput, scan *dynamodb.ScanInput) *Stream {
	return &Stream{
		api:      c.api,
		log:      c.log,
		table:    c.table,
		query:    query,
		scan:     scan,
		capacity: make(map[string]float64),
	}
}

// Next advances to the next item, fetching the next page from the service
// when the buffered one is spent. It returns false once the stream is
// exhausted, closed, or broken; Err tells the last two apart from normal
// exhaustion. Pages that come back empty but carry a cursor are skipped
// within the same call.
func (s *Stream) Next(ctx context.Context) bool {
	for {
		if s.closed || s.err != nil {
			return false
		}
		if s.pos < len(s.buf) {
			s.cur = s.buf[s.pos]
			s.pos++
			return true
		}
		if s.done {
			return false
		}
		if err := s.fetchPage(ctx); err != nil {
			s.err = err
			return false
		}
	}
}

// Item returns the item the last successful Next advanced to.
func (s *Stream) Item() Item { return s.cur }

// Err reports the page-request failure that ended the stream, if any.
// A nil result after Next returned false means normal exhaustion or Close.
func (s *Stream) Err() error { return s.err }

// Close stops the stream: no further page requests are issued and Next
// returns false. Items already fetched are dropped. Close is idempotent
// and safe after exhaustion.
func (s *Stream) Close() error {
	s.closed = true
	return nil
}

// ConsumedCapacity reports capacity units accumulated so far, summed per
// table and per "table/index". Every page that completed contributes, even
// when its items were never read. Callable mid-stream.
func (s *Stream) ConsumedCapacity() map[string]float64 {
	return maps.Clone(s.capacity)
}

// All drains the stream and closes it.
func (s *Stream) All(ctx context.Context) ([]Item, error) {
	defer s.Close()
	var items []Item
	for s.Next(ctx) {
		items = append(items, s.Item())
	}
	return items, s.Err()
}

func (s *Stream) fetchPage(ctx context.Context) error {
	var (
		items    []Item
		cursor   Item
		consumed *types.ConsumedCapacity
	)
	switch {
	case s.query != nil:
		s.query.ExclusiveStartKey = s.cursor
		out, err := s.api.Query(ctx, s.query)
		if err != nil {
			return ddberr.NewRequestError("query", s.table, err)
		}
		items, cursor, consumed = out.Items, out.LastEvaluatedKey, out.ConsumedCapacity
	default:
		s.scan.ExclusiveStartKey = s.cursor
		out, err := s.api.Scan(ctx, s.scan)
		if err != nil {
			return ddberr.NewRequestError("scan", s.table, err)
		}
		items, cursor, consumed = out.Items, out.LastEvaluatedKey, out.ConsumedCapacity
	}

	s.buf, s.pos = items, 0
	s.cursor = cursor
	s.done = len(cursor) == 0
	s.pages++
	if consumed != nil {
		addCapacity(s.capacity, *consumed)
	}
	s.log.Debug().Str("table", s.table).Int("page", s.pages).Int("items", len(items)).Bool("done", s.done).Msg("fetched page")
	return nil
}
