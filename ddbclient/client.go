package ddbclient

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/acksell/dynokit/ddberr"
)

const defaultPollInterval = 3 * time.Second

// core carries what both client variants share: the service handle, the
// bound table and the ambient knobs. It is copied into each client and
// never mutated after construction.
type core struct {
	api          DynamoAPI
	table        string
	log          zerolog.Logger
	pollInterval time.Duration
}

// ReadClient reads from one table: batch gets, query and scan streams, plus
// table lifecycle. Writes do not exist on this type, so a read-only store
// can be handed out without runtime capability checks.
type ReadClient struct {
	core
}

// WriteClient writes to one table: batch puts/deletes plus table lifecycle.
type WriteClient struct {
	core
}

// Option adjusts a client at construction time.
type Option func(*core)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *core) { c.log = log }
}

// WithPollInterval sets the DescribeTable poll interval used by the
// lifecycle methods. Default 3s.
func WithPollInterval(d time.Duration) Option {
	return func(c *core) { c.pollInterval = d }
}

// NewReadClient dials the store described by cfg and binds to cfg.TableName.
func NewReadClient(ctx context.Context, cfg Config, opts ...Option) (*ReadClient, error) {
	api, err := dialConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewReadClientFromAPI(api, cfg, opts...)
}

// NewWriteClient dials the store described by cfg and binds to cfg.TableName.
func NewWriteClient(ctx context.Context, cfg Config, opts ...Option) (*WriteClient, error) {
	api, err := dialConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWriteClientFromAPI(api, cfg, opts...)
}

// NewReadClientFromAPI wraps an existing service handle. Only cfg.TableName
// is consulted; dialing fields are ignored.
func NewReadClientFromAPI(api DynamoAPI, cfg Config, opts ...Option) (*ReadClient, error) {
	c, err := newCore(api, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &ReadClient{core: c}, nil
}

// NewWriteClientFromAPI wraps an existing service handle. Only cfg.TableName
// is consulted; dialing fields are ignored.
func NewWriteClientFromAPI(api DynamoAPI, cfg Config, opts ...Option) (*WriteClient, error) {
	c, err := newCore(api, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &WriteClient{core: c}, nil
}

func dialConfig(ctx context.Context, cfg Config) (DynamoAPI, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg.dial(ctx)
}

func newCore(api DynamoAPI, cfg Config, opts ...Option) (core, error) {
	if api == nil {
		return core{}, ddberr.NewValidationError("client", "nil DynamoAPI")
	}
	if cfg.TableName == "" {
		return core{}, ddberr.NewValidationError("client", "table_name is required")
	}
	c := core{
		api:          api,
		table:        cfg.TableName,
		log:          zerolog.Nop(),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.pollInterval <= 0 {
		return core{}, ddberr.NewValidationError("client", "poll interval must be positive")
	}
	return c, nil
}

// TableName reports the table the client is bound to.
func (c *core) TableName() string { return c.table }
