// Package ddbmock provides test doubles for the narrow DynamoDB surface
// ddbclient consumes: a badger-backed Store that behaves like a small
// single-node DynamoDB (including the create/delete settling dance), and a
// scripted Client for injecting exact responses and failures.
package ddbmock

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"

	"github.com/acksell/dynokit/table"
)

const defaultSettleDescribes = 2

// StoreOptions configures the badger-backed store.
type StoreOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// SettleDescribes is how many DescribeTable calls a freshly created
	// (or deleted) table reports CREATING (or DELETING) before settling.
	// Values below 1 mean the default of 2.
	SettleDescribes int
	// Logger for badger. If nil, logging is disabled.
	Logger badger.Logger
}

// Store is a DynamoDB-compatible in-memory store backed by badger. Items
// are persisted as the wire codec's type-tagged JSON under keys that sort
// like the service's. Tables created at runtime settle into ACTIVE only by
// being described, mirroring how the real control plane is observed.
//
// Secondary indexes are registered but not materialized: Query and Scan
// serve the base table only, and projections are not applied.
type Store struct {
	db      *badger.DB
	settles int

	mu     sync.Mutex
	tables map[string]*tableState
}

type tableState struct {
	def    table.TableDefinition
	status types.TableStatus
	// describes left before CREATING/DELETING settles
	settlesLeft int
}

// NewStore opens a store. Tables passed here start out ACTIVE; tables made
// through CreateTable go through the CREATING settle phase first.
func NewStore(opts StoreOptions, defs ...table.TableDefinition) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	settles := opts.SettleDescribes
	if settles < 1 {
		settles = defaultSettleDescribes
	}

	tables := make(map[string]*tableState, len(defs))
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("table %s: %w", def.Name, err)
		}
		tables[def.Name] = &tableState{def: def, status: types.TableStatusActive}
	}

	return &Store{db: db, settles: settles, tables: tables}, nil
}

// Close closes the underlying badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTable registers the table in CREATING state. Creating a table that
// already exists fails with ResourceInUseException.
func (s *Store) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if params == nil || params.TableName == nil {
		return nil, fmt.Errorf("table name is required")
	}
	def, err := definitionFromCreateInput(params)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	name := *params.TableName
	if _, ok := s.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("table already exists: " + name)}
	}
	s.tables[name] = &tableState{def: def, status: types.TableStatusCreating, settlesLeft: s.settles}

	return &dynamodb.CreateTableOutput{TableDescription: &types.TableDescription{
		TableName:   params.TableName,
		TableStatus: types.TableStatusCreating,
	}}, nil
}

// DescribeTable reports the table's status, advancing the settle countdown:
// after SettleDescribes calls a CREATING table turns ACTIVE and a DELETING
// table disappears.
func (s *Store) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if params == nil || params.TableName == nil {
		return nil, fmt.Errorf("table name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	name := *params.TableName
	state, ok := s.tables[name]
	if !ok {
		return nil, notFound(name)
	}

	switch state.status {
	case types.TableStatusCreating:
		if state.settlesLeft > 0 {
			state.settlesLeft--
			break
		}
		state.status = types.TableStatusActive
	case types.TableStatusDeleting:
		if state.settlesLeft > 0 {
			state.settlesLeft--
			break
		}
		delete(s.tables, name)
		return nil, notFound(name)
	}

	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   params.TableName,
		TableStatus: state.status,
	}}, nil
}

// DeleteTable drops the table's items and moves it to DELETING state.
// Deleting an unknown table fails with ResourceNotFoundException.
func (s *Store) DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	if params == nil || params.TableName == nil {
		return nil, fmt.Errorf("table name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	name := *params.TableName
	state, ok := s.tables[name]
	if !ok || state.status == types.TableStatusDeleting {
		return nil, notFound(name)
	}
	state.status = types.TableStatusDeleting
	state.settlesLeft = s.settles

	enc := keyEncoder{table: name, keyDefs: state.def.KeyDefinitions}
	if err := s.db.DropPrefix(enc.tablePrefix()); err != nil {
		return nil, fmt.Errorf("drop table data: %w", err)
	}

	return &dynamodb.DeleteTableOutput{TableDescription: &types.TableDescription{
		TableName:   params.TableName,
		TableStatus: types.TableStatusDeleting,
	}}, nil
}

// activeTable resolves a table for data-plane calls. Tables that are still
// settling or being deleted are not readable or writable.
func (s *Store) activeTable(name string) (*tableState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.tables[name]
	if !ok || state.status == types.TableStatusDeleting {
		return nil, notFound(name)
	}
	if state.status != types.TableStatusActive {
		return nil, &types.ResourceInUseException{Message: aws.String("table not active: " + name)}
	}
	return state, nil
}

func (s *Store) encoder(state *tableState) keyEncoder {
	return keyEncoder{table: state.def.Name, keyDefs: state.def.KeyDefinitions}
}

func notFound(name string) error {
	return &types.ResourceNotFoundException{Message: aws.String("table not found: " + name)}
}

func wantCapacity(rc types.ReturnConsumedCapacity) bool {
	return rc != "" && rc != types.ReturnConsumedCapacityNone
}

func tableCapacity(name string, units float64) types.ConsumedCapacity {
	return types.ConsumedCapacity{TableName: aws.String(name), CapacityUnits: aws.Float64(units)}
}

// definitionFromCreateInput rebuilds a TableDefinition from the wire shape,
// the inverse of TableDefinition.CreateTableInput.
func definitionFromCreateInput(params *dynamodb.CreateTableInput) (table.TableDefinition, error) {
	kinds := make(map[string]table.KeyKind, len(params.AttributeDefinitions))
	for _, ad := range params.AttributeDefinitions {
		if ad.AttributeName == nil {
			return table.TableDefinition{}, fmt.Errorf("attribute definition missing name")
		}
		kinds[*ad.AttributeName] = table.KeyKind(ad.AttributeType)
	}

	def := table.TableDefinition{Name: *params.TableName}
	keys, err := primaryKeyFromSchema(params.KeySchema, kinds)
	if err != nil {
		return table.TableDefinition{}, err
	}
	def.KeyDefinitions = keys

	for _, gsi := range params.GlobalSecondaryIndexes {
		gsiKeys, err := primaryKeyFromSchema(gsi.KeySchema, kinds)
		if err != nil {
			return table.TableDefinition{}, fmt.Errorf("gsi %s: %w", aws.ToString(gsi.IndexName), err)
		}
		def.GSIs = append(def.GSIs, table.GSIDefinition{
			Name:           aws.ToString(gsi.IndexName),
			KeyDefinitions: gsiKeys,
		})
	}

	if err := def.Validate(); err != nil {
		return table.TableDefinition{}, err
	}
	return def, nil
}

func primaryKeyFromSchema(schema []types.KeySchemaElement, kinds map[string]table.KeyKind) (table.PrimaryKeyDefinition, error) {
	var keys table.PrimaryKeyDefinition
	for _, elem := range schema {
		name := aws.ToString(elem.AttributeName)
		kind, ok := kinds[name]
		if !ok {
			return keys, fmt.Errorf("key attribute %s has no attribute definition", name)
		}
		switch elem.KeyType {
		case types.KeyTypeHash:
			keys.PartitionKey = table.KeyDef{Name: name, Kind: kind}
		case types.KeyTypeRange:
			keys.SortKey = table.KeyDef{Name: name, Kind: kind}
		default:
			return keys, fmt.Errorf("unknown key type %q for %s", elem.KeyType, name)
		}
	}
	return keys, nil
}
