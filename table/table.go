// Package table describes DynamoDB tables: their names, key schema and
// secondary indexes. Definitions drive key extraction and translate directly
// into CreateTable calls.
package table

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type TableDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	GSIs           []GSIDefinition
	// TimeToLiveAttribute names the item attribute holding the expiry epoch.
	// Empty means TTL is not used.
	TimeToLiveAttribute string
}

// GSIDefinition represents a Global Secondary Index definition.
type GSIDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
}

func (t TableDefinition) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if err := t.KeyDefinitions.validate(); err != nil {
		return fmt.Errorf("table %q: %w", t.Name, err)
	}
	for _, gsi := range t.GSIs {
		if gsi.Name == "" {
			return fmt.Errorf("table %q: GSI name is required", t.Name)
		}
		if err := gsi.KeyDefinitions.validate(); err != nil {
			return fmt.Errorf("table %q GSI %q: %w", t.Name, gsi.Name, err)
		}
	}
	return nil
}

// ExtractPrimaryKey extracts the primary key values from a document.
func (t TableDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	return t.KeyDefinitions.ExtractPrimaryKey(doc)
}

func (g GSIDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	return g.KeyDefinitions.ExtractPrimaryKey(doc)
}

func (k PrimaryKeyDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	part, ok := doc[k.PartitionKey.Name]
	if !ok {
		return PrimaryKey{}, fmt.Errorf("partition key %q not found", k.PartitionKey.Name)
	}
	if err := attributeMatchesDefinition(k.PartitionKey.Kind, part); err != nil {
		return PrimaryKey{}, fmt.Errorf("document key %q kind does not match definition: %w", k.PartitionKey.Name, err)
	}
	partVal, err := keyValueFromAV(part)
	if err != nil {
		return PrimaryKey{}, err
	}
	pk := PrimaryKey{
		Definition: k,
		Values:     PrimaryKeyValues{PartitionKey: partVal},
	}
	if k.SortKey.Name == "" {
		return pk, nil
	}
	sort, ok := doc[k.SortKey.Name]
	if !ok {
		return PrimaryKey{}, fmt.Errorf("sort key %q not found on document", k.SortKey.Name)
	}
	if err := attributeMatchesDefinition(k.SortKey.Kind, sort); err != nil {
		return PrimaryKey{}, fmt.Errorf("sort key %q kind does not match definition: %w", k.SortKey.Name, err)
	}
	sortVal, err := keyValueFromAV(sort)
	if err != nil {
		return PrimaryKey{}, err
	}
	pk.Values.SortKey = sortVal
	return pk, nil
}

// KeyAttributes returns the subset of doc holding this definition's key
// attributes, in the shape pagination cursors use.
func (k PrimaryKeyDefinition) KeyAttributes(doc map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue)
	if pk, ok := doc[k.PartitionKey.Name]; ok {
		out[k.PartitionKey.Name] = pk
	}
	if k.SortKey.Name != "" {
		if sk, ok := doc[k.SortKey.Name]; ok {
			out[k.SortKey.Name] = sk
		}
	}
	return out
}

// CreateTableInput translates the definition into a CreateTable call.
// Billing is on-demand; GSIs project all attributes.
func (t TableDefinition) CreateTableInput() (*dynamodb.CreateTableInput, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	attrs := map[string]types.ScalarAttributeType{}
	collect := func(d PrimaryKeyDefinition) {
		attrs[d.PartitionKey.Name] = types.ScalarAttributeType(d.PartitionKey.Kind)
		if d.SortKey.Name != "" {
			attrs[d.SortKey.Name] = types.ScalarAttributeType(d.SortKey.Kind)
		}
	}
	collect(t.KeyDefinitions)
	for _, gsi := range t.GSIs {
		collect(gsi.KeyDefinitions)
	}

	defs := make([]types.AttributeDefinition, 0, len(attrs))
	for name, kind := range attrs {
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: kind,
		})
	}

	input := &dynamodb.CreateTableInput{
		TableName:            aws.String(t.Name),
		AttributeDefinitions: defs,
		KeySchema:            keySchema(t.KeyDefinitions),
		BillingMode:          types.BillingModePayPerRequest,
	}
	for _, gsi := range t.GSIs {
		input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:  aws.String(gsi.Name),
			KeySchema:  keySchema(gsi.KeyDefinitions),
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}
	return input, nil
}

func keySchema(d PrimaryKeyDefinition) []types.KeySchemaElement {
	schema := []types.KeySchemaElement{{
		AttributeName: aws.String(d.PartitionKey.Name),
		KeyType:       types.KeyTypeHash,
	}}
	if d.SortKey.Name != "" {
		schema = append(schema, types.KeySchemaElement{
			AttributeName: aws.String(d.SortKey.Name),
			KeyType:       types.KeyTypeRange,
		})
	}
	return schema
}
