package table

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type PrimaryKeyDefinition struct {
	PartitionKey KeyDef
	// SortKey is optional; the zero value means the table has no sort key.
	SortKey KeyDef
}

type KeyDef struct {
	Name string
	Kind KeyKind
}

type KeyKind string

const (
	KeyKindS KeyKind = "S"
	KeyKindN KeyKind = "N"
	KeyKindB KeyKind = "B"
)

func (k KeyKind) valid() bool {
	switch k {
	case KeyKindS, KeyKindN, KeyKindB:
		return true
	}
	return false
}

func (d PrimaryKeyDefinition) validate() error {
	if d.PartitionKey.Name == "" {
		return fmt.Errorf("partition key name is required")
	}
	if !d.PartitionKey.Kind.valid() {
		return fmt.Errorf("partition key %q has invalid kind %q", d.PartitionKey.Name, d.PartitionKey.Kind)
	}
	if d.SortKey.Name != "" && !d.SortKey.Kind.valid() {
		return fmt.Errorf("sort key %q has invalid kind %q", d.SortKey.Name, d.SortKey.Kind)
	}
	return nil
}

type PrimaryKeyValues struct {
	PartitionKey any
	SortKey      any
}

// PrimaryKey pairs key values with the definition they belong to.
type PrimaryKey struct {
	Definition PrimaryKeyDefinition
	Values     PrimaryKeyValues
}

// NewPrimaryKey builds a key for a table with a sort key. Pass nil sort for
// partition-only tables.
func NewPrimaryKey(def PrimaryKeyDefinition, partition, sort any) PrimaryKey {
	return PrimaryKey{
		Definition: def,
		Values:     PrimaryKeyValues{PartitionKey: partition, SortKey: sort},
	}
}

// DDB renders the key as item attributes.
func (k PrimaryKey) DDB() (map[string]types.AttributeValue, error) {
	pk, err := attributevalue.Marshal(k.Values.PartitionKey)
	if err != nil {
		return nil, fmt.Errorf("marshal partition key %v: %w", k.Values.PartitionKey, err)
	}
	if err := attributeMatchesDefinition(k.Definition.PartitionKey.Kind, pk); err != nil {
		return nil, fmt.Errorf("partition key kind does not match value: %w", err)
	}
	if k.Definition.SortKey.Name == "" {
		return map[string]types.AttributeValue{
			k.Definition.PartitionKey.Name: pk,
		}, nil
	}
	if k.Values.SortKey == nil {
		return nil, fmt.Errorf("sort key %q is required but got nil", k.Definition.SortKey.Name)
	}
	sk, err := attributevalue.Marshal(k.Values.SortKey)
	if err != nil {
		return nil, fmt.Errorf("marshal sort key %v: %w", k.Values.SortKey, err)
	}
	if err := attributeMatchesDefinition(k.Definition.SortKey.Kind, sk); err != nil {
		return nil, fmt.Errorf("sort key %q kind does not match value: %w", k.Definition.SortKey.Name, err)
	}

	return map[string]types.AttributeValue{
		k.Definition.PartitionKey.Name: pk,
		k.Definition.SortKey.Name:      sk,
	}, nil
}

// String renders the key for log lines: partition attribute first, sort
// attribute when the table has one.
func (k PrimaryKey) String() string {
	if k.Definition.SortKey.Name == "" {
		return fmt.Sprintf("%s=%v", k.Definition.PartitionKey.Name, k.Values.PartitionKey)
	}
	return fmt.Sprintf("%s=%v %s=%v",
		k.Definition.PartitionKey.Name, k.Values.PartitionKey,
		k.Definition.SortKey.Name, k.Values.SortKey)
}

func attributeMatchesDefinition(want KeyKind, v types.AttributeValue) error {
	var got KeyKind
	switch v.(type) {
	case *types.AttributeValueMemberS:
		got = KeyKindS
	case *types.AttributeValueMemberN:
		got = KeyKindN
	case *types.AttributeValueMemberB:
		got = KeyKindB
	default:
		return fmt.Errorf("unexpected key attribute type %T", v)
	}
	if got != want {
		return fmt.Errorf("got KeyKind %q want %q", got, want)
	}
	return nil
}

func keyValueFromAV(av types.AttributeValue) (any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		return v.Value, nil
	case *types.AttributeValueMemberB:
		return v.Value, nil
	default:
		return nil, fmt.Errorf("unsupported attribute value %T for keys", v)
	}
}
