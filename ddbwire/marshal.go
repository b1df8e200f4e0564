package ddbwire

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// MarshalItem converts a Go struct (or map) into an Item using the SDK's
// attributevalue rules. Note that attributevalue maps Go slices to L values;
// build sets with CreateSet and friends.
func MarshalItem(v any) (Item, error) {
	return attributevalue.MarshalMap(v)
}

// UnmarshalItem fills out from an Item using the SDK's attributevalue rules.
func UnmarshalItem(item Item, out any) error {
	return attributevalue.UnmarshalMap(item, out)
}
