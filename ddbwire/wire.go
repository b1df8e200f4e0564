// Package ddbwire converts items between their in-memory representation and
// DynamoDB's type-tagged JSON wire text.
//
// On the wire an item is a JSON object of attribute name to attribute value,
// and each attribute value is a one-key object whose key is the type tag
// (S, N, B, BOOL, NULL, L, M, SS, NS, BS). Numbers travel as decimal strings
// and binaries as base64, so round trips are lossless.
//
// Sets are never inferred: a list of unique homogeneous scalars stays a list
// through any number of round trips. Sets only exist where the caller built
// one with CreateSet or the typed set constructors.
package ddbwire

import (
	"encoding/json"
	"fmt"

	"github.com/acksell/dynokit/ddberr"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a raw DynamoDB item, keyed by attribute name.
// Callers can use MarshalItem/UnmarshalItem to bridge to their own structs.
type Item = map[string]types.AttributeValue

// SerializeItem encodes an item to wire text.
// Returns a ddberr.EncodingError for values the wire cannot represent.
func SerializeItem(item Item) (string, error) {
	wire := make(map[string]any, len(item))
	for name, av := range item {
		v, err := toWire(av, name)
		if err != nil {
			return "", err
		}
		wire[name] = v
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return "", ddberr.NewEncodingError("", err.Error())
	}
	return string(data), nil
}

// DeserializeItem decodes wire text produced by SerializeItem.
// Returns a ddberr.DecodingError for malformed input.
func DeserializeItem(s string) (Item, error) {
	var wire map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &wire); err != nil {
		return nil, ddberr.NewDecodingError("", err.Error())
	}
	if wire == nil {
		return nil, ddberr.NewDecodingError("", "item must be a JSON object")
	}
	item := make(Item, len(wire))
	for name, raw := range wire {
		av, err := fromWire(raw, name)
		if err != nil {
			return nil, err
		}
		item[name] = av
	}
	return item, nil
}

func toWire(av types.AttributeValue, path string) (any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return map[string]any{"S": v.Value}, nil
	case *types.AttributeValueMemberN:
		if v.Value == "" {
			return nil, ddberr.NewEncodingError(path, "empty number")
		}
		return map[string]any{"N": v.Value}, nil
	case *types.AttributeValueMemberB:
		// json.Marshal base64-encodes []byte.
		return map[string]any{"B": v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return map[string]any{"BOOL": v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return map[string]any{"NULL": v.Value}, nil
	case *types.AttributeValueMemberSS:
		if len(v.Value) == 0 {
			return nil, ddberr.NewEncodingError(path, "empty string set")
		}
		return map[string]any{"SS": v.Value}, nil
	case *types.AttributeValueMemberNS:
		if len(v.Value) == 0 {
			return nil, ddberr.NewEncodingError(path, "empty number set")
		}
		return map[string]any{"NS": v.Value}, nil
	case *types.AttributeValueMemberBS:
		if len(v.Value) == 0 {
			return nil, ddberr.NewEncodingError(path, "empty binary set")
		}
		return map[string]any{"BS": v.Value}, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]any, len(v.Value))
		for k, val := range v.Value {
			w, err := toWire(val, path+"."+k)
			if err != nil {
				return nil, err
			}
			m[k] = w
		}
		return map[string]any{"M": m}, nil
	case *types.AttributeValueMemberL:
		l := make([]any, len(v.Value))
		for i, val := range v.Value {
			w, err := toWire(val, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			l[i] = w
		}
		return map[string]any{"L": l}, nil
	case nil:
		return nil, ddberr.NewEncodingError(path, "nil attribute value")
	default:
		return nil, ddberr.NewEncodingError(path, fmt.Sprintf("unsupported attribute value type %T", av))
	}
}

func fromWire(raw json.RawMessage, path string) (types.AttributeValue, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return nil, ddberr.NewDecodingError(path, "attribute value must be a one-key object")
	}
	if len(tagged) != 1 {
		return nil, ddberr.NewDecodingError(path, fmt.Sprintf("expected exactly one type tag, got %d", len(tagged)))
	}
	var tag string
	var payload json.RawMessage
	for k, v := range tagged {
		tag, payload = k, v
	}
	if string(payload) == "null" {
		return nil, ddberr.NewDecodingError(path, fmt.Sprintf("null payload for tag %q", tag))
	}

	switch tag {
	case "S":
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, ddberr.NewDecodingError(path, "S payload must be a string")
		}
		return &types.AttributeValueMemberS{Value: s}, nil
	case "N":
		var n string
		if err := json.Unmarshal(payload, &n); err != nil || n == "" {
			return nil, ddberr.NewDecodingError(path, "N payload must be a non-empty decimal string")
		}
		return &types.AttributeValueMemberN{Value: n}, nil
	case "B":
		var b []byte
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, ddberr.NewDecodingError(path, "B payload must be a base64 string")
		}
		return &types.AttributeValueMemberB{Value: b}, nil
	case "BOOL":
		var b bool
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, ddberr.NewDecodingError(path, "BOOL payload must be a boolean")
		}
		return &types.AttributeValueMemberBOOL{Value: b}, nil
	case "NULL":
		var b bool
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, ddberr.NewDecodingError(path, "NULL payload must be a boolean")
		}
		return &types.AttributeValueMemberNULL{Value: b}, nil
	case "SS":
		var ss []string
		if err := json.Unmarshal(payload, &ss); err != nil || len(ss) == 0 {
			return nil, ddberr.NewDecodingError(path, "SS payload must be a non-empty string array")
		}
		return &types.AttributeValueMemberSS{Value: ss}, nil
	case "NS":
		var ns []string
		if err := json.Unmarshal(payload, &ns); err != nil || len(ns) == 0 {
			return nil, ddberr.NewDecodingError(path, "NS payload must be a non-empty string array")
		}
		return &types.AttributeValueMemberNS{Value: ns}, nil
	case "BS":
		var bs [][]byte
		if err := json.Unmarshal(payload, &bs); err != nil || len(bs) == 0 {
			return nil, ddberr.NewDecodingError(path, "BS payload must be a non-empty base64 array")
		}
		return &types.AttributeValueMemberBS{Value: bs}, nil
	case "M":
		var m map[string]json.RawMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, ddberr.NewDecodingError(path, "M payload must be an object")
		}
		out := make(map[string]types.AttributeValue, len(m))
		for k, v := range m {
			av, err := fromWire(v, path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = av
		}
		return &types.AttributeValueMemberM{Value: out}, nil
	case "L":
		var l []json.RawMessage
		if err := json.Unmarshal(payload, &l); err != nil {
			return nil, ddberr.NewDecodingError(path, "L payload must be an array")
		}
		out := make([]types.AttributeValue, len(l))
		for i, v := range l {
			av, err := fromWire(v, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = av
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	default:
		return nil, ddberr.NewDecodingError(path, fmt.Sprintf("unknown type tag %q", tag))
	}
}
