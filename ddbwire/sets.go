package ddbwire

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/acksell/dynokit/ddberr"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/exp/constraints"
)

// Number matches the numeric types a number set can be built from.
type Number interface {
	constraints.Integer | constraints.Float
}

// CreateSet wraps a uniform list of scalar values into the matching set
// value: all S elements become an SS, all N an NS, all B a BS. This is the
// only way a set enters an item; lists are never promoted implicitly.
// Fails with a ddberr.EncodingError on empty input, mixed or non-scalar
// element types, and duplicate elements.
func CreateSet(elems []types.AttributeValue) (types.AttributeValue, error) {
	if len(elems) == 0 {
		return nil, ddberr.NewEncodingError("", "cannot create an empty set")
	}
	switch elems[0].(type) {
	case *types.AttributeValueMemberS:
		vals := make([]string, len(elems))
		for i, e := range elems {
			s, ok := e.(*types.AttributeValueMemberS)
			if !ok {
				return nil, mixedSetError(i, e)
			}
			vals[i] = s.Value
		}
		return StringSet(vals)
	case *types.AttributeValueMemberN:
		vals := make([]string, len(elems))
		for i, e := range elems {
			n, ok := e.(*types.AttributeValueMemberN)
			if !ok {
				return nil, mixedSetError(i, e)
			}
			vals[i] = n.Value
		}
		return NumberSetFromStrings(vals)
	case *types.AttributeValueMemberB:
		vals := make([][]byte, len(elems))
		for i, e := range elems {
			b, ok := e.(*types.AttributeValueMemberB)
			if !ok {
				return nil, mixedSetError(i, e)
			}
			vals[i] = b.Value
		}
		return BinarySet(vals)
	default:
		return nil, ddberr.NewEncodingError("", fmt.Sprintf("set elements must be S, N or B values, got %T", elems[0]))
	}
}

// StringSet builds an SS value. Elements must be unique.
func StringSet(vals []string) (types.AttributeValue, error) {
	if len(vals) == 0 {
		return nil, ddberr.NewEncodingError("", "cannot create an empty set")
	}
	seen := make(map[string]struct{}, len(vals))
	for i, v := range vals {
		if _, dup := seen[v]; dup {
			return nil, ddberr.NewEncodingError(fmt.Sprintf("[%d]", i), fmt.Sprintf("duplicate set element %q", v))
		}
		seen[v] = struct{}{}
	}
	return &types.AttributeValueMemberSS{Value: append([]string(nil), vals...)}, nil
}

// NumberSet builds an NS value from native numbers.
func NumberSet[T Number](vals []T) (types.AttributeValue, error) {
	strs := make([]string, len(vals))
	for i, v := range vals {
		strs[i] = formatNumber(v)
	}
	return NumberSetFromStrings(strs)
}

// NumberSetFromStrings builds an NS value from decimal strings, for callers
// that need more precision than float64 carries.
func NumberSetFromStrings(vals []string) (types.AttributeValue, error) {
	if len(vals) == 0 {
		return nil, ddberr.NewEncodingError("", "cannot create an empty set")
	}
	seen := make(map[string]struct{}, len(vals))
	for i, v := range vals {
		if v == "" {
			return nil, ddberr.NewEncodingError(fmt.Sprintf("[%d]", i), "empty number")
		}
		if _, dup := seen[v]; dup {
			return nil, ddberr.NewEncodingError(fmt.Sprintf("[%d]", i), fmt.Sprintf("duplicate set element %q", v))
		}
		seen[v] = struct{}{}
	}
	return &types.AttributeValueMemberNS{Value: append([]string(nil), vals...)}, nil
}

// BinarySet builds a BS value. Elements must be unique.
func BinarySet(vals [][]byte) (types.AttributeValue, error) {
	if len(vals) == 0 {
		return nil, ddberr.NewEncodingError("", "cannot create an empty set")
	}
	seen := make(map[string]struct{}, len(vals))
	out := make([][]byte, len(vals))
	for i, v := range vals {
		if _, dup := seen[string(v)]; dup {
			return nil, ddberr.NewEncodingError(fmt.Sprintf("[%d]", i), "duplicate set element")
		}
		seen[string(v)] = struct{}{}
		out[i] = append([]byte(nil), v...)
	}
	return &types.AttributeValueMemberBS{Value: out}, nil
}

func mixedSetError(i int, e types.AttributeValue) error {
	return ddberr.NewEncodingError(fmt.Sprintf("[%d]", i), fmt.Sprintf("mixed element types in set, got %T", e))
}

// formatNumber renders v the way the service expects numbers: plain decimal,
// no exponent for integers. reflect handles named types that a type switch
// on any(v) would miss.
func formatNumber[T Number](v T) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	default:
		return strconv.FormatInt(rv.Int(), 10)
	}
}
