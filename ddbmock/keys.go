package ddbmock

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/acksell/dynokit/table"
)

// Badger key layout: [table][0x00][kind byte][partition bytes][0x00][kind byte][sort bytes].
// The 0x00 separator never occurs inside a component (escaped), so table and
// partition prefixes are iteration-safe, and components encode so that byte
// order matches the service's key order for S, N and B kinds.

const keySeparator byte = 0x00

type keyEncoder struct {
	table   string
	keyDefs table.PrimaryKeyDefinition
}

// tablePrefix covers every item in the table.
func (e keyEncoder) tablePrefix() []byte {
	return append([]byte(e.table), keySeparator)
}

// partitionPrefix covers every item sharing one partition key value.
func (e keyEncoder) partitionPrefix(partitionValue any) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(e.tablePrefix())
	encoded, err := encodeKeyValue(partitionValue, e.keyDefs.PartitionKey.Kind)
	if err != nil {
		return nil, fmt.Errorf("encode partition key: %w", err)
	}
	buf.Write(encoded)
	buf.WriteByte(keySeparator)
	return buf.Bytes(), nil
}

// itemKey is the full badger key for one item.
func (e keyEncoder) itemKey(pk table.PrimaryKey) ([]byte, error) {
	prefix, err := e.partitionPrefix(pk.Values.PartitionKey)
	if err != nil {
		return nil, err
	}
	if pk.Definition.SortKey.Name == "" {
		return prefix, nil
	}
	encoded, err := encodeKeyValue(pk.Values.SortKey, pk.Definition.SortKey.Kind)
	if err != nil {
		return nil, fmt.Errorf("encode sort key: %w", err)
	}
	return append(prefix, encoded...), nil
}

// encodeKeyValue renders one key component as [kind byte][payload], with the
// payload escaped or transformed so lexicographic byte order matches the
// service's ordering for that kind.
func encodeKeyValue(value any, kind table.KeyKind) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(string(kind))

	switch kind {
	case table.KeyKindS:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string for S key, got %T", value)
		}
		buf.Write(escapeBytes([]byte(s)))

	case table.KeyKindN:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected number string for N key, got %T", value)
		}
		encoded, err := encodeNumber(s)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)

	case table.KeyKindB:
		b, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("expected bytes for B key, got %T", value)
		}
		buf.Write(escapeBytes(b))

	default:
		return nil, fmt.Errorf("unsupported key kind: %q", kind)
	}
	return buf.Bytes(), nil
}

// encodeNumber encodes a decimal string so byte comparison follows numeric
// order: positives get their float64 bits with the sign bit flipped behind
// 0x80, negatives get all bits inverted behind 0x7F.
func encodeNumber(numStr string) ([]byte, error) {
	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", numStr, err)
	}

	bits := math.Float64bits(f)
	buf := make([]byte, 9)
	if f >= 0 {
		buf[0] = 0x80
		bits ^= 1 << 63
	} else {
		buf[0] = 0x7F
		bits = ^bits
	}
	binary.BigEndian.PutUint64(buf[1:], bits)
	return buf, nil
}

// escapeBytes rewrites 0x00 as 0x01 0x01 and 0x01 as 0x01 0x02 so the
// separator byte never appears inside a key component.
func escapeBytes(b []byte) []byte {
	var buf bytes.Buffer
	for _, c := range b {
		switch c {
		case 0x00:
			buf.WriteByte(0x01)
			buf.WriteByte(0x01)
		case 0x01:
			buf.WriteByte(0x01)
			buf.WriteByte(0x02)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.Bytes()
}

// incrementBytes returns the smallest byte string greater than every string
// prefixed by b. Used to seek to the end of a prefix range when iterating
// in reverse.
func incrementBytes(b []byte) []byte {
	result := make([]byte, len(b))
	copy(result, b)
	for i := len(result) - 1; i >= 0; i-- {
		if result[i] < 0xFF {
			result[i]++
			return result
		}
		result[i] = 0
	}
	return append(result, 0x00)
}
