package ddbmock

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/dynokit/table"
)

func TestEncodeNumber_PreservesOrder(t *testing.T) {
	ordered := []string{"-1000", "-2.5", "-1", "0", "0.5", "2", "10", "99999"}
	var encoded [][]byte
	for _, n := range ordered {
		e, err := encodeNumber(n)
		require.NoError(t, err)
		encoded = append(encoded, e)
	}
	for i := 1; i < len(encoded); i++ {
		assert.Negative(t, bytes.Compare(encoded[i-1], encoded[i]),
			"%s should sort before %s", ordered[i-1], ordered[i])
	}
}

func TestItemKey_PrefixIsolation(t *testing.T) {
	defs := table.PrimaryKeyDefinition{
		PartitionKey: table.KeyDef{Name: "pk", Kind: table.KeyKindS},
		SortKey:      table.KeyDef{Name: "sk", Kind: table.KeyKindS},
	}
	enc := keyEncoder{table: "users", keyDefs: defs}

	// A partition value containing the separator byte must not escape its
	// partition prefix.
	pk := table.NewPrimaryKey(defs, "a\x00b", "s")
	key, err := enc.itemKey(pk)
	require.NoError(t, err)

	otherPrefix, err := enc.partitionPrefix("a")
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(key, otherPrefix))

	ownPrefix, err := enc.partitionPrefix("a\x00b")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(key, ownPrefix))
	assert.True(t, bytes.HasPrefix(key, enc.tablePrefix()))
}

func TestEncodeKeyValue_KindMismatch(t *testing.T) {
	_, err := encodeKeyValue(42, table.KeyKindS)
	require.Error(t, err)
	_, err = encodeKeyValue("not-a-number", table.KeyKindN)
	require.Error(t, err)
	_, err = encodeKeyValue("str", table.KeyKindB)
	require.Error(t, err)
}
