package ddbclient

import (
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/dynokit/ddberr"
	"github.com/acksell/dynokit/ddbmock"
)

func testKeys(n int) []Item {
	keys := make([]Item, n)
	for i := range keys {
		keys[i] = Item{"pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("u%03d", i)}}
	}
	return keys
}

func keyID(item Item) string {
	av, ok := item["pk"].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return av.Value
}

func TestBatchGetRequests_ChunkCount(t *testing.T) {
	c := newTestReadClient(t, &ddbmock.Client{})
	for _, tc := range []struct {
		keys int
		want int
	}{
		{keys: 0, want: 0},
		{keys: 1, want: 1},
		{keys: 100, want: 1},
		{keys: 101, want: 2},
		{keys: 250, want: 3},
	} {
		rs, err := c.BatchGetRequests(testKeys(tc.keys))
		require.NoError(t, err)
		assert.Equal(t, tc.want, rs.Len(), "%d keys", tc.keys)
	}
}

func TestChunks(t *testing.T) {
	keys := testKeys(3)

	got := chunks(keys, 2)

	require.Len(t, got, 2)
	assert.Equal(t, []Item{keys[0], keys[1]}, got[0])
	assert.Equal(t, []Item{keys[2]}, got[1])
}

func TestBatchGetRequests_ChunksFollowInputOrder(t *testing.T) {
	c := newTestReadClient(t, &ddbmock.Client{})
	keys := testKeys(250)

	rs, err := c.BatchGetRequests(keys)
	require.NoError(t, err)
	require.Equal(t, 3, rs.Len())

	var sizes []int
	var flat []Item
	for _, req := range rs.requests {
		require.NotNil(t, req.get)
		chunk := req.get.RequestItems["users"].Keys
		sizes = append(sizes, len(chunk))
		flat = append(flat, chunk...)
	}
	assert.Equal(t, []int{100, 100, 50}, sizes)
	assert.Equal(t, keys, flat)
}

func TestBatchGetRequests_EmptyKeyRejected(t *testing.T) {
	c := newTestReadClient(t, &ddbmock.Client{})
	keys := testKeys(3)
	keys[1] = Item{}

	_, err := c.BatchGetRequests(keys)
	require.Error(t, err)
	assert.True(t, ddberr.IsValidation(err))
	assert.Contains(t, err.Error(), "index 1")
}

func TestBatchGetRequests_OptionsOnEveryChunk(t *testing.T) {
	c := newTestReadClient(t, &ddbmock.Client{})

	rs, err := c.BatchGetRequests(testKeys(150), WithProjection("pk", "name"), WithConsistentRead())
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())

	for i, req := range rs.requests {
		ka := req.get.RequestItems["users"]
		assert.Equal(t, aws.Bool(true), ka.ConsistentRead, "chunk %d", i)
		require.NotNil(t, ka.ProjectionExpression, "chunk %d", i)
		names := make([]string, 0, len(ka.ExpressionAttributeNames))
		for _, name := range ka.ExpressionAttributeNames {
			names = append(names, name)
		}
		assert.ElementsMatch(t, []string{"pk", "name"}, names, "chunk %d", i)
		assert.Equal(t, types.ReturnConsumedCapacityIndexes, req.get.ReturnConsumedCapacity, "chunk %d", i)
	}
}

func TestBatchGetRequests_InputSliceNotAliased(t *testing.T) {
	c := newTestReadClient(t, &ddbmock.Client{})
	keys := testKeys(2)

	rs, err := c.BatchGetRequests(keys)
	require.NoError(t, err)

	keys[0] = Item{"pk": &types.AttributeValueMemberS{Value: "swapped"}}
	assert.Equal(t, "u000", keyID(rs.requests[0].get.RequestItems["users"].Keys[0]))
}

func TestBatchWriteRequests(t *testing.T) {
	c := newTestWriteClient(t, &ddbmock.Client{})

	t.Run("shape and order preserved", func(t *testing.T) {
		ops := make([]WriteOp, 30)
		for i := range ops {
			key := Item{"pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("u%03d", i)}}
			if i%2 == 0 {
				ops[i] = PutOp(key)
			} else {
				ops[i] = DeleteOp(key)
			}
		}

		rs, err := c.BatchWriteRequests(ops)
		require.NoError(t, err)
		require.Equal(t, 2, rs.Len())

		var flat []types.WriteRequest
		for _, req := range rs.requests {
			require.NotNil(t, req.write)
			flat = append(flat, req.write.RequestItems["users"]...)
		}
		require.Len(t, flat, 30)
		for i, wr := range flat {
			if i%2 == 0 {
				require.NotNil(t, wr.PutRequest, "op %d", i)
				assert.Equal(t, fmt.Sprintf("u%03d", i), keyID(wr.PutRequest.Item))
			} else {
				require.NotNil(t, wr.DeleteRequest, "op %d", i)
				assert.Equal(t, fmt.Sprintf("u%03d", i), keyID(wr.DeleteRequest.Key))
			}
		}
	})

	t.Run("chunk count is ceil", func(t *testing.T) {
		for _, tc := range []struct {
			ops  int
			want int
		}{
			{ops: 0, want: 0},
			{ops: 25, want: 1},
			{ops: 26, want: 2},
			{ops: 60, want: 3},
		} {
			ops := make([]WriteOp, tc.ops)
			for i := range ops {
				ops[i] = PutOp(testKeys(1)[0])
			}
			rs, err := c.BatchWriteRequests(ops)
			require.NoError(t, err)
			assert.Equal(t, tc.want, rs.Len(), "%d ops", tc.ops)
		}
	})

	t.Run("zero op rejected", func(t *testing.T) {
		_, err := c.BatchWriteRequests([]WriteOp{PutOp(testKeys(1)[0]), {}})
		require.Error(t, err)
		assert.True(t, ddberr.IsValidation(err))
		assert.Contains(t, err.Error(), "index 1")
	})
}
