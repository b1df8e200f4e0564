package ddbclient

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/dynokit/ddberr"
	"github.com/acksell/dynokit/ddbmock"
	"github.com/acksell/dynokit/table"
)

var usersDef = table.TableDefinition{
	Name: "users",
	KeyDefinitions: table.PrimaryKeyDefinition{
		PartitionKey: table.KeyDef{Name: "pk", Kind: table.KeyKindS},
	},
}

func describeStatus(status types.TableStatus) *dynamodb.DescribeTableOutput {
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableStatus: status}}
}

func TestCreateTable_PollsUntilActive(t *testing.T) {
	var creates, describes atomic.Int64
	mock := &ddbmock.Client{
		CreateTableFunc: func(_ context.Context, params *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
			creates.Add(1)
			assert.Equal(t, aws.String("users"), params.TableName)
			return &dynamodb.CreateTableOutput{}, nil
		},
		DescribeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
			if describes.Add(1) < 3 {
				return describeStatus(types.TableStatusCreating), nil
			}
			return describeStatus(types.TableStatusActive), nil
		},
	}
	c := newTestWriteClient(t, mock, WithPollInterval(time.Millisecond))

	require.NoError(t, c.CreateTable(context.Background(), usersDef))
	assert.EqualValues(t, 1, creates.Load())
	assert.EqualValues(t, 3, describes.Load(), "returns only after the table reports ACTIVE")
}

func TestCreateTable_InvalidDefinitionFailsFast(t *testing.T) {
	c := newTestWriteClient(t, &ddbmock.Client{})
	err := c.CreateTable(context.Background(), table.TableDefinition{Name: "users"})
	assert.True(t, ddberr.IsValidation(err))
}

func TestCreateTable_RejectionIsImmediate(t *testing.T) {
	mock := &ddbmock.Client{
		CreateTableFunc: func(_ context.Context, _ *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
			return nil, &types.ResourceInUseException{Message: aws.String("table already exists")}
		},
	}
	c := newTestWriteClient(t, mock, WithPollInterval(time.Millisecond))

	err := c.CreateTable(context.Background(), usersDef)
	require.Error(t, err)
	assert.True(t, ddberr.IsRequest(err))
	var inUse *types.ResourceInUseException
	assert.ErrorAs(t, err, &inUse)
}

func TestCreateTable_TransientDescribeErrorsRetried(t *testing.T) {
	var describes atomic.Int64
	mock := &ddbmock.Client{
		CreateTableFunc: func(_ context.Context, _ *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
			return &dynamodb.CreateTableOutput{}, nil
		},
		DescribeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
			if describes.Add(1) < 3 {
				return nil, errors.New("connection reset")
			}
			return describeStatus(types.TableStatusActive), nil
		},
	}
	c := newTestWriteClient(t, mock, WithPollInterval(time.Millisecond))

	require.NoError(t, c.CreateTable(context.Background(), usersDef))
	assert.EqualValues(t, 3, describes.Load())
}

func TestCreateTable_ContextBoundsPolling(t *testing.T) {
	mock := &ddbmock.Client{
		CreateTableFunc: func(_ context.Context, _ *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
			return &dynamodb.CreateTableOutput{}, nil
		},
		DescribeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
			return describeStatus(types.TableStatusCreating), nil
		},
	}
	c := newTestWriteClient(t, mock, WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := c.CreateTable(ctx, usersDef)
	require.Error(t, err)
	assert.True(t, ddberr.IsRequest(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDeleteTable_FirstNotFoundIsSuccess(t *testing.T) {
	var describes atomic.Int64
	mock := &ddbmock.Client{
		DeleteTableFunc: func(_ context.Context, params *dynamodb.DeleteTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
			assert.Equal(t, aws.String("users"), params.TableName)
			return &dynamodb.DeleteTableOutput{}, nil
		},
		DescribeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
			if describes.Add(1) < 3 {
				return describeStatus(types.TableStatusDeleting), nil
			}
			return nil, &types.ResourceNotFoundException{Message: aws.String("gone")}
		},
	}
	c := newTestWriteClient(t, mock, WithPollInterval(time.Millisecond))

	require.NoError(t, c.DeleteTable(context.Background(), "users"))
	assert.EqualValues(t, 3, describes.Load())
}

func TestDeleteTable_RejectionIsImmediate(t *testing.T) {
	mock := &ddbmock.Client{
		DeleteTableFunc: func(_ context.Context, _ *dynamodb.DeleteTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
			return nil, &types.ResourceNotFoundException{Message: aws.String("no such table")}
		},
	}
	c := newTestWriteClient(t, mock, WithPollInterval(time.Millisecond))

	err := c.DeleteTable(context.Background(), "users")
	require.Error(t, err)
	assert.True(t, ddberr.IsRequest(err))
	var notFound *types.ResourceNotFoundException
	assert.ErrorAs(t, err, &notFound)
}

func TestEnsureTable(t *testing.T) {
	t.Run("already active is a no-op", func(t *testing.T) {
		var describes, creates atomic.Int64
		mock := &ddbmock.Client{
			DescribeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
				describes.Add(1)
				return describeStatus(types.TableStatusActive), nil
			},
		}
		c := newTestWriteClient(t, mock, WithPollInterval(time.Millisecond))

		require.NoError(t, c.EnsureTable(context.Background(), usersDef))
		assert.EqualValues(t, 1, describes.Load())
		assert.EqualValues(t, 0, creates.Load())
	})

	t.Run("settling table is awaited", func(t *testing.T) {
		var describes atomic.Int64
		mock := &ddbmock.Client{
			DescribeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
				if describes.Add(1) == 1 {
					return describeStatus(types.TableStatusCreating), nil
				}
				return describeStatus(types.TableStatusActive), nil
			},
		}
		c := newTestWriteClient(t, mock, WithPollInterval(time.Millisecond))

		require.NoError(t, c.EnsureTable(context.Background(), usersDef))
		assert.GreaterOrEqual(t, describes.Load(), int64(2))
	})

	t.Run("missing table is created", func(t *testing.T) {
		var describes, creates atomic.Int64
		mock := &ddbmock.Client{
			DescribeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
				if describes.Add(1) == 1 {
					return nil, &types.ResourceNotFoundException{Message: aws.String("no such table")}
				}
				return describeStatus(types.TableStatusActive), nil
			},
			CreateTableFunc: func(_ context.Context, _ *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
				creates.Add(1)
				return &dynamodb.CreateTableOutput{}, nil
			},
		}
		c := newTestWriteClient(t, mock, WithPollInterval(time.Millisecond))

		require.NoError(t, c.EnsureTable(context.Background(), usersDef))
		assert.EqualValues(t, 1, creates.Load())
		assert.EqualValues(t, 2, describes.Load())
	})

	t.Run("other describe failures surface", func(t *testing.T) {
		mock := &ddbmock.Client{
			DescribeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
				return nil, errors.New("access denied")
			},
		}
		c := newTestWriteClient(t, mock, WithPollInterval(time.Millisecond))

		err := c.EnsureTable(context.Background(), usersDef)
		assert.True(t, ddberr.IsRequest(err))
	})
}
