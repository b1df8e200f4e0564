package ddbmock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Client is a scripted DynamoDB double: each API call forwards to the
// matching function field. Calls whose field is nil fail, so a test states
// exactly which traffic it expects. The zero value rejects everything.
type Client struct {
	BatchGetItemFunc   func(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItemFunc func(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	QueryFunc          func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	ScanFunc           func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	CreateTableFunc    func(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTableFunc  func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	DeleteTableFunc    func(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
}

func (c *Client) BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	if c.BatchGetItemFunc == nil {
		return nil, unexpectedCall("BatchGetItem")
	}
	return c.BatchGetItemFunc(ctx, params, optFns...)
}

func (c *Client) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if c.BatchWriteItemFunc == nil {
		return nil, unexpectedCall("BatchWriteItem")
	}
	return c.BatchWriteItemFunc(ctx, params, optFns...)
}

func (c *Client) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if c.QueryFunc == nil {
		return nil, unexpectedCall("Query")
	}
	return c.QueryFunc(ctx, params, optFns...)
}

func (c *Client) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if c.ScanFunc == nil {
		return nil, unexpectedCall("Scan")
	}
	return c.ScanFunc(ctx, params, optFns...)
}

func (c *Client) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if c.CreateTableFunc == nil {
		return nil, unexpectedCall("CreateTable")
	}
	return c.CreateTableFunc(ctx, params, optFns...)
}

func (c *Client) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if c.DescribeTableFunc == nil {
		return nil, unexpectedCall("DescribeTable")
	}
	return c.DescribeTableFunc(ctx, params, optFns...)
}

func (c *Client) DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	if c.DeleteTableFunc == nil {
		return nil, unexpectedCall("DeleteTable")
	}
	return c.DeleteTableFunc(ctx, params, optFns...)
}

func unexpectedCall(method string) error {
	return fmt.Errorf("ddbmock: unexpected %s call", method)
}
