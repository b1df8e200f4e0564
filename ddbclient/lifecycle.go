package ddbclient

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/dynokit/ddberr"
	"github.com/acksell/dynokit/table"
)

// CreateTable creates the table described by def and polls DescribeTable at
// the client's poll interval until the table reports ACTIVE. A rejected
// create call (for example ResourceInUseException when the table already
// exists) fails immediately; transient describe errors while waiting are
// retried.
//
// There is no built-in deadline. Polling continues until the table settles
// or ctx is done, so callers wanting a bound use context.WithTimeout.
func (c *core) CreateTable(ctx context.Context, def table.TableDefinition) error {
	input, err := def.CreateTableInput()
	if err != nil {
		return ddberr.NewValidationError("create table", err.Error())
	}
	if _, err := c.api.CreateTable(ctx, input); err != nil {
		return ddberr.NewRequestError("create table", def.Name, err)
	}
	c.log.Debug().Str("table", def.Name).Dur("pollInterval", c.pollInterval).Msg("create issued, polling until ACTIVE")
	return c.waitActive(ctx, def.Name)
}

// DeleteTable deletes the named table and polls until DescribeTable reports
// it gone. A rejected delete call fails immediately; deleting a table that
// does not exist is such a rejection. The first not-found describe response
// is the success signal.
//
// Like CreateTable, polling has no built-in deadline; ctx is the bound.
func (c *core) DeleteTable(ctx context.Context, name string) error {
	if _, err := c.api.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(name)}); err != nil {
		return ddberr.NewRequestError("delete table", name, err)
	}
	c.log.Debug().Str("table", name).Dur("pollInterval", c.pollInterval).Msg("delete issued, polling until gone")
	return c.waitGone(ctx, name)
}

// EnsureTable creates the table if it does not exist and waits until it is
// ACTIVE either way. An existing table is NOT checked against def.
func (c *core) EnsureTable(ctx context.Context, def table.TableDefinition) error {
	out, err := c.describe(ctx, def.Name)
	switch {
	case err == nil && out.Table != nil && out.Table.TableStatus == types.TableStatusActive:
		return nil
	case err == nil:
		return c.waitActive(ctx, def.Name)
	case isTableNotFound(err):
		return c.CreateTable(ctx, def)
	default:
		return ddberr.NewRequestError("describe table", def.Name, err)
	}
}

// waitActive polls until the table reports ACTIVE. Not-found responses and
// transient describe failures keep the poll going.
func (c *core) waitActive(ctx context.Context, name string) error {
	return c.poll(ctx, name, func(out *dynamodb.DescribeTableOutput, err error) bool {
		return err == nil && out.Table != nil && out.Table.TableStatus == types.TableStatusActive
	})
}

// waitGone polls until describing the table fails with not-found.
func (c *core) waitGone(ctx context.Context, name string) error {
	return c.poll(ctx, name, func(out *dynamodb.DescribeTableOutput, err error) bool {
		return isTableNotFound(err)
	})
}

// poll describes the table at the client's fixed interval until settled
// reports true. All other outcomes, errors included, are treated as
// transient. Only ctx ends the loop early.
func (c *core) poll(ctx context.Context, name string, settled func(*dynamodb.DescribeTableOutput, error) bool) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		out, err := c.describe(ctx, name)
		if settled(out, err) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ddberr.NewRequestError("describe table", name, err)
			}
			c.log.Debug().Str("table", name).Err(err).Msg("describe failed, retrying")
		}
		select {
		case <-ctx.Done():
			return ddberr.NewRequestError("describe table", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *core) describe(ctx context.Context, name string) (*dynamodb.DescribeTableOutput, error) {
	return c.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
}

func isTableNotFound(err error) bool {
	var notFound *types.ResourceNotFoundException
	return errors.As(err, &notFound)
}
