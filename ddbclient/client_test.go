package ddbclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/dynokit/ddberr"
	"github.com/acksell/dynokit/ddbmock"
)

// newTestReadClient binds a read client to the "users" table over the given
// test double. The zero ddbmock.Client rejects every call, which doubles as
// a no-network assertion.
func newTestReadClient(t *testing.T, api DynamoAPI, opts ...Option) *ReadClient {
	t.Helper()
	c, err := NewReadClientFromAPI(api, Config{TableName: "users"}, opts...)
	require.NoError(t, err)
	return c
}

func newTestWriteClient(t *testing.T, api DynamoAPI, opts ...Option) *WriteClient {
	t.Helper()
	c, err := NewWriteClientFromAPI(api, Config{TableName: "users"}, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClientFromAPI(t *testing.T) {
	t.Run("binds table", func(t *testing.T) {
		c := newTestReadClient(t, &ddbmock.Client{})
		assert.Equal(t, "users", c.TableName())
	})

	t.Run("nil api rejected", func(t *testing.T) {
		_, err := NewReadClientFromAPI(nil, Config{TableName: "users"})
		assert.True(t, ddberr.IsValidation(err))
	})

	t.Run("missing table rejected", func(t *testing.T) {
		_, err := NewWriteClientFromAPI(&ddbmock.Client{}, Config{})
		assert.True(t, ddberr.IsValidation(err))
	})

	t.Run("bad poll interval rejected", func(t *testing.T) {
		_, err := NewReadClientFromAPI(&ddbmock.Client{}, Config{TableName: "users"}, WithPollInterval(0))
		assert.True(t, ddberr.IsValidation(err))
	})

	t.Run("defaults applied", func(t *testing.T) {
		c := newTestReadClient(t, &ddbmock.Client{})
		assert.Equal(t, defaultPollInterval, c.pollInterval)
	})

	t.Run("options applied", func(t *testing.T) {
		c := newTestWriteClient(t, &ddbmock.Client{}, WithPollInterval(time.Millisecond))
		assert.Equal(t, time.Millisecond, c.pollInterval)
	})
}
