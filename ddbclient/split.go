package ddbclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/acksell/dynokit/table"
)

// SplitClient pairs a read store with a separate write store, for setups
// where reads are served by a replica or a different account than writes.
// Table lifecycle operations run against both stores.
type SplitClient struct {
	Read  *ReadClient
	Write *WriteClient
}

// NewSplitClient dials both stores. The two configs may point at different
// endpoints, regions or credentials; they usually share the table name.
func NewSplitClient(ctx context.Context, read, write Config, opts ...Option) (*SplitClient, error) {
	r, err := NewReadClient(ctx, read, opts...)
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	w, err := NewWriteClient(ctx, write, opts...)
	if err != nil {
		return nil, fmt.Errorf("write store: %w", err)
	}
	return &SplitClient{Read: r, Write: w}, nil
}

// CreateTables creates the table on the read and write stores concurrently
// and waits for both to become ACTIVE. Both outcomes are always awaited and
// reported together: one store failing never hides the other's result.
func (s *SplitClient) CreateTables(ctx context.Context, def table.TableDefinition) error {
	return s.both(
		func() error { return s.Read.CreateTable(ctx, def) },
		func() error { return s.Write.CreateTable(ctx, def) },
	)
}

// DeleteTables deletes the table from both stores concurrently, awaiting
// both like CreateTables does.
func (s *SplitClient) DeleteTables(ctx context.Context, name string) error {
	return s.both(
		func() error { return s.Read.DeleteTable(ctx, name) },
		func() error { return s.Write.DeleteTable(ctx, name) },
	)
}

func (s *SplitClient) both(read, write func() error) error {
	var readErr, writeErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		readErr = read()
	}()
	go func() {
		defer wg.Done()
		writeErr = write()
	}()
	wg.Wait()

	if readErr != nil {
		readErr = fmt.Errorf("read store: %w", readErr)
	}
	if writeErr != nil {
		writeErr = fmt.Errorf("write store: %w", writeErr)
	}
	return errors.Join(readErr, writeErr)
}
