package ports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by DataStore.Update when no row matches the filters
var ErrNotFound = errors.New("not found")

// Row is one record of a table, keyed by column name. "_id" is the store-assigned id.
type Row map[string]interface{}

// Filter is a set of column equality conditions combined with AND
type Filter map[string]interface{}

// DataStore is the generic remote data store the core persists through
type DataStore interface {
	// Select returns every row of table matching filters
	Select(ctx context.Context, table string, filters Filter) ([]Row, error)

	// Insert stores row, assigning "_id" when absent, and returns the stored row
	Insert(ctx context.Context, table string, row Row) (Row, error)

	// Update applies patch to every row matching filters and returns the first
	// updated row, or ErrNotFound when nothing matched
	Update(ctx context.Context, table string, patch Row, filters Filter) (Row, error)

	// Delete removes every row matching filters
	Delete(ctx context.Context, table string, filters Filter) error
}
