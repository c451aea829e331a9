package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"archie-core-attribution-layer/internal/infrastructure/repository/entity"
	"archie-core-attribution-layer/internal/ports"

	"github.com/google/uuid"
)

// ErrDuplicateKey is returned when an insert would break a unique key
var ErrDuplicateKey = errors.New("duplicate key")

// MemoryStore is an in-process DataStore used for local development and tests.
// Rows are normalised through bson on the way in and copied on the way out.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]ports.Row
}

// NewMemoryStore creates an empty in-memory data store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]ports.Row)}
}

// Select returns copies of every row matching filters, in insertion order
func (s *MemoryStore) Select(ctx context.Context, table string, filters ports.Filter) ([]ports.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want, err := normalize(ports.Row(filters))
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := []ports.Row{}
	for _, row := range s.tables[table] {
		if matches(row, want) {
			c, err := normalize(row)
			if err != nil {
				return nil, err
			}
			rows = append(rows, c)
		}
	}
	return rows, nil
}

// Insert stores a copy of row, assigning a uuid "_id" when absent. Rows that
// collide with an existing row on _id or a unique key are rejected.
func (s *MemoryStore) Insert(ctx context.Context, table string, row ports.Row) (ports.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored, err := normalize(row)
	if err != nil {
		return nil, err
	}
	if id, ok := stored["_id"].(string); !ok || id == "" {
		stored["_id"] = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tables[table] {
		if existing["_id"] == stored["_id"] {
			return nil, fmt.Errorf("failed to insert into %s: %w on _id %v", table, ErrDuplicateKey, stored["_id"])
		}
		for _, cols := range uniqueKeys[table] {
			if sameKey(existing, stored, cols) {
				return nil, fmt.Errorf("failed to insert into %s: %w on %v", table, ErrDuplicateKey, cols)
			}
		}
	}
	s.tables[table] = append(s.tables[table], stored)

	return normalize(stored)
}

// Update applies patch to every matching row and returns a copy of the first one
func (s *MemoryStore) Update(ctx context.Context, table string, patch ports.Row, filters ports.Filter) (ports.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want, err := normalize(ports.Row(filters))
	if err != nil {
		return nil, err
	}
	set, err := normalize(patch)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var first ports.Row
	for _, row := range s.tables[table] {
		if !matches(row, want) {
			continue
		}
		for k, v := range set {
			row[k] = v
		}
		if first == nil {
			first = row
		}
	}
	if first == nil {
		return nil, ports.ErrNotFound
	}
	return normalize(first)
}

// Delete removes every matching row
func (s *MemoryStore) Delete(ctx context.Context, table string, filters ports.Filter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	want, err := normalize(ports.Row(filters))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.tables[table][:0]
	for _, row := range s.tables[table] {
		if !matches(row, want) {
			kept = append(kept, row)
		}
	}
	s.tables[table] = kept
	return nil
}

func matches(row ports.Row, filters ports.Row) bool {
	for k, v := range filters {
		if !reflect.DeepEqual(row[k], v) {
			return false
		}
	}
	return true
}

// sameKey reports whether both rows carry equal values for every column of a unique key
func sameKey(a, b ports.Row, cols []string) bool {
	for _, c := range cols {
		av, ok := a[c]
		if !ok || !reflect.DeepEqual(av, b[c]) {
			return false
		}
	}
	return true
}

// normalize deep-copies a row through bson so stored values and filter values share types
func normalize(row ports.Row) (ports.Row, error) {
	if len(row) == 0 {
		return ports.Row{}, nil
	}
	return entity.EncodeDoc(map[string]interface{}(row))
}
