package repository

import (
	"context"
	"testing"
	"time"

	"archie-core-attribution-layer/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	row, err := store.Insert(ctx, "things", ports.Row{"name": "a", "count": 1})
	require.NoError(t, err)
	id, ok := row["_id"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)

	_, err = store.Insert(ctx, "things", ports.Row{"name": "b", "count": 2})
	require.NoError(t, err)

	rows, err := store.Select(ctx, "things", ports.Filter{"name": "a"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0]["_id"])

	updated, err := store.Update(ctx, "things", ports.Row{"count": 5}, ports.Filter{"_id": id})
	require.NoError(t, err)
	assert.EqualValues(t, 5, updated["count"])

	_, err = store.Update(ctx, "things", ports.Row{"count": 6}, ports.Filter{"name": "missing"})
	assert.ErrorIs(t, err, ports.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "things", ports.Filter{"_id": id}))
	rows, err = store.Select(ctx, "things", ports.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0]["name"])
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	row, err := store.Insert(ctx, "things", ports.Row{"name": "a"})
	require.NoError(t, err)
	row["name"] = "mutated"

	rows, err := store.Select(ctx, "things", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0]["name"])

	rows[0]["name"] = "mutated again"
	rows, err = store.Select(ctx, "things", nil)
	require.NoError(t, err)
	assert.Equal(t, "a", rows[0]["name"])
}

func TestMemoryStore_FiltersNormalizeTypes(t *testing.T) {
	type platform string
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Insert(ctx, "things", ports.Row{"platform": "google", "theme": uint64(42), "at": time.Now()})
	require.NoError(t, err)

	rows, err := store.Select(ctx, "things", ports.Filter{"platform": platform("google"), "theme": int64(42)})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMemoryStore_RejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Insert(ctx, "things", ports.Row{"_id": "x"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, "things", ports.Row{"_id": "x"})
	assert.Error(t, err)
}

func TestMemoryStore_EnforcesUniqueKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Insert(ctx, TableStores, ports.Row{"shopDomain": "foo.myshopify.com", "trackingId": "TRK1"})
	require.NoError(t, err)

	_, err = store.Insert(ctx, TableStores, ports.Row{"shopDomain": "foo.myshopify.com", "trackingId": "TRK2"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	_, err = store.Insert(ctx, TableStores, ports.Row{"shopDomain": "bar.myshopify.com", "trackingId": "TRK1"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = store.Insert(ctx, TableStores, ports.Row{"shopDomain": "bar.myshopify.com", "trackingId": "TRK2"})
	require.NoError(t, err)

	rows, err := store.Select(ctx, TableStores, ports.Filter{"shopDomain": "foo.myshopify.com"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	// tables without unique keys accept repeated values
	_, err = store.Insert(ctx, "things", ports.Row{"name": "a"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, "things", ports.Row{"name": "a"})
	assert.NoError(t, err)
}

func TestMemoryStore_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().Select(ctx, "things", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
