package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonp69/DL-Homework-Garden/pkg/database"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

func newSQLiteSnapshots(t *testing.T) *SQLiteSnapshots {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	snaps, err := NewSQLiteSnapshots(db)
	require.NoError(t, err)
	return snaps
}

func TestSQLiteSnapshotsRoundTrip(t *testing.T) {
	snaps := newSQLiteSnapshots(t)
	ctx := context.Background()

	payload := []byte(`{"filters":[],"next_numeric_id":1}`)
	require.NoError(t, snaps.Save(ctx, CollectionFilters, payload))

	got, err := snaps.Load(ctx, CollectionFilters)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSQLiteSnapshotsUpsert(t *testing.T) {
	snaps := newSQLiteSnapshots(t)
	ctx := context.Background()

	require.NoError(t, snaps.Save(ctx, CollectionLinks, []byte(`{"links":[1]}`)))
	require.NoError(t, snaps.Save(ctx, CollectionLinks, []byte(`{"links":[1,2]}`)))

	got, err := snaps.Load(ctx, CollectionLinks)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"links":[1,2]}`), got)
}

func TestSQLiteSnapshotsMissingCollection(t *testing.T) {
	snaps := newSQLiteSnapshots(t)

	_, err := snaps.Load(context.Background(), CollectionBatches)
	assert.True(t, errors.Is(err, appErrors.ErrSnapshotNotFound))
}
