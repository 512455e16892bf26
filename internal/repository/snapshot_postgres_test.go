package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

func newPostgresSnapshotsMock(t *testing.T) (*PostgresSnapshots, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS snapshots").
		WillReturnResult(sqlmock.NewResult(0, 0))

	snaps, err := NewPostgresSnapshots(context.Background(), sqlxDB)
	require.NoError(t, err)

	return snaps, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestPostgresSnapshotsSave(t *testing.T) {
	snaps, mock, cleanup := newPostgresSnapshotsMock(t)
	defer cleanup()

	payload := []byte(`{"links":[]}`)
	mock.ExpectExec("INSERT INTO snapshots").
		WithArgs(CollectionLinks, payload).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, snaps.Save(context.Background(), CollectionLinks, payload))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotsLoad(t *testing.T) {
	snaps, mock, cleanup := newPostgresSnapshotsMock(t)
	defer cleanup()

	payload := []byte(`{"batches":[]}`)
	rows := sqlmock.NewRows([]string{"body"}).AddRow(payload)
	mock.ExpectQuery("SELECT body FROM snapshots").
		WithArgs(CollectionBatches).
		WillReturnRows(rows)

	got, err := snaps.Load(context.Background(), CollectionBatches)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotsLoadMissing(t *testing.T) {
	snaps, mock, cleanup := newPostgresSnapshotsMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT body FROM snapshots").
		WithArgs(CollectionFilters).
		WillReturnRows(sqlmock.NewRows([]string{"body"}))

	_, err := snaps.Load(context.Background(), CollectionFilters)
	assert.True(t, errors.Is(err, appErrors.ErrSnapshotNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}
