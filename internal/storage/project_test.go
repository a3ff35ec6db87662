package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KongzTech/moonzip-backend/internal/database"
	"github.com/KongzTech/moonzip-backend/internal/solana"
)

func mockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(&database.Client{DB: sqlx.NewDb(db, "sqlmock")}), mock
}

func projectRows(id uuid.UUID, stage Stage) *sqlmock.Rows {
	owner := solana.NewKeypair().Pubkey()
	return sqlmock.NewRows([]string{
		"id", "owner", "deploy_schema", "stage",
		"static_pool_pubkey", "curve_pool_keypair", "dev_lock_keypair", "created_at",
	}).AddRow(id, owner[:], []byte(`{"curvePool":"mzip"}`), string(stage),
		nil, nil, nil, time.Now())
}

func TestLockProjectContention(t *testing.T) {
	store, mock := mockStore(t)
	id := uuid.New()

	// A concurrently held row lock makes FOR UPDATE NOWAIT fail; the
	// caller skips the project for this tick.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT(.|\s)*FROM project WHERE id = \$1 FOR UPDATE NOWAIT`).
		WithArgs(id).
		WillReturnError(&lockNotAvailable{})
	mock.ExpectRollback()

	_, err := store.LockProject(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock project row")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockProjectHoldsRow(t *testing.T) {
	store, mock := mockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT(.|\s)*FROM project WHERE id = \$1 FOR UPDATE NOWAIT`).
		WithArgs(id).
		WillReturnRows(projectRows(id, StageConfirmed))
	mock.ExpectCommit()

	lock, err := store.LockProject(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, lock.Project.ID)
	assert.Equal(t, StageConfirmed, lock.Project.Stage)
	require.NoError(t, lock.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

type lockNotAvailable struct{}

func (*lockNotAvailable) Error() string {
	return "pq: could not obtain lock on row in relation \"project\""
}
