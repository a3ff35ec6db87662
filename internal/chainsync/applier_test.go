package chainsync

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/KongzTech/moonzip-backend/internal/database"
	"github.com/KongzTech/moonzip-backend/internal/mzip"
)

func mockClient(t *testing.T) (*database.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &database.Client{DB: sqlx.NewDb(db, "sqlmock")}, mock
}

func TestApplierProjectChangedMonotonicGuard(t *testing.T) {
	client, mock := mockClient(t)
	applier := NewStorageApplier(client, testLog(t))

	projectID := uuid.New()
	event := mzip.ProjectChangedEvent{
		ProjectID: mzip.ProjectIDFromUUID(projectID),
		FromStage: mzip.StageChainStaticPoolActive,
		ToStage:   mzip.StageChainStaticPoolClosed,
	}

	mock.ExpectBegin()
	// The guard keeps already-advanced rows untouched.
	mock.ExpectExec(`UPDATE project SET stage = \$2\s+WHERE id = \$1 AND stage < \$2`).
		WithArgs(projectID, "static_pool_closed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := applier.applyResult(context.Background(), ParseResult{
		Slot:   10,
		Events: []Event{MzipEvent{Inner: event}},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplierStaticPoolBuyUpdatesCollected(t *testing.T) {
	client, mock := mockClient(t)
	applier := NewStorageApplier(client, testLog(t))

	projectID := uuid.New()
	event := mzip.StaticPoolBuyEvent{
		ProjectID:        mzip.ProjectIDFromUUID(projectID),
		NewCollectedSols: 777,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE static_pool_chain_state SET collected_lamports = \$2 WHERE project_id = \$1`).
		WithArgs(projectID, "777").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := applier.applyResult(context.Background(), ParseResult{
		Slot:   11,
		Events: []Event{MzipEvent{Inner: event}},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplierRollsBackOnError(t *testing.T) {
	client, mock := mockClient(t)
	applier := NewStorageApplier(client, testLog(t))

	projectID := uuid.New()
	event := mzip.StaticPoolSellEvent{
		ProjectID:        mzip.ProjectIDFromUUID(projectID),
		NewCollectedSols: 1,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE static_pool_chain_state`).
		WillReturnError(assertAnError{})
	mock.ExpectRollback()

	err := applier.applyResult(context.Background(), ParseResult{
		Slot:   12,
		Events: []Event{MzipEvent{Inner: event}},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

type assertAnError struct{}

func (assertAnError) Error() string { return "induced failure" }
