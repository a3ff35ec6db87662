package api

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KongzTech/moonzip-backend/internal/database"
	"github.com/KongzTech/moonzip-backend/internal/fetchers"
	"github.com/KongzTech/moonzip-backend/internal/instructions"
	"github.com/KongzTech/moonzip-backend/internal/solana"
	"github.com/KongzTech/moonzip-backend/internal/storage"
)

func testApp(t *testing.T) (*App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	solanaMeta := fetchers.NewWatch[fetchers.SolanaMeta](nil)
	solanaMeta.Publish(fetchers.SolanaMeta{
		Rent: solana.Rent{LamportsPerByteYear: 3480, ExemptionThreshold: 2},
	})

	app := &App{
		Store: storage.NewStore(&database.Client{DB: sqlx.NewDb(db, "sqlmock")}),
		Builder: &instructions.Builder{
			Config: instructions.Config{
				MzipProgram: solana.NewKeypair().Pubkey(),
				Authority:   solana.NewKeypair().Pubkey(),
			}.Normalize(),
			SolanaMeta: solanaMeta.Receiver(),
		},
	}
	return app, mock
}

func TestCreateProjectInsertsAndReturnsTx(t *testing.T) {
	app, mock := testApp(t)
	owner := solana.NewKeypair().Pubkey()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO project`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO token_meta`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO token_image`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO static_pool_chain_state`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	hour := int64(time.Hour / time.Second)
	response, err := app.CreateProject(context.Background(), CreateProjectRequest{
		Owner: owner.String(),
		Meta: CreateTokenMeta{
			Name:        "Moon",
			Symbol:      "MOON",
			Description: "to the moon",
		},
		DeploySchema: DeploySchemaRequest{
			StaticPool: &StaticPoolSchema{LaunchPeriod: hour},
			CurvePool:  storage.CurveVariantMzip,
		},
		ImageContent: []byte{1, 2, 3},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	// The returned transaction is an unsigned legacy transaction with the
	// owner as fee payer.
	raw, err := base58.Decode(response.Transaction)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestCreateProjectRejectsBadLaunchPeriod(t *testing.T) {
	app, _ := testApp(t)
	owner := solana.NewKeypair().Pubkey()

	_, err := app.CreateProject(context.Background(), CreateProjectRequest{
		Owner: owner.String(),
		Meta:  CreateTokenMeta{Name: "Moon", Symbol: "MOON"},
		DeploySchema: DeploySchemaRequest{
			StaticPool: &StaticPoolSchema{LaunchPeriod: 123},
			CurvePool:  storage.CurveVariantMzip,
		},
		ImageContent: []byte{1},
	})
	assert.ErrorContains(t, err, "launch period")
}

func TestCreateProjectRejectsBadLockPeriod(t *testing.T) {
	app, _ := testApp(t)
	owner := solana.NewKeypair().Pubkey()

	_, err := app.CreateProject(context.Background(), CreateProjectRequest{
		Owner: owner.String(),
		Meta:  CreateTokenMeta{Name: "Moon", Symbol: "MOON"},
		DeploySchema: DeploySchemaRequest{
			CurvePool:   storage.CurveVariantPumpfun,
			DevPurchase: &DevPurchaseSchema{Amount: 100, LockPeriod: 5},
		},
		ImageContent: []byte{1},
	})
	assert.ErrorContains(t, err, "lock period")
}
