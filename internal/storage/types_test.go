package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KongzTech/moonzip-backend/internal/mzip"
	"github.com/KongzTech/moonzip-backend/internal/solana"
)

func TestStageOrdering(t *testing.T) {
	ordered := []Stage{
		StageCreated, StageConfirmed, StageOnStaticPool, StageStaticPoolClosed,
		StageOnCurvePool, StageCurvePoolClosed, StageGraduated,
	}
	for i := 1; i < len(ordered); i++ {
		assert.True(t, ordered[i-1].Before(ordered[i]),
			"%s must precede %s", ordered[i-1], ordered[i])
		assert.False(t, ordered[i].Before(ordered[i-1]))
	}
	assert.False(t, StageGraduated.Before(StageGraduated))

	_, err := Stage("bogus").Order()
	assert.Error(t, err)
}

func TestApplyChainStageOnlyAdvances(t *testing.T) {
	project := StoredProject{Stage: StageStaticPoolClosed}

	// An older chain stage never downgrades the stored one.
	assert.False(t, project.ApplyChainStage(mzip.StageChainCreated))
	assert.Equal(t, StageStaticPoolClosed, project.Stage)

	assert.True(t, project.ApplyChainStage(mzip.StageChainCurvePoolActive))
	assert.Equal(t, StageOnCurvePool, project.Stage)
}

func TestBalanceScan(t *testing.T) {
	var balance Balance
	require.NoError(t, balance.Scan("12345"))
	assert.EqualValues(t, 12345, balance)

	require.NoError(t, balance.Scan([]byte("67890.0")))
	assert.EqualValues(t, 67890, balance)

	require.NoError(t, balance.Scan(int64(7)))
	assert.EqualValues(t, 7, balance)

	assert.Error(t, balance.Scan("not-a-number"))
	assert.Error(t, balance.Scan(int64(-1)))
}

func TestDeploySchemaJSON(t *testing.T) {
	schema := DeploySchema{
		StaticPool: &StaticPoolConfig{LaunchTs: 1_800_000_000},
		CurvePool:  CurveVariantPumpfun,
		DevPurchase: &DevPurchase{
			Amount:     1_000_000,
			LockPeriod: 86400,
		},
	}
	raw, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"curvePool":"pumpfun"`)

	var decoded DeploySchema
	require.NoError(t, decoded.Scan(raw))
	assert.Equal(t, schema, decoded)
	assert.True(t, decoded.NeedsDevLock())

	decoded.DevPurchase.LockPeriod = 0
	assert.False(t, decoded.NeedsDevLock())
}

func TestStoredKeypairRoundTrip(t *testing.T) {
	keypair := solana.NewKeypair()
	stored := StoredKeypairOf(keypair)
	restored, err := stored.Keypair()
	require.NoError(t, err)
	assert.Equal(t, keypair.Pubkey(), restored.Pubkey())

	mint, ok := (&StoredProject{CurvePoolKeypair: stored}).CurvePoolMint()
	require.True(t, ok)
	assert.Equal(t, keypair.Pubkey(), mint)
}
