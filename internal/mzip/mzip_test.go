package mzip

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KongzTech/moonzip-backend/internal/solana"
)

func TestTradeEventDiscriminator(t *testing.T) {
	want := [8]byte{189, 219, 127, 211, 78, 230, 97, 238}
	assert.Equal(t, want, AnchorDiscriminator("event", "TradeEvent"))
}

func TestProjectIDFromUUIDLittleEndian(t *testing.T) {
	id := uuid.MustParse("00010203-0405-0607-0809-0a0b0c0d0e0f")
	chainID := ProjectIDFromUUID(id)
	// Little-endian: the uuid's last byte leads.
	assert.EqualValues(t, 0x0f, chainID[0])
	assert.EqualValues(t, 0x00, chainID[15])
}

func TestCloseConditionsBoundary(t *testing.T) {
	finish := uint64(1_000_000)
	conditions := PoolCloseConditions{FinishTs: &finish}

	// Exactly one second before the finish timestamp the pool closes; a
	// second earlier it does not.
	assert.True(t, conditions.ShouldBeClosed(0, finish-1))
	assert.False(t, conditions.ShouldBeClosed(0, finish-2))
	assert.True(t, conditions.ShouldBeClosed(0, finish))

	cap := uint64(500)
	capped := PoolCloseConditions{MaxLamports: &cap}
	assert.True(t, capped.ShouldBeClosed(500, 0))
	assert.False(t, capped.ShouldBeClosed(499, 0))
	assert.False(t, capped.ShouldBeClosed(501, 0))
}

func defaultCurveConfig() CurveConfig {
	return CurveConfig{
		InitialVirtualTokenReserves: 1_073_000_000_000_000,
		InitialVirtualSolReserves:   30_000_000_000,
		InitialRealTokenReserves:    793_100_000_000_000,
		TotalTokenSupply:            1_000_000_000_000_000,
	}
}

func TestCurveZeroBuy(t *testing.T) {
	state := CurveStateFromConfig(defaultCurveConfig())
	assert.Zero(t, state.BuyFixedSols(0))
	assert.Zero(t, state.SellFixedTokens(0))
}

func TestCurveBuyProperties(t *testing.T) {
	state := CurveStateFromConfig(defaultCurveConfig())
	tokens := state.BuyFixedSols(1_000_000_000)
	require.Positive(t, tokens)
	require.Less(t, tokens, state.VirtualTokenReserves)

	// A larger purchase buys more, but with diminishing returns.
	more := state.BuyFixedSols(2_000_000_000)
	assert.Greater(t, more, tokens)
	assert.Less(t, more, 2*tokens+1)

	// The fee strictly reduces the output.
	withFee := state.BuyFixedSolsWithFee(1_000_000_000, BasisPoints(100))
	assert.Less(t, withFee, tokens)
}

func TestTokenSupplyFitsUint64(t *testing.T) {
	cfg := defaultCurveConfig()
	product := mulU64(cfg.InitialVirtualTokenReserves, cfg.InitialVirtualSolReserves)
	// The reserve product exceeds 64 bits and must be carried in the
	// 128-bit intermediate.
	assert.Positive(t, product.Hi)
	assert.Equal(t, cfg.InitialVirtualTokenReserves,
		product.Div64(cfg.InitialVirtualSolReserves))
}

func TestParseProjectAccount(t *testing.T) {
	disc := AnchorDiscriminator("account", "Project")
	dev := uint64(42)

	enc := solana.NewEncoder()
	enc.Raw(disc[:])
	id := ProjectIDFromUUID(uuid.New())
	enc.Raw(id[:])
	enc.Bool(true)                       // use_static_pool
	enc.U8(uint8(CurveVariantPumpfun))   // curve_pool
	enc.OptionU64(&dev)                  // dev_purchase
	enc.U8(uint8(StageChainStaticPoolActive))
	enc.U64(777)               // project_bank
	enc.OptionU64(nil)         // lamports_before_tx
	enc.U8(254)                // bump

	project, err := ParseProject(enc.Bytes())
	require.NoError(t, err)
	assert.Equal(t, id, project.ID)
	assert.True(t, project.Schema.UseStaticPool)
	assert.Equal(t, CurveVariantPumpfun, project.Schema.CurvePool)
	require.NotNil(t, project.Schema.DevPurchase)
	assert.EqualValues(t, 42, *project.Schema.DevPurchase)
	assert.Equal(t, StageChainStaticPoolActive, project.Stage)
	assert.EqualValues(t, 777, project.Latch.ProjectBank)
	assert.Nil(t, project.Latch.LamportsBeforeTx)
	assert.EqualValues(t, 254, project.Bump)

	// Wrong discriminator is rejected.
	bad := enc.Bytes()
	bad[0] ^= 0xff
	_, err = ParseProject(bad)
	assert.ErrorContains(t, err, "discriminator mismatch")
}

func TestParseStaticPoolAccount(t *testing.T) {
	disc := AnchorDiscriminator("account", "StaticPool")
	maxLamports := uint64(85_000_000_000)
	finishTs := uint64(1_900_000_000)
	mint := solana.NewKeypair().Pubkey()

	enc := solana.NewEncoder()
	enc.Raw(disc[:])
	enc.Pubkey(mint)
	enc.OptionU64(nil) // min_purchase_lamports
	enc.OptionU64(&maxLamports)
	enc.OptionU64(&finishTs)
	enc.U8(uint8(StaticPoolClosed))
	enc.U64(12345)
	enc.U8(253)

	pool, err := ParseStaticPool(enc.Bytes())
	require.NoError(t, err)
	assert.Equal(t, mint, pool.Mint)
	assert.Equal(t, StaticPoolClosed, pool.State)
	assert.EqualValues(t, 12345, pool.CollectedLamports)
	require.NotNil(t, pool.Config.CloseConditions.MaxLamports)
	assert.Equal(t, maxLamports, *pool.Config.CloseConditions.MaxLamports)
	require.NotNil(t, pool.Config.CloseConditions.FinishTs)
	assert.Equal(t, finishTs, *pool.Config.CloseConditions.FinishTs)
}

func TestParseEventDispatch(t *testing.T) {
	enc := solana.NewEncoder()
	id := ProjectIDFromUUID(uuid.New())
	enc.Raw(id[:])
	enc.U8(uint8(StageChainStaticPoolActive))
	enc.U8(uint8(StageChainStaticPoolClosed))

	event, err := ParseEvent(ProjectChangedEventDiscriminator, enc.Bytes())
	require.NoError(t, err)
	changed, ok := event.(ProjectChangedEvent)
	require.True(t, ok)
	assert.Equal(t, id, changed.ProjectID)
	assert.Equal(t, StageChainStaticPoolClosed, changed.ToStage)

	_, err = ParseEvent([8]byte{1, 2, 3, 4, 5, 6, 7, 8}, enc.Bytes())
	assert.ErrorContains(t, err, "unsupported event discriminator")
}
