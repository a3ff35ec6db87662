package instructions

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KongzTech/moonzip-backend/internal/fetchers"
	"github.com/KongzTech/moonzip-backend/internal/mzip"
	"github.com/KongzTech/moonzip-backend/internal/pumpfun"
	"github.com/KongzTech/moonzip-backend/internal/solana"
	"github.com/KongzTech/moonzip-backend/internal/storage"
)

func testRent() solana.Rent {
	return solana.Rent{LamportsPerByteYear: 3480, ExemptionThreshold: 2}
}

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	config := Config{
		MzipProgram: solana.NewKeypair().Pubkey(),
		Authority:   solana.NewKeypair().Pubkey(),
	}.Normalize()

	solanaMeta := fetchers.NewWatch[fetchers.SolanaMeta](nil)
	solanaMeta.Publish(fetchers.SolanaMeta{
		Marker:          1,
		Rent:            testRent(),
		RecentBlockhash: solana.Hash{1},
	})
	mzipMeta := fetchers.NewWatch[fetchers.MzipMeta](nil)
	mzipMeta.Publish(fetchers.MzipMeta{
		Marker: 1,
		Global: mzip.GlobalAccount{Curve: mzip.CurveConfig{
			InitialVirtualTokenReserves: 1_073_000_000_000_000,
			InitialVirtualSolReserves:   30_000_000_000,
			InitialRealTokenReserves:    793_100_000_000_000,
			TotalTokenSupply:            1_000_000_000_000_000,
		}},
		Fee: mzip.FeeAccount{Config: mzip.FeeConfig{OnBuy: 100, OnSell: 100}},
	})
	pumpfunMeta := fetchers.NewWatch[fetchers.PumpfunMeta](nil)
	pumpfunMeta.Publish(fetchers.PumpfunMeta{
		Marker: 1,
		Global: pumpfun.Global{
			FeeRecipient:                solana.NewKeypair().Pubkey(),
			InitialVirtualTokenReserves: 1_073_000_000_000_000,
			InitialVirtualSolReserves:   30_000_000_000,
			InitialRealTokenReserves:    793_100_000_000_000,
			TokenTotalSupply:            1_000_000_000_000_000,
		},
	})

	return &Builder{
		Config:      config,
		SolanaMeta:  solanaMeta.Receiver(),
		MzipMeta:    mzipMeta.Receiver(),
		PumpfunMeta: pumpfunMeta.Receiver(),
	}
}

func testProject(schema storage.DeploySchema) *storage.StoredProject {
	owner := solana.NewKeypair().Pubkey()
	return &storage.StoredProject{
		ID:           uuid.New(),
		Owner:        storage.StoredPubkeyOf(owner),
		DeploySchema: schema,
		Stage:        storage.StageCreated,
		CreatedAt:    time.Now(),
	}
}

func creatorDeposit(t *testing.T, ix solana.Instruction, schema storage.DeploySchema) uint64 {
	t.Helper()
	// data: discriminator(8) + id(16) + schema + deposit(u64)
	offset := 8 + 16 + 1 + 1 + 1
	if schema.DevPurchase != nil {
		offset += 8
	}
	require.Len(t, ix.Data, offset+8)
	return binary.LittleEndian.Uint64(ix.Data[offset:])
}

func TestCreateProjectBudgetPumpfunOnly(t *testing.T) {
	builder := testBuilder(t)
	schema := storage.DeploySchema{CurvePool: storage.CurveVariantPumpfun}
	ops, err := builder.ForProject(context.Background(), testProject(schema))
	require.NoError(t, err)

	ixs, err := ops.CreateProject()
	require.NoError(t, err)
	require.Len(t, ixs, 1)

	// No static pool, no dev purchase, external curve: the budget is
	// exactly the AMM's creation price.
	assert.Equal(t, builder.Config.PumpfunInitPrice, creatorDeposit(t, ixs[0], schema))
}

func TestCreateProjectBudgetFullSchema(t *testing.T) {
	builder := testBuilder(t)
	rent := testRent()
	devAmount := uint64(3_000_000)
	schema := storage.DeploySchema{
		StaticPool:  &storage.StaticPoolConfig{LaunchTs: time.Now().Unix() + 3600},
		CurvePool:   storage.CurveVariantMzip,
		DevPurchase: &storage.DevPurchase{Amount: devAmount},
	}
	ops, err := builder.ForProject(context.Background(), testProject(schema))
	require.NoError(t, err)

	ixs, err := ops.CreateProject()
	require.NoError(t, err)

	want := rent.MinimumBalance(mzip.StaticPoolAccountSize) +
		rent.MinimumBalance(mzip.TransmuterAccountSize) +
		rent.MinimumBalance(solana.TokenAccountSize)*2 +
		rent.MinimumBalance(solana.TokenMintSize) +
		rent.MinimumBalance(solana.TokenMintSize) +
		rent.MinimumBalance(solana.TokenAccountSize) +
		rent.MinimumBalance(mzip.CurvedPoolAccountSize) +
		rent.MinimumBalance(mplMetadataAccountSize) +
		devAmount
	assert.Equal(t, want, creatorDeposit(t, ixs[0], schema))
}

func TestBuilderDeterminism(t *testing.T) {
	builder := testBuilder(t)
	curveKeypair := solana.NewKeypair()
	staticMint := solana.NewKeypair().Pubkey()
	deployed := "https://example.mypinata.cloud/ipfs/Qm123"

	project := testProject(storage.DeploySchema{
		StaticPool: &storage.StaticPoolConfig{LaunchTs: time.Now().Unix() + 3600},
		CurvePool:  storage.CurveVariantMzip,
	})
	project.Stage = storage.StageOnCurvePool
	project.StaticPoolPubkey = storage.StoredPubkeyOf(staticMint)
	project.CurvePoolKeypair = storage.StoredKeypairOf(curveKeypair)

	build := func() [][]solana.Instruction {
		ops, err := builder.ForProject(context.Background(), project)
		require.NoError(t, err)

		var all [][]solana.Instruction
		collect := func(ixs []solana.Instruction, err error) {
			require.NoError(t, err)
			all = append(all, ixs)
		}
		collect(ops.CreateProject())
		collect(ops.InitStaticPool(staticMint))
		collect(ops.GraduateStaticPool())
		collect(ops.LockProject())
		collect(ops.UnlockProject())
		collect(ops.InitTransmuter())
		collect(ops.InitMzipPool(CurveCreate{
			Mint:     curveKeypair.Pubkey(),
			Metadata: &storage.StoredTokenMeta{Name: "Token", Symbol: "TKN", DeployedURL: &deployed},
		}))
		collect(ops.Buy(context.Background(), staticMint, 1000, nil))
		collect(ops.Sell(context.Background(), staticMint, 1000, nil))
		collect(ops.GraduateCurvePool())
		market, marketIxs, err := ops.PrepareOpenbookMarket()
		require.NoError(t, err)
		all = append(all, marketIxs)
		collect(ops.DeployToRaydium(market, 100, 200))
		return all
	}

	assert.Equal(t, build(), build())
}

func TestBuyStageMismatch(t *testing.T) {
	builder := testBuilder(t)
	project := testProject(storage.DeploySchema{CurvePool: storage.CurveVariantMzip})
	project.Stage = storage.StageCreated

	ops, err := builder.ForProject(context.Background(), project)
	require.NoError(t, err)

	_, err = ops.Buy(context.Background(), solana.NewKeypair().Pubkey(), 100, nil)
	assert.ErrorContains(t, err, "unable to buy from project: stage mismatch")

	_, err = ops.Sell(context.Background(), solana.NewKeypair().Pubkey(), 100, nil)
	assert.ErrorContains(t, err, "unable to sell to project: stage mismatch")
}

func TestBuyAfterGraduationUnimplemented(t *testing.T) {
	builder := testBuilder(t)
	project := testProject(storage.DeploySchema{CurvePool: storage.CurveVariantPumpfun})
	project.Stage = storage.StageGraduated

	ops, err := builder.ForProject(context.Background(), project)
	require.NoError(t, err)

	_, err = ops.Buy(context.Background(), solana.NewKeypair().Pubkey(), 100, nil)
	assert.ErrorIs(t, err, ErrUnimplemented)
}

func TestInitTransmuterOnlyWithStaticPool(t *testing.T) {
	builder := testBuilder(t)
	project := testProject(storage.DeploySchema{CurvePool: storage.CurveVariantMzip})
	ops, err := builder.ForProject(context.Background(), project)
	require.NoError(t, err)

	ixs, err := ops.InitTransmuter()
	require.NoError(t, err)
	assert.Empty(t, ixs)
}
