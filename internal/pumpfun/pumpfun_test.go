package pumpfun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KongzTech/moonzip-backend/internal/mzip"
	"github.com/KongzTech/moonzip-backend/internal/solana"
)

func TestTradeEventDiscriminatorMatchesAnchor(t *testing.T) {
	assert.Equal(t, mzip.AnchorDiscriminator("event", "TradeEvent"), TradeEventDiscriminator)
}

func TestParseGlobalRoundTrip(t *testing.T) {
	authority := solana.NewKeypair().Pubkey()
	feeRecipient := solana.NewKeypair().Pubkey()
	disc := mzip.AnchorDiscriminator("account", "Global")

	enc := solana.NewEncoder()
	enc.Raw(disc[:])
	enc.Bool(true)
	enc.Pubkey(authority)
	enc.Pubkey(feeRecipient)
	enc.U64(1_073_000_000_000_000)
	enc.U64(30_000_000_000)
	enc.U64(793_100_000_000_000)
	enc.U64(1_000_000_000_000_000)
	enc.U64(100)

	global, err := ParseGlobal(enc.Bytes())
	require.NoError(t, err)
	assert.True(t, global.Initialized)
	assert.Equal(t, feeRecipient, global.FeeRecipient)
	assert.EqualValues(t, 30_000_000_000, global.InitialVirtualSolReserves)
	assert.EqualValues(t, 100, global.FeeBasisPoints)
}

func TestBuyFixedSolsIncludesFeeInSlippage(t *testing.T) {
	curve := Curve{
		VirtualTokenReserves: 1_073_000_000_000_000,
		VirtualSolReserves:   30_000_000_000,
		RealTokenReserves:    793_100_000_000_000,
	}
	params := curve.BuyFixedSols(1_000_000_000)
	require.Positive(t, params.Tokens)
	// The AMM includes its fee in the slippage bound, so the cap carries
	// the original amount.
	assert.EqualValues(t, 1_000_000_000, params.MaxSolCost)

	// Committing the buy moves the price up for the next purchase.
	next := curve
	next.CommitBuy(params.MaxSolCost, params.Tokens)
	assert.Less(t, next.BuyFixedSols(1_000_000_000).Tokens, params.Tokens)
}

func TestBondingCurveDerivation(t *testing.T) {
	mint := solana.NewKeypair().Pubkey()
	first := BondingCurve(DefaultProgramID, mint)
	second := BondingCurve(DefaultProgramID, mint)
	assert.Equal(t, first, second)
	assert.False(t, first.IsOnCurve())
}
