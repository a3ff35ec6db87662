// Package pumpfun is the client-side binding of the external AMM: PDAs,
// the global config account, the bonding-curve math and the trade event.
package pumpfun

import (
	"fmt"

	"github.com/KongzTech/moonzip-backend/internal/mzip"
	"github.com/KongzTech/moonzip-backend/internal/solana"
)

// DefaultProgramID is the mainnet deployment of the external AMM.
var DefaultProgramID = solana.MustParsePubkey("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

var (
	globalSeed        = []byte("global")
	mintAuthoritySeed = []byte("mint-authority")
	bondingCurveSeed  = []byte("bonding-curve")
	eventAuthSeed     = []byte("__event_authority")
)

// GlobalAddress derives the global config PDA.
func GlobalAddress(programID solana.Pubkey) solana.Pubkey {
	key, _, _ := solana.FindProgramAddress([][]byte{globalSeed}, programID)
	return key
}

// MintAuthority derives the mint authority PDA.
func MintAuthority(programID solana.Pubkey) solana.Pubkey {
	key, _, _ := solana.FindProgramAddress([][]byte{mintAuthoritySeed}, programID)
	return key
}

// BondingCurve derives a mint's bonding curve PDA.
func BondingCurve(programID, mint solana.Pubkey) solana.Pubkey {
	key, _, _ := solana.FindProgramAddress([][]byte{bondingCurveSeed, mint[:]}, programID)
	return key
}

// EventAuthority derives the event CPI authority PDA.
func EventAuthority(programID solana.Pubkey) solana.Pubkey {
	key, _, _ := solana.FindProgramAddress([][]byte{eventAuthSeed}, programID)
	return key
}

// Global is the AMM's global config account.
type Global struct {
	Initialized                 bool
	Authority                   solana.Pubkey
	FeeRecipient                solana.Pubkey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

// ParseGlobal decodes the global account data.
func ParseGlobal(raw []byte) (Global, error) {
	dec := solana.NewDecoder(raw)
	// Skip the account discriminator.
	for i := 0; i < mzip.DiscriminatorSize; i++ {
		dec.U8()
	}
	global := Global{
		Initialized:                 dec.Bool(),
		Authority:                   dec.Pubkey(),
		FeeRecipient:                dec.Pubkey(),
		InitialVirtualTokenReserves: dec.U64(),
		InitialVirtualSolReserves:   dec.U64(),
		InitialRealTokenReserves:    dec.U64(),
		TokenTotalSupply:            dec.U64(),
		FeeBasisPoints:              dec.U64(),
	}
	if err := dec.Err(); err != nil {
		return Global{}, fmt.Errorf("decode pumpfun global account: %w", err)
	}
	return global, nil
}

// TradeEventDiscriminator is the published trade event discriminator.
var TradeEventDiscriminator = [8]byte{189, 219, 127, 211, 78, 230, 97, 238}

// TradeEvent is the AMM's trade event payload.
type TradeEvent struct {
	Mint                 solana.Pubkey
	SolAmount            uint64
	TokenAmount          uint64
	IsBuy                bool
	User                 solana.Pubkey
	Timestamp            int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
}

// ParseTradeEvent decodes a trade event payload.
func ParseTradeEvent(payload []byte) (TradeEvent, error) {
	dec := solana.NewDecoder(payload)
	event := TradeEvent{
		Mint:                 dec.Pubkey(),
		SolAmount:            dec.U64(),
		TokenAmount:          dec.U64(),
		IsBuy:                dec.Bool(),
		User:                 dec.Pubkey(),
		Timestamp:            dec.I64(),
		VirtualSolReserves:   dec.U64(),
		VirtualTokenReserves: dec.U64(),
	}
	if err := dec.Err(); err != nil {
		return TradeEvent{}, fmt.Errorf("decode trade event: %w", err)
	}
	return event, nil
}

// Buy fee charged by the AMM, in basis points.
const buyFeeBasisPoints = 100

// Curve is a snapshot of the AMM bonding curve reserves.
type Curve struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
}

// InitialCurve is the curve's opening state from the global config.
func InitialCurve(global Global) Curve {
	return Curve{
		VirtualTokenReserves: global.InitialVirtualTokenReserves,
		VirtualSolReserves:   global.InitialVirtualSolReserves,
		RealTokenReserves:    global.InitialRealTokenReserves,
		TokenTotalSupply:     global.TokenTotalSupply,
	}
}

// CommitBuy applies a purchase to the snapshot.
func (c *Curve) CommitBuy(sols, tokens uint64) {
	c.RealTokenReserves -= tokens
	c.VirtualTokenReserves -= tokens
	c.RealSolReserves += sols
	c.VirtualSolReserves += sols
}

// BuyParams are the instruction arguments for a sized purchase.
type BuyParams struct {
	Tokens     uint64
	MaxSolCost uint64
}

// BuyFixedSols prices a purchase of a fixed sols amount. The AMM includes
// its fee in the slippage bound, so MaxSolCost carries the original amount.
func (c Curve) BuyFixedSols(sols uint64) BuyParams {
	afterFee := sols - sols*buyFeeBasisPoints/10000

	state := mzip.CurveState{
		VirtualTokenReserves: c.VirtualTokenReserves,
		VirtualSolReserves:   c.VirtualSolReserves,
	}
	return BuyParams{
		Tokens:     state.BuyFixedSols(afterFee),
		MaxSolCost: sols,
	}
}
