package mzip

import "math/bits"

// CurveState is a snapshot of the constant-product virtual reserves.
type CurveState struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TotalTokenSupply     uint64
}

// CurveStateFromConfig is the curve's opening state.
func CurveStateFromConfig(cfg CurveConfig) CurveState {
	return CurveState{
		VirtualTokenReserves: cfg.InitialVirtualTokenReserves,
		VirtualSolReserves:   cfg.InitialVirtualSolReserves,
		RealTokenReserves:    cfg.InitialRealTokenReserves,
		RealSolReserves:      0,
		TotalTokenSupply:     cfg.TotalTokenSupply,
	}
}

func (s CurveState) constant() Uint128 {
	return mulU64(s.VirtualSolReserves, s.VirtualTokenReserves)
}

// CommitBuy applies a purchase to the snapshot.
func (s *CurveState) CommitBuy(sols, tokens uint64) {
	s.RealTokenReserves -= tokens
	s.VirtualTokenReserves -= tokens
	s.RealSolReserves += sols
	s.VirtualSolReserves += sols
}

// BuyFixedSols returns how many tokens a fixed sols amount purchases.
func (s CurveState) BuyFixedSols(sols uint64) uint64 {
	constant := s.constant()
	newSolReserves := s.VirtualSolReserves + sols
	newTokenReserves := constant.Div64(newSolReserves) + 1
	if newTokenReserves >= s.VirtualTokenReserves {
		return 0
	}
	return s.VirtualTokenReserves - newTokenReserves
}

// BuyFixedSolsWithFee deducts the buy fee before pricing the purchase.
func (s CurveState) BuyFixedSolsWithFee(sols uint64, fee BasisPoints) uint64 {
	return s.BuyFixedSols(sols - fee.PartOf(sols))
}

// SellFixedTokens returns how many sols a fixed token amount yields.
func (s CurveState) SellFixedTokens(tokens uint64) uint64 {
	constant := s.constant()
	newTokenReserves := s.VirtualTokenReserves + tokens
	newSolReserves := constant.Div64(newTokenReserves) + 1
	if newSolReserves >= s.VirtualSolReserves {
		return 0
	}
	return s.VirtualSolReserves - newSolReserves
}

// Uint128 carries the reserve product without overflow.
type Uint128 struct {
	Hi, Lo uint64
}

func mulU64(a, b uint64) Uint128 {
	hi, lo := bits.Mul64(a, b)
	return Uint128{Hi: hi, Lo: lo}
}

// Div64 divides the 128-bit value by a 64-bit divisor, returning the low 64
// bits of the quotient. Reserve quotients always fit: the divisor exceeds
// one of the product's factors.
func (u Uint128) Div64(divisor uint64) uint64 {
	quo, _ := bits.Div64(u.Hi%divisor, u.Lo, divisor)
	return quo
}
