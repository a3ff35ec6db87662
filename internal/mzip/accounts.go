package mzip

import (
	"bytes"
	"fmt"

	"github.com/KongzTech/moonzip-backend/internal/solana"
)

// Account data sizes, discriminator included. Rent budgeting depends on
// them matching the deployed program exactly.
const (
	ProjectAccountSize    = 54
	StaticPoolAccountSize = 77
	TransmuterAccountSize = 114
	CurvedPoolAccountSize = 99
	GlobalAccountSize     = 60
	FeeAccountSize        = 13
)

// ProjectStage is the program-side lifecycle marker.
type ProjectStage uint8

const (
	StageChainCreated ProjectStage = iota
	StageChainStaticPoolActive
	StageChainStaticPoolClosed
	StageChainCurvePoolActive
	StageChainCurvePoolClosed
	StageChainGraduated
)

// CurvePoolVariant selects the curve implementation for a project.
type CurvePoolVariant uint8

const (
	CurveVariantMzip CurvePoolVariant = iota
	CurveVariantPumpfun
)

// ProjectSchema is the deployment shape recorded on chain.
type ProjectSchema struct {
	UseStaticPool bool
	CurvePool     CurvePoolVariant
	DevPurchase   *uint64
}

// ProjectLatch carries the creator-deposit accounting checked around
// migration transactions.
type ProjectLatch struct {
	ProjectBank      uint64
	LamportsBeforeTx *uint64
}

// Project is the on-chain project account.
type Project struct {
	ID     ProjectID
	Schema ProjectSchema
	Stage  ProjectStage
	Latch  ProjectLatch
	Bump   uint8
}

func checkDiscriminator(dec *solana.Decoder, name string) error {
	want := AnchorDiscriminator("account", name)
	var got [8]byte
	for i := range got {
		got[i] = dec.U8()
	}
	if err := dec.Err(); err != nil {
		return err
	}
	if !bytes.Equal(got[:], want[:]) {
		return fmt.Errorf("account discriminator mismatch for %s", name)
	}
	return nil
}

// ParseProject decodes a project account.
func ParseProject(raw []byte) (Project, error) {
	dec := solana.NewDecoder(raw)
	if err := checkDiscriminator(dec, "Project"); err != nil {
		return Project{}, err
	}
	var project Project
	id := dec.U128()
	copy(project.ID[:], id[:])
	project.Schema = ProjectSchema{
		UseStaticPool: dec.Bool(),
		CurvePool:     CurvePoolVariant(dec.U8()),
		DevPurchase:   dec.OptionU64(),
	}
	project.Stage = ProjectStage(dec.U8())
	project.Latch = ProjectLatch{
		ProjectBank:      dec.U64(),
		LamportsBeforeTx: dec.OptionU64(),
	}
	project.Bump = dec.U8()
	if err := dec.Err(); err != nil {
		return Project{}, fmt.Errorf("decode project account: %w", err)
	}
	return project, nil
}

// PoolCloseConditions bound a static pool's lifetime.
type PoolCloseConditions struct {
	MaxLamports *uint64
	FinishTs    *uint64
}

const allowedTimeDriftSeconds = 1

// ShouldBeClosed mirrors the program's close predicate: exact cap hit, or
// the finish timestamp reached within the allowed drift.
func (c PoolCloseConditions) ShouldBeClosed(balance, currentTs uint64) bool {
	closed := false
	if c.MaxLamports != nil {
		closed = closed || balance == *c.MaxLamports
	}
	if c.FinishTs != nil {
		closed = closed || currentTs >= *c.FinishTs-allowedTimeDriftSeconds
	}
	return closed
}

// StaticPoolConfig parameterizes a static pool at creation.
type StaticPoolConfig struct {
	MinPurchaseLamports *uint64
	CloseConditions     PoolCloseConditions
}

// StaticPoolState is the pool's open/closed marker.
type StaticPoolState uint8

const (
	StaticPoolActive StaticPoolState = iota
	StaticPoolClosed
)

// StaticPool is the on-chain static pool account.
type StaticPool struct {
	Mint              solana.Pubkey
	Config            StaticPoolConfig
	State             StaticPoolState
	CollectedLamports uint64
	Bump              uint8
}

// ParseStaticPool decodes a static pool account.
func ParseStaticPool(raw []byte) (StaticPool, error) {
	dec := solana.NewDecoder(raw)
	if err := checkDiscriminator(dec, "StaticPool"); err != nil {
		return StaticPool{}, err
	}
	pool := StaticPool{
		Mint: dec.Pubkey(),
		Config: StaticPoolConfig{
			MinPurchaseLamports: dec.OptionU64(),
			CloseConditions: PoolCloseConditions{
				MaxLamports: dec.OptionU64(),
				FinishTs:    dec.OptionU64(),
			},
		},
		State:             StaticPoolState(dec.U8()),
		CollectedLamports: dec.U64(),
		Bump:              dec.U8(),
	}
	if err := dec.Err(); err != nil {
		return StaticPool{}, fmt.Errorf("decode static pool account: %w", err)
	}
	return pool, nil
}

// CurveConfig is the curve's initial reserve configuration.
type CurveConfig struct {
	InitialVirtualSolReserves   uint64
	InitialVirtualTokenReserves uint64
	InitialRealTokenReserves    uint64
	TotalTokenSupply            uint64
}

// GlobalAccount is the curve-pool global config account.
type GlobalAccount struct {
	Curve         CurveConfig
	TokenDecimals uint8
	PoolConfig    []byte // opaque trailing pool settings
	Bump          uint8
}

// ParseGlobalAccount decodes the global config account.
func ParseGlobalAccount(raw []byte) (GlobalAccount, error) {
	dec := solana.NewDecoder(raw)
	if err := checkDiscriminator(dec, "GlobalCurvedPoolAccount"); err != nil {
		return GlobalAccount{}, err
	}
	global := GlobalAccount{
		Curve: CurveConfig{
			InitialVirtualSolReserves:   dec.U64(),
			InitialVirtualTokenReserves: dec.U64(),
			InitialRealTokenReserves:    dec.U64(),
			TotalTokenSupply:            dec.U64(),
		},
		TokenDecimals: dec.U8(),
	}
	if err := dec.Err(); err != nil {
		return GlobalAccount{}, fmt.Errorf("decode global account: %w", err)
	}
	return global, nil
}

// BasisPoints is a fee expressed in hundredths of a percent.
type BasisPoints uint16

// PartOf returns the fee portion of value.
func (bp BasisPoints) PartOf(value uint64) uint64 {
	return value * uint64(bp) / 10000
}

// OnTopOf returns the fee to add on top of value.
func (bp BasisPoints) OnTopOf(value uint64) uint64 {
	return value * uint64(bp) / 10000
}

// FeeConfig is the program's trade fee settings.
type FeeConfig struct {
	OnBuy  BasisPoints
	OnSell BasisPoints
}

// FeeAccount is the program fee PDA content.
type FeeAccount struct {
	Config FeeConfig
	Bump   uint8
}

// ParseFeeAccount decodes the fee account.
func ParseFeeAccount(raw []byte) (FeeAccount, error) {
	dec := solana.NewDecoder(raw)
	if err := checkDiscriminator(dec, "FeeAccount"); err != nil {
		return FeeAccount{}, err
	}
	fee := FeeAccount{
		Config: FeeConfig{
			OnBuy:  BasisPoints(dec.U16()),
			OnSell: BasisPoints(dec.U16()),
		},
		Bump: dec.U8(),
	}
	if err := dec.Err(); err != nil {
		return FeeAccount{}, fmt.Errorf("decode fee account: %w", err)
	}
	return fee, nil
}
