// Package instructions maps (project, stage, action) onto ordered on-chain
// instruction lists for the native program and the third-party programs it
// composes with. Everything here is pure: for a fixed project row and
// cached-meta snapshot the output is identical across invocations.
package instructions

import (
	"time"

	"github.com/KongzTech/moonzip-backend/internal/solana"
)

// Config fixes the program ids and economic parameters of the builder.
type Config struct {
	MzipProgram    solana.Pubkey `yaml:"mzip_program"`
	PumpfunProgram solana.Pubkey `yaml:"pumpfun_program"`
	// Authority is the backend's program authority key.
	Authority solana.Pubkey `yaml:"authority"`

	SerumOpenbookProgram solana.Pubkey `yaml:"serum_openbook_program"`
	LockerProgram        solana.Pubkey `yaml:"locker_program"`
	RaydiumProgram       solana.Pubkey `yaml:"raydium_program"`
	MemoProgram          solana.Pubkey `yaml:"memo_program"`
	MplMetadataProgram   solana.Pubkey `yaml:"mpl_metadata_program"`
	// RaydiumFeeDestination receives the AMM pool creation fee.
	RaydiumFeeDestination solana.Pubkey `yaml:"raydium_fee_destination"`

	SolsToGraduate        uint64 `yaml:"sols_to_graduate"`
	RaydiumLiquidity      uint64 `yaml:"raydium_liquidity"`
	CreatorGraduateReward uint64 `yaml:"creator_graduate_reward"`
	PumpfunInitPrice      uint64 `yaml:"pumpfun_init_price"`

	// AllowedLaunchPeriods bounds static pool launch windows, seconds.
	AllowedLaunchPeriods []int64 `yaml:"allowed_launch_periods"`
	// AllowedLockPeriods bounds dev purchase lock windows, seconds.
	// Zero means delivery without locking.
	AllowedLockPeriods []int64 `yaml:"allowed_lock_periods"`
}

// Normalize fills defaults for everything the deployment did not override.
func (c Config) Normalize() Config {
	defaultKey := func(target *solana.Pubkey, value string) {
		if target.IsZero() {
			*target = solana.MustParsePubkey(value)
		}
	}
	defaultKey(&c.SerumOpenbookProgram, "srmqPvymJeFKQ4zGQed1GFppgkRHL9kaELCbyksJtPX")
	defaultKey(&c.LockerProgram, "LocpQgucEQHbqNABEYvBvwoxCPsSbG91A1QaQhQQqjn")
	defaultKey(&c.RaydiumProgram, "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	defaultKey(&c.MemoProgram, "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
	defaultKey(&c.MplMetadataProgram, "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
	defaultKey(&c.RaydiumFeeDestination, "7YttLkHDoNj9wyDur5pM1ejNaAvT9X4eqaYcHQqtj2G5")
	defaultKey(&c.PumpfunProgram, "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	if c.SolsToGraduate == 0 {
		c.SolsToGraduate = 85 * solana.LamportsPerSol
	}
	if c.RaydiumLiquidity == 0 {
		c.RaydiumLiquidity = 79 * solana.LamportsPerSol
	}
	if c.CreatorGraduateReward == 0 {
		c.CreatorGraduateReward = solana.SolToLamports(0.5)
	}
	if c.PumpfunInitPrice == 0 {
		c.PumpfunInitPrice = solana.SolToLamports(0.022)
	}
	if len(c.AllowedLaunchPeriods) == 0 {
		hour := int64(time.Hour / time.Second)
		c.AllowedLaunchPeriods = []int64{hour, 12 * hour, 24 * hour}
	}
	if len(c.AllowedLockPeriods) == 0 {
		day := int64(24 * time.Hour / time.Second)
		c.AllowedLockPeriods = []int64{0, day, 7 * day, 30 * day}
	}
	return c
}
