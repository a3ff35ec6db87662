package chainsync

import "github.com/KongzTech/moonzip-backend/internal/solana"

// Config tunes the parse pipeline.
type Config struct {
	// MzipProgram and PumpfunProgram are the tracked program ids.
	MzipProgram    solana.Pubkey `yaml:"mzip_program"`
	PumpfunProgram solana.Pubkey `yaml:"pumpfun_program"`

	// AllowedMintSuffix drops external AMM trade events whose mint's
	// textual form does not end with the suffix. Empty disables the filter.
	AllowedMintSuffix string `yaml:"allowed_mint_suffix"`
}

// TrackedPrograms lists the program ids the subscription filters on.
func (c Config) TrackedPrograms() []solana.Pubkey {
	return []solana.Pubkey{c.MzipProgram, c.PumpfunProgram}
}
