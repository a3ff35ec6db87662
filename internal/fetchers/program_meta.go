package fetchers

import (
	"context"
	"fmt"

	"github.com/KongzTech/moonzip-backend/internal/mzip"
	"github.com/KongzTech/moonzip-backend/internal/pumpfun"
	"github.com/KongzTech/moonzip-backend/internal/solana"
)

// MzipMeta mirrors the native program's global curve config and fee account.
type MzipMeta struct {
	Marker uint64
	Global mzip.GlobalAccount
	Fee    mzip.FeeAccount
}

// Slot implements the marker ordering.
func (m MzipMeta) Slot() uint64 { return m.Marker }

// MzipMetaFetcher refreshes the native program global state.
type MzipMetaFetcher struct {
	Pool      *solana.Pool
	ProgramID solana.Pubkey
}

// Name implements Fetcher.
func (f *MzipMetaFetcher) Name() string { return "mzip-meta" }

// Init implements Fetcher.
func (f *MzipMetaFetcher) Init(ctx context.Context) error { return nil }

// Fetch implements Fetcher.
func (f *MzipMetaFetcher) Fetch(ctx context.Context) (MzipMeta, error) {
	client, err := f.Pool.RPC().Use(ctx)
	if err != nil {
		return MzipMeta{}, err
	}
	keys := []solana.Pubkey{
		mzip.GlobalAddress(f.ProgramID),
		mzip.FeeAddress(f.ProgramID),
	}
	accounts, slot, err := client.GetMultipleAccounts(ctx, keys, solana.CommitmentFinalized)
	if err != nil {
		return MzipMeta{}, err
	}
	if accounts[0] == nil {
		return MzipMeta{}, fmt.Errorf("no global curve pool account yet")
	}
	if accounts[1] == nil {
		return MzipMeta{}, fmt.Errorf("no fee account yet")
	}
	global, err := mzip.ParseGlobalAccount(accounts[0])
	if err != nil {
		return MzipMeta{}, err
	}
	fee, err := mzip.ParseFeeAccount(accounts[1])
	if err != nil {
		return MzipMeta{}, err
	}
	return MzipMeta{Marker: slot, Global: global, Fee: fee}, nil
}

// PumpfunMeta mirrors the external AMM's global config account.
type PumpfunMeta struct {
	Marker uint64
	Global pumpfun.Global
}

// Slot implements the marker ordering.
func (m PumpfunMeta) Slot() uint64 { return m.Marker }

// PumpfunMetaFetcher refreshes the external AMM global state.
type PumpfunMetaFetcher struct {
	Pool      *solana.Pool
	ProgramID solana.Pubkey
}

// Name implements Fetcher.
func (f *PumpfunMetaFetcher) Name() string { return "pumpfun-meta" }

// Init implements Fetcher.
func (f *PumpfunMetaFetcher) Init(ctx context.Context) error { return nil }

// Fetch implements Fetcher.
func (f *PumpfunMetaFetcher) Fetch(ctx context.Context) (PumpfunMeta, error) {
	client, err := f.Pool.RPC().Use(ctx)
	if err != nil {
		return PumpfunMeta{}, err
	}
	account, err := client.GetAccountData(ctx, pumpfun.GlobalAddress(f.ProgramID), solana.CommitmentFinalized)
	if err != nil {
		return PumpfunMeta{}, fmt.Errorf("fetch pumpfun global: %w", err)
	}
	global, err := pumpfun.ParseGlobal(account.Data)
	if err != nil {
		return PumpfunMeta{}, err
	}
	return PumpfunMeta{Marker: account.Slot, Global: global}, nil
}
