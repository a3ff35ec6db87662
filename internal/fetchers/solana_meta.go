package fetchers

import (
	"context"
	"fmt"

	"github.com/KongzTech/moonzip-backend/internal/solana"
)

// SolanaMeta is the frequently refreshed chain-global state consumed by the
// instruction builder and executor.
type SolanaMeta struct {
	Marker          uint64
	Rent            solana.Rent
	RecentBlockhash solana.Hash
}

// LessByMarker orders versioned chain snapshots by slot marker.
func LessByMarker[T interface{ Slot() uint64 }](old, new T) bool {
	return old.Slot() < new.Slot()
}

// Slot implements the marker ordering.
func (m SolanaMeta) Slot() uint64 { return m.Marker }

// SolanaMetaFetcher polls rent and the recent blockhash.
type SolanaMetaFetcher struct {
	Pool *solana.Pool

	rent *solana.Rent
}

// Name implements Fetcher.
func (f *SolanaMetaFetcher) Name() string { return "solana-meta" }

// Init fetches the rent sysvar once; rent parameters do not drift.
func (f *SolanaMetaFetcher) Init(ctx context.Context) error {
	client, err := f.Pool.RPC().Use(ctx)
	if err != nil {
		return err
	}
	account, err := client.GetAccountData(ctx, solana.SysvarRent, solana.CommitmentFinalized)
	if err != nil {
		return fmt.Errorf("fetch rent sysvar: %w", err)
	}
	rent, err := solana.ParseRent(account.Data)
	if err != nil {
		return err
	}
	f.rent = &rent
	return nil
}

// Fetch implements Fetcher.
func (f *SolanaMetaFetcher) Fetch(ctx context.Context) (SolanaMeta, error) {
	if f.rent == nil {
		return SolanaMeta{}, fmt.Errorf("rent not initialized")
	}
	client, err := f.Pool.RPC().Use(ctx)
	if err != nil {
		return SolanaMeta{}, err
	}
	blockhash, slot, err := client.GetLatestBlockhash(ctx, solana.CommitmentConfirmed)
	if err != nil {
		return SolanaMeta{}, err
	}
	return SolanaMeta{
		Marker:          slot,
		Rent:            *f.rent,
		RecentBlockhash: blockhash,
	}, nil
}
