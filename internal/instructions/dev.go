package instructions

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/KongzTech/moonzip-backend/internal/mzip"
	"github.com/KongzTech/moonzip-backend/internal/pumpfun"
	"github.com/KongzTech/moonzip-backend/internal/solana"
	"github.com/KongzTech/moonzip-backend/internal/storage"
)

var escrowPrefix = []byte("escrow")

func escrowAddress(base, lockerProgram solana.Pubkey) solana.Pubkey {
	key, _, _ := solana.FindProgramAddress([][]byte{escrowPrefix, base[:]}, lockerProgram)
	return key
}

func (o *Ops) devPurchase() (*storage.DevPurchase, error) {
	purchase := o.project.DeploySchema.DevPurchase
	if purchase == nil {
		return nil, fmt.Errorf("invariant: dev purchase is not enabled for project")
	}
	return purchase, nil
}

// DevTokensAmount prices the dev purchase against the curve's opening
// state, fees included.
func (o *Ops) DevTokensAmount(ctx context.Context) (uint64, error) {
	purchase, err := o.devPurchase()
	if err != nil {
		return 0, err
	}
	switch o.project.DeploySchema.CurvePool {
	case storage.CurveVariantPumpfun:
		meta, err := o.pumpfunMetaSnapshot(ctx)
		if err != nil {
			return 0, err
		}
		curve := pumpfun.InitialCurve(meta.Global)
		return curve.BuyFixedSols(purchase.Amount).Tokens, nil
	default:
		meta, err := o.mzipMetaSnapshot(ctx)
		if err != nil {
			return 0, err
		}
		state := mzip.CurveStateFromConfig(meta.Global.Curve)
		return state.BuyFixedSolsWithFee(purchase.Amount, meta.Fee.Config.OnBuy), nil
	}
}

// DeliverDevTokens transfers the dev purchase straight to the owner; used
// when no lock period is configured.
func (o *Ops) DeliverDevTokens(ctx context.Context) ([]solana.Instruction, error) {
	mint, err := o.curveMint()
	if err != nil {
		return nil, err
	}
	owner, err := o.project.Owner.Pubkey()
	if err != nil {
		return nil, err
	}
	tokens, err := o.DevTokensAmount(ctx)
	if err != nil {
		return nil, err
	}
	sender := o.config.Authority
	return []solana.Instruction{
		solana.CreateAssociatedTokenAccount(sender, owner, mint),
		solana.TokenTransfer(
			solana.AssociatedTokenAddress(sender, mint),
			solana.AssociatedTokenAddress(owner, mint),
			sender,
			tokens,
		),
	}, nil
}

// LockDev escrows the dev purchase into a vesting lock that cliffs after
// the configured period.
func (o *Ops) LockDev(ctx context.Context, now time.Time) ([]solana.Instruction, error) {
	purchase, err := o.devPurchase()
	if err != nil {
		return nil, err
	}
	if purchase.LockPeriod <= 0 {
		return nil, fmt.Errorf("zero period must be delivered immediately, without locking")
	}
	mint, err := o.curveMint()
	if err != nil {
		return nil, err
	}
	owner, err := o.project.Owner.Pubkey()
	if err != nil {
		return nil, err
	}
	base, ok := o.project.DevLock()
	if !ok {
		return nil, fmt.Errorf("invariant: no dev lock keypair provided")
	}
	tokens, err := o.DevTokensAmount(ctx)
	if err != nil {
		return nil, err
	}

	programID := o.config.LockerProgram
	sender := o.config.Authority
	escrow := escrowAddress(base.Pubkey(), programID)
	cliffTime := uint64(now.Unix() + purchase.LockPeriod)

	data := anchorData("create_vesting_escrow_v2", func(enc *solana.Encoder) {
		enc.U64(cliffTime) // vesting_start_time
		enc.U64(cliffTime) // cliff_time
		enc.U64(1)         // frequency
		enc.U64(0)         // cliff_unlock_amount
		enc.U64(tokens)    // amount_per_period
		enc.U64(1)         // number_of_period
		enc.U8(0)          // update_recipient_mode
		enc.U8(0)          // cancel_mode
		enc.U8(0)          // remaining_accounts_info: None
	})

	return []solana.Instruction{
		solana.CreateAssociatedTokenAccount(sender, escrow, mint),
		{
			ProgramID: programID,
			Accounts: []solana.AccountMeta{
				solana.WritableSignerMeta(base.Pubkey()),
				solana.WritableMeta(escrow),
				solana.Meta(mint),
				solana.WritableMeta(solana.AssociatedTokenAddress(escrow, mint)),
				solana.WritableSignerMeta(sender),
				solana.WritableMeta(solana.AssociatedTokenAddress(sender, mint)),
				solana.Meta(owner),
				solana.Meta(mzip.EventAuthority(programID)),
				solana.Meta(programID),
				solana.Meta(solana.SystemProgram),
				solana.Meta(solana.TokenProgram),
			},
			Data: data,
		},
	}, nil
}

// ClaimDevLock withdraws whatever the vesting escrow has unlocked for the
// owner.
func (o *Ops) ClaimDevLock() ([]solana.Instruction, error) {
	purchase, err := o.devPurchase()
	if err != nil {
		return nil, err
	}
	if purchase.LockPeriod <= 0 {
		return nil, fmt.Errorf("zero period must be delivered immediately, without locking")
	}
	mint, err := o.curveMint()
	if err != nil {
		return nil, err
	}
	owner, err := o.project.Owner.Pubkey()
	if err != nil {
		return nil, err
	}
	base, ok := o.project.DevLock()
	if !ok {
		return nil, fmt.Errorf("invariant: no dev lock keypair provided")
	}

	programID := o.config.LockerProgram
	escrow := escrowAddress(base.Pubkey(), programID)

	data := anchorData("claim_v2", func(enc *solana.Encoder) {
		enc.U64(math.MaxUint64) // max_amount
		enc.U8(0)               // remaining_accounts_info: None
	})

	return []solana.Instruction{
		solana.CreateAssociatedTokenAccountIdempotent(owner, owner, mint),
		{
			ProgramID: programID,
			Accounts: []solana.AccountMeta{
				solana.WritableMeta(escrow),
				solana.Meta(mint),
				solana.WritableMeta(solana.AssociatedTokenAddress(escrow, mint)),
				solana.WritableMeta(solana.AssociatedTokenAddress(owner, mint)),
				solana.WritableSignerMeta(owner),
				solana.Meta(mzip.EventAuthority(programID)),
				solana.Meta(o.config.MemoProgram),
				solana.Meta(programID),
				solana.Meta(solana.TokenProgram),
			},
			Data: data,
		},
	}, nil
}
