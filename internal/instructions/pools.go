package instructions

import (
	"context"
	"fmt"

	"github.com/KongzTech/moonzip-backend/internal/mzip"
	"github.com/KongzTech/moonzip-backend/internal/pumpfun"
	"github.com/KongzTech/moonzip-backend/internal/solana"
	"github.com/KongzTech/moonzip-backend/internal/storage"
)

// InitialPurchase sizes a buy executed right after pool creation.
type InitialPurchase struct {
	User solana.Pubkey
	Sols uint64
}

// CurveCreate parameterizes curve pool initialization.
type CurveCreate struct {
	Mint            solana.Pubkey
	DevPurchase     *InitialPurchase
	PostDevPurchase *InitialPurchase
	Metadata        *storage.StoredTokenMeta
}

func (c CurveCreate) deployedURL() (string, error) {
	if c.Metadata == nil || c.Metadata.DeployedURL == nil {
		return "", fmt.Errorf("invariant: metadata is not deployed yet")
	}
	return *c.Metadata.DeployedURL, nil
}

// InitStaticPool emits the static pool creation, parameterized by the
// close conditions from the deploy schema.
func (o *Ops) InitStaticPool(poolMint solana.Pubkey) ([]solana.Instruction, error) {
	staticPool := o.project.DeploySchema.StaticPool
	if staticPool == nil {
		return nil, fmt.Errorf("invariant: static pool config missing")
	}
	pool := mzip.StaticPoolAddress(o.config.MzipProgram, poolMint)
	poolMintAccount := solana.AssociatedTokenAddress(pool, poolMint)

	finishTs := uint64(staticPool.LaunchTs)
	maxLamports := o.config.SolsToGraduate
	data := anchorData("create_static_pool", func(enc *solana.Encoder) {
		id := o.project.ChainID()
		enc.Raw(id[:])
		enc.OptionU64(nil) // min_purchase_lamports
		enc.OptionU64(&maxLamports)
		enc.OptionU64(&finishTs)
	})

	return []solana.Instruction{{
		ProgramID: o.config.MzipProgram,
		Accounts: []solana.AccountMeta{
			solana.WritableSignerMeta(o.config.Authority),
			solana.WritableMeta(o.projectAddress()),
			solana.WritableSignerMeta(poolMint),
			solana.WritableMeta(poolMintAccount),
			solana.WritableMeta(pool),
			solana.Meta(solana.SystemProgram),
			solana.Meta(solana.AssociatedTokenProgram),
			solana.Meta(solana.TokenProgram),
		},
		Data: data,
	}}, nil
}

// GraduateStaticPool closes the static pool and sweeps its lamports to the
// authority.
func (o *Ops) GraduateStaticPool() ([]solana.Instruction, error) {
	mint, err := o.staticPoolMint()
	if err != nil {
		return nil, err
	}
	pool := mzip.StaticPoolAddress(o.config.MzipProgram, mint)
	return []solana.Instruction{{
		ProgramID: o.config.MzipProgram,
		Accounts: []solana.AccountMeta{
			solana.WritableSignerMeta(o.config.Authority),
			solana.WritableMeta(o.config.Authority),
			solana.WritableMeta(o.projectAddress()),
			solana.WritableMeta(pool),
			solana.Meta(solana.SystemProgram),
			solana.Meta(solana.AssociatedTokenProgram),
			solana.Meta(solana.TokenProgram),
		},
		Data: anchorData("graduate_static_pool", nil),
	}}, nil
}

// InitTransmuter creates the 1:1 exchange account between the static pool
// token and the curve token. Emitted only when a static pool preceded the
// curve pool.
func (o *Ops) InitTransmuter() ([]solana.Instruction, error) {
	if o.project.DeploySchema.StaticPool == nil {
		return nil, nil
	}
	fromMint, err := o.staticPoolMint()
	if err != nil {
		return nil, err
	}
	toMint, err := o.curveMint()
	if err != nil {
		return nil, err
	}
	donor := o.config.Authority
	transmuter := mzip.TransmuterAddress(o.config.MzipProgram, fromMint, toMint)

	base := []solana.AccountMeta{
		solana.WritableSignerMeta(o.config.Authority),
		solana.Meta(fromMint),
		solana.Meta(toMint),
		solana.WritableMeta(solana.AssociatedTokenAddress(donor, toMint)),
		solana.SignerMeta(donor),
		solana.WritableMeta(solana.AssociatedTokenAddress(transmuter, toMint)),
		solana.WritableMeta(transmuter),
		solana.Meta(solana.SystemProgram),
		solana.Meta(solana.TokenProgram),
		solana.Meta(solana.AssociatedTokenProgram),
	}

	switch o.project.DeploySchema.CurvePool {
	case storage.CurveVariantPumpfun:
		accounts := append(base, solana.Meta(pumpfun.BondingCurve(o.config.PumpfunProgram, toMint)))
		return []solana.Instruction{{
			ProgramID: o.config.MzipProgram,
			Accounts:  accounts,
			Data:      anchorData("init_transmuter_for_pumpfun_curve", nil),
		}}, nil
	default:
		accounts := append(base, solana.Meta(mzip.CurvedPoolAddress(o.config.MzipProgram, toMint)))
		return []solana.Instruction{{
			ProgramID: o.config.MzipProgram,
			Accounts:  accounts,
			Data:      anchorData("init_transmuter_for_curve", nil),
		}}, nil
	}
}

// InitMzipPool emits the native curve pool creation plus the optional dev
// and post-dev buys and the metadata registration.
func (o *Ops) InitMzipPool(action CurveCreate) ([]solana.Instruction, error) {
	pool := mzip.CurvedPoolAddress(o.config.MzipProgram, action.Mint)
	poolTokenAccount := solana.AssociatedTokenAddress(pool, action.Mint)

	var result []solana.Instruction
	create := solana.Instruction{
		ProgramID: o.config.MzipProgram,
		Accounts: []solana.AccountMeta{
			solana.WritableSignerMeta(o.config.Authority),
			solana.WritableMeta(o.projectAddress()),
			solana.Meta(mzip.GlobalAddress(o.config.MzipProgram)),
			solana.WritableMeta(action.Mint),
			solana.WritableMeta(poolTokenAccount),
			solana.WritableMeta(pool),
			solana.Meta(solana.SystemProgram),
			solana.Meta(solana.TokenProgram),
			solana.Meta(solana.AssociatedTokenProgram),
		},
		Data: anchorData("create_curved_pool", func(enc *solana.Encoder) {
			id := o.project.ChainID()
			enc.Raw(id[:])
		}),
	}
	result = append(result, create)

	if action.DevPurchase != nil {
		buy, err := o.curveBuyInstruction(action.Mint, action.DevPurchase.User, action.DevPurchase.Sols, 0)
		if err != nil {
			return nil, err
		}
		result = append(result, buy...)
	}
	if action.PostDevPurchase != nil {
		buy, err := o.curveBuyInstruction(action.Mint, action.PostDevPurchase.User, action.PostDevPurchase.Sols, 0)
		if err != nil {
			return nil, err
		}
		result = append(result, buy...)
	}

	uri, err := action.deployedURL()
	if err != nil {
		return nil, err
	}
	result = append(result, o.mplCreateMetadata(action.Mint, action.Metadata.Name, action.Metadata.Symbol, uri))
	return result, nil
}

// InitPumpfunPool emits the external AMM create plus the optional buys and
// the manual project graduation.
func (o *Ops) InitPumpfunPool(ctx context.Context, action CurveCreate) ([]solana.Instruction, error) {
	meta, err := o.pumpfunMetaSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("await pumpfun meta: %w", err)
	}

	programID := o.config.PumpfunProgram
	bondingCurve := pumpfun.BondingCurve(programID, action.Mint)
	associatedBondingCurve := solana.AssociatedTokenAddress(bondingCurve, action.Mint)
	uri, err := action.deployedURL()
	if err != nil {
		return nil, err
	}

	var result []solana.Instruction
	result = append(result, solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			solana.WritableSignerMeta(action.Mint),
			solana.Meta(pumpfun.MintAuthority(programID)),
			solana.WritableMeta(bondingCurve),
			solana.WritableMeta(associatedBondingCurve),
			solana.Meta(pumpfun.GlobalAddress(programID)),
			solana.Meta(o.config.MplMetadataProgram),
			solana.WritableMeta(o.mplMetadataAccount(action.Mint)),
			solana.WritableSignerMeta(o.config.Authority),
			solana.Meta(solana.SystemProgram),
			solana.Meta(solana.TokenProgram),
			solana.Meta(solana.AssociatedTokenProgram),
			solana.Meta(solana.SysvarRent),
			solana.Meta(pumpfun.EventAuthority(programID)),
			solana.Meta(programID),
		},
		Data: anchorData("create", func(enc *solana.Encoder) {
			enc.String(action.Metadata.Name)
			enc.String(action.Metadata.Symbol)
			enc.String(uri)
		}),
	})

	if action.DevPurchase != nil || action.PostDevPurchase != nil {
		result = append(result, solana.CreateAssociatedTokenAccount(
			o.config.Authority, o.config.Authority, action.Mint))
	}

	// Sequential buys reprice against the moving curve snapshot.
	curve := pumpfun.InitialCurve(meta.Global)
	appendBuy := func(purchase *InitialPurchase) {
		if purchase == nil {
			return
		}
		params := curve.BuyFixedSols(purchase.Sols)
		curve.CommitBuy(params.MaxSolCost, params.Tokens)
		result = append(result, o.pumpfunBuyInstruction(meta.Global, action.Mint, purchase.User, params))
	}
	appendBuy(action.DevPurchase)
	appendBuy(action.PostDevPurchase)

	graduate, err := o.ManualProjectGraduate()
	if err != nil {
		return nil, err
	}
	return append(result, graduate...), nil
}

func (o *Ops) pumpfunBuyInstruction(global pumpfun.Global, mint, user solana.Pubkey, params pumpfun.BuyParams) solana.Instruction {
	programID := o.config.PumpfunProgram
	bondingCurve := pumpfun.BondingCurve(programID, mint)
	return solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			solana.Meta(pumpfun.GlobalAddress(programID)),
			solana.WritableMeta(global.FeeRecipient),
			solana.Meta(mint),
			solana.WritableMeta(bondingCurve),
			solana.WritableMeta(solana.AssociatedTokenAddress(bondingCurve, mint)),
			solana.WritableMeta(solana.AssociatedTokenAddress(user, mint)),
			solana.WritableSignerMeta(user),
			solana.Meta(solana.SystemProgram),
			solana.Meta(solana.TokenProgram),
			solana.Meta(solana.SysvarRent),
			solana.Meta(pumpfun.EventAuthority(programID)),
			solana.Meta(programID),
		},
		Data: anchorData("buy", func(enc *solana.Encoder) {
			enc.U64(params.Tokens)
			enc.U64(params.MaxSolCost)
		}),
	}
}

// GraduateCurvePool closes the native curve pool ahead of the external
// exchange deployment.
func (o *Ops) GraduateCurvePool() ([]solana.Instruction, error) {
	if o.project.DeploySchema.CurvePool == storage.CurveVariantPumpfun {
		return nil, fmt.Errorf("pumpfun curve pools could not be graduated")
	}
	mint, err := o.curveMint()
	if err != nil {
		return nil, err
	}
	pool := mzip.CurvedPoolAddress(o.config.MzipProgram, mint)
	return []solana.Instruction{{
		ProgramID: o.config.MzipProgram,
		Accounts: []solana.AccountMeta{
			solana.WritableSignerMeta(o.config.Authority),
			solana.WritableMeta(o.projectAddress()),
			solana.WritableMeta(mzip.FeeAddress(o.config.MzipProgram)),
			solana.WritableMeta(o.config.Authority),
			solana.WritableMeta(pool),
			solana.Meta(solana.SystemProgram),
			solana.Meta(solana.AssociatedTokenProgram),
			solana.Meta(solana.TokenProgram),
		},
		Data: anchorData("graduate_curved_pool", func(enc *solana.Encoder) {
			id := o.project.ChainID()
			enc.Raw(id[:])
		}),
	}}, nil
}

// Buy builds the stage-appropriate purchase for a user.
func (o *Ops) Buy(ctx context.Context, user solana.Pubkey, sols uint64, minTokenOutput *uint64) ([]solana.Instruction, error) {
	minOut := uint64(0)
	if minTokenOutput != nil {
		minOut = *minTokenOutput
	}
	switch o.project.Stage {
	case storage.StageOnStaticPool:
		return o.buyFromStaticPool(user, sols)
	case storage.StageOnCurvePool:
		return o.buyFromCurvePool(user, sols, minOut)
	case storage.StageGraduated:
		if o.project.DeploySchema.CurvePool == storage.CurveVariantPumpfun {
			return nil, fmt.Errorf("buy from pumpfun after graduation: %w", ErrUnimplemented)
		}
		return nil, fmt.Errorf("buy from external dex: %w", ErrUnimplemented)
	default:
		return nil, fmt.Errorf("unable to buy from project: stage mismatch: %s", o.project.Stage)
	}
}

// Sell builds the stage-appropriate sale for a user.
func (o *Ops) Sell(ctx context.Context, user solana.Pubkey, tokens uint64, minSolOutput *uint64) ([]solana.Instruction, error) {
	minOut := uint64(0)
	if minSolOutput != nil {
		minOut = *minSolOutput
	}
	switch o.project.Stage {
	case storage.StageOnStaticPool:
		return o.sellToStaticPool(user, tokens)
	case storage.StageOnCurvePool:
		return o.sellFromCurvePool(user, tokens, minOut)
	default:
		return nil, fmt.Errorf("unable to sell to project: stage mismatch: %s", o.project.Stage)
	}
}

func (o *Ops) buyFromStaticPool(user solana.Pubkey, sols uint64) ([]solana.Instruction, error) {
	mint, err := o.staticPoolMint()
	if err != nil {
		return nil, err
	}
	pool := mzip.StaticPoolAddress(o.config.MzipProgram, mint)
	data := anchorData("buy_from_static_pool", func(enc *solana.Encoder) {
		id := o.project.ChainID()
		enc.Raw(id[:])
		enc.U64(sols)
	})
	return []solana.Instruction{{
		ProgramID: o.config.MzipProgram,
		Accounts:  o.staticPoolTradeAccounts(user, mint, pool),
		Data:      data,
	}}, nil
}

func (o *Ops) sellToStaticPool(user solana.Pubkey, tokens uint64) ([]solana.Instruction, error) {
	mint, err := o.staticPoolMint()
	if err != nil {
		return nil, err
	}
	pool := mzip.StaticPoolAddress(o.config.MzipProgram, mint)
	data := anchorData("sell_to_static_pool", func(enc *solana.Encoder) {
		id := o.project.ChainID()
		enc.Raw(id[:])
		enc.U64(tokens)
	})
	return []solana.Instruction{{
		ProgramID: o.config.MzipProgram,
		Accounts:  o.staticPoolTradeAccounts(user, mint, pool),
		Data:      data,
	}}, nil
}

func (o *Ops) staticPoolTradeAccounts(user, mint, pool solana.Pubkey) []solana.AccountMeta {
	return []solana.AccountMeta{
		solana.SignerMeta(o.config.Authority),
		solana.WritableMeta(mzip.FeeAddress(o.config.MzipProgram)),
		solana.WritableMeta(o.projectAddress()),
		solana.WritableSignerMeta(user),
		solana.WritableMeta(mint),
		solana.WritableMeta(solana.AssociatedTokenAddress(user, mint)),
		solana.WritableMeta(solana.AssociatedTokenAddress(pool, mint)),
		solana.WritableMeta(pool),
		solana.Meta(solana.SystemProgram),
		solana.Meta(solana.TokenProgram),
		solana.Meta(solana.AssociatedTokenProgram),
	}
}

func (o *Ops) buyFromCurvePool(user solana.Pubkey, sols, minTokenOutput uint64) ([]solana.Instruction, error) {
	mint, err := o.curveMint()
	if err != nil {
		return nil, err
	}
	var result []solana.Instruction
	if o.project.DeploySchema.StaticPool != nil {
		transmute, err := o.TransmuteIdempotent(user)
		if err != nil {
			return nil, err
		}
		result = append(result, transmute...)
	}
	buy, err := o.curveBuyInstruction(mint, user, sols, minTokenOutput)
	if err != nil {
		return nil, err
	}
	return append(result, buy...), nil
}

func (o *Ops) curveBuyInstruction(mint, user solana.Pubkey, sols, minTokenOutput uint64) ([]solana.Instruction, error) {
	pool := mzip.CurvedPoolAddress(o.config.MzipProgram, mint)
	data := anchorData("buy_from_curved_pool", func(enc *solana.Encoder) {
		id := o.project.ChainID()
		enc.Raw(id[:])
		enc.U64(sols)
		enc.U64(minTokenOutput)
	})
	return []solana.Instruction{{
		ProgramID: o.config.MzipProgram,
		Accounts:  o.curvePoolTradeAccounts(user, mint, pool),
		Data:      data,
	}}, nil
}

func (o *Ops) sellFromCurvePool(user solana.Pubkey, tokens, minSolOutput uint64) ([]solana.Instruction, error) {
	mint, err := o.curveMint()
	if err != nil {
		return nil, err
	}
	var result []solana.Instruction
	if o.project.DeploySchema.StaticPool != nil {
		transmute, err := o.TransmuteIdempotent(user)
		if err != nil {
			return nil, err
		}
		result = append(result, transmute...)
	}
	pool := mzip.CurvedPoolAddress(o.config.MzipProgram, mint)
	data := anchorData("sell_from_curved_pool", func(enc *solana.Encoder) {
		id := o.project.ChainID()
		enc.Raw(id[:])
		enc.U64(tokens)
		enc.U64(minSolOutput)
	})
	return append(result, solana.Instruction{
		ProgramID: o.config.MzipProgram,
		Accounts:  o.curvePoolTradeAccounts(user, mint, pool),
		Data:      data,
	}), nil
}

func (o *Ops) curvePoolTradeAccounts(user, mint, pool solana.Pubkey) []solana.AccountMeta {
	return []solana.AccountMeta{
		solana.WritableSignerMeta(o.config.Authority),
		solana.WritableMeta(mzip.FeeAddress(o.config.MzipProgram)),
		solana.WritableMeta(o.projectAddress()),
		solana.WritableMeta(mint),
		solana.WritableMeta(solana.AssociatedTokenAddress(pool, mint)),
		solana.WritableMeta(pool),
		solana.WritableMeta(solana.AssociatedTokenAddress(user, mint)),
		solana.WritableSignerMeta(user),
		solana.Meta(solana.SystemProgram),
		solana.Meta(solana.TokenProgram),
		solana.Meta(solana.AssociatedTokenProgram),
	}
}

// TransmuteIdempotent exchanges the user's static pool tokens 1:1 for
// curve tokens; a no-op on chain if already performed.
func (o *Ops) TransmuteIdempotent(user solana.Pubkey) ([]solana.Instruction, error) {
	fromMint, err := o.staticPoolMint()
	if err != nil {
		return nil, err
	}
	toMint, err := o.curveMint()
	if err != nil {
		return nil, err
	}
	transmuter := mzip.TransmuterAddress(o.config.MzipProgram, fromMint, toMint)
	return []solana.Instruction{{
		ProgramID: o.config.MzipProgram,
		Accounts: []solana.AccountMeta{
			solana.WritableSignerMeta(o.config.Authority),
			solana.WritableSignerMeta(user),
			solana.Meta(fromMint),
			solana.Meta(toMint),
			solana.WritableMeta(solana.AssociatedTokenAddress(user, fromMint)),
			solana.WritableMeta(solana.AssociatedTokenAddress(user, toMint)),
			solana.WritableMeta(solana.AssociatedTokenAddress(transmuter, toMint)),
			solana.WritableMeta(transmuter),
			solana.Meta(solana.SystemProgram),
			solana.Meta(solana.TokenProgram),
			solana.Meta(solana.AssociatedTokenProgram),
			solana.Meta(o.config.MzipProgram),
		},
		Data: anchorData("transmute_idempotent", nil),
	}}, nil
}
