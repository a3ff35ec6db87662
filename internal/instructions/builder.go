package instructions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KongzTech/moonzip-backend/internal/fetchers"
	"github.com/KongzTech/moonzip-backend/internal/mzip"
	"github.com/KongzTech/moonzip-backend/internal/solana"
	"github.com/KongzTech/moonzip-backend/internal/storage"
)

// ErrUnimplemented marks operations the backend does not support yet. It is
// an error kind, never a panic.
var ErrUnimplemented = errors.New("unimplemented operation")

// metaWaitTimeout bounds how long builder calls wait for the first cached
// meta snapshot.
const metaWaitTimeout = 10 * time.Second

// Builder creates per-project operation sets from the cached chain meta.
type Builder struct {
	Config      Config
	SolanaMeta  *fetchers.Receiver[fetchers.SolanaMeta]
	MzipMeta    *fetchers.Receiver[fetchers.MzipMeta]
	PumpfunMeta *fetchers.Receiver[fetchers.PumpfunMeta]
}

// ForProject snapshots the cached meta and binds the builder to a project.
func (b *Builder) ForProject(ctx context.Context, project *storage.StoredProject) (*Ops, error) {
	waitCtx, cancel := context.WithTimeout(ctx, metaWaitTimeout)
	defer cancel()
	meta, err := b.SolanaMeta.Get(waitCtx)
	if err != nil {
		return nil, fmt.Errorf("await solana meta: %w", err)
	}
	return &Ops{
		project:     project,
		config:      &b.Config,
		rent:        meta.Rent,
		mzipMeta:    b.MzipMeta,
		pumpfunMeta: b.PumpfunMeta,
	}, nil
}

// Ops builds the ordered instruction lists for one project.
type Ops struct {
	project *storage.StoredProject
	config  *Config
	rent    solana.Rent

	mzipMeta    *fetchers.Receiver[fetchers.MzipMeta]
	pumpfunMeta *fetchers.Receiver[fetchers.PumpfunMeta]
}

func (o *Ops) projectAddress() solana.Pubkey {
	return mzip.ProjectAddress(o.config.MzipProgram, o.project.ChainID())
}

func (o *Ops) staticPoolMint() (solana.Pubkey, error) {
	mint, ok := o.project.StaticPoolMint()
	if !ok {
		return solana.Pubkey{}, fmt.Errorf("invariant: no static pool mint")
	}
	return mint, nil
}

func (o *Ops) curveMint() (solana.Pubkey, error) {
	mint, ok := o.project.CurvePoolMint()
	if !ok {
		return solana.Pubkey{}, fmt.Errorf("invariant: no curve mint")
	}
	return mint, nil
}

// mplMetadataAccountSize is the upper bound of a token metadata account,
// used for rent estimation.
const mplMetadataAccountSize = 679

// CreateProject emits the program's create instruction. The creator deposit
// budgets the rent-exempt minimum of every account the project will spawn
// later, so the whole lifecycle is prepaid by the creator.
func (o *Ops) CreateProject() ([]solana.Instruction, error) {
	schema := o.project.DeploySchema

	var deposit uint64
	if schema.StaticPool != nil {
		deposit += o.rent.MinimumBalance(mzip.StaticPoolAccountSize)
		deposit += o.rent.MinimumBalance(mzip.TransmuterAccountSize)
		deposit += o.rent.MinimumBalance(solana.TokenAccountSize) * 2
		deposit += o.rent.MinimumBalance(solana.TokenMintSize)
	}
	switch schema.CurvePool {
	case storage.CurveVariantMzip:
		deposit += o.rent.MinimumBalance(solana.TokenMintSize)
		deposit += o.rent.MinimumBalance(solana.TokenAccountSize)
		deposit += o.rent.MinimumBalance(mzip.CurvedPoolAccountSize)
		deposit += o.rent.MinimumBalance(mplMetadataAccountSize)
	case storage.CurveVariantPumpfun:
		deposit += o.config.PumpfunInitPrice
	default:
		return nil, fmt.Errorf("unknown curve variant %q", schema.CurvePool)
	}
	if schema.DevPurchase != nil {
		deposit += schema.DevPurchase.Amount
	}

	owner, err := o.project.Owner.Pubkey()
	if err != nil {
		return nil, err
	}

	data := anchorData("create_project", func(enc *solana.Encoder) {
		id := o.project.ChainID()
		enc.Raw(id[:])
		encodeProjectSchema(enc, schema)
		enc.U64(deposit)
	})

	return []solana.Instruction{{
		ProgramID: o.config.MzipProgram,
		Accounts: []solana.AccountMeta{
			solana.WritableSignerMeta(o.config.Authority),
			solana.WritableSignerMeta(owner),
			solana.WritableMeta(o.projectAddress()),
			solana.Meta(solana.SystemProgram),
		},
		Data: data,
	}}, nil
}

// LockProject opens the lamports-accounting latch around a migration
// transaction.
func (o *Ops) LockProject() ([]solana.Instruction, error) {
	return o.latchInstruction("project_lock_latch"), nil
}

// UnlockProject closes the latch, making the program verify the consumed
// lamports against the declared creator deposit.
func (o *Ops) UnlockProject() ([]solana.Instruction, error) {
	return o.latchInstruction("project_unlock_latch"), nil
}

func (o *Ops) latchInstruction(method string) []solana.Instruction {
	return []solana.Instruction{{
		ProgramID: o.config.MzipProgram,
		Accounts: []solana.AccountMeta{
			solana.WritableSignerMeta(o.config.Authority),
			solana.WritableMeta(o.projectAddress()),
		},
		Data: anchorData(method, nil),
	}}
}

// ManualProjectGraduate marks the project graduated; used for curve
// variants the program cannot observe on its own.
func (o *Ops) ManualProjectGraduate() ([]solana.Instruction, error) {
	data := anchorData("project_graduate", func(enc *solana.Encoder) {
		id := o.project.ChainID()
		enc.Raw(id[:])
	})
	return []solana.Instruction{{
		ProgramID: o.config.MzipProgram,
		Accounts: []solana.AccountMeta{
			solana.WritableSignerMeta(o.config.Authority),
			solana.WritableMeta(o.projectAddress()),
		},
		Data: data,
	}}, nil
}

// anchorData builds instruction data: the method discriminator plus args.
func anchorData(method string, encode func(*solana.Encoder)) []byte {
	disc := mzip.AnchorDiscriminator("global", method)
	enc := solana.NewEncoder()
	enc.Raw(disc[:])
	if encode != nil {
		encode(enc)
	}
	return enc.Bytes()
}

func encodeProjectSchema(enc *solana.Encoder, schema storage.DeploySchema) {
	enc.Bool(schema.StaticPool != nil)
	switch schema.CurvePool {
	case storage.CurveVariantPumpfun:
		enc.U8(uint8(mzip.CurveVariantPumpfun))
	default:
		enc.U8(uint8(mzip.CurveVariantMzip))
	}
	if schema.DevPurchase != nil {
		amount := schema.DevPurchase.Amount
		enc.OptionU64(&amount)
	} else {
		enc.OptionU64(nil)
	}
}

func (o *Ops) mzipMetaSnapshot(ctx context.Context) (fetchers.MzipMeta, error) {
	waitCtx, cancel := context.WithTimeout(ctx, metaWaitTimeout)
	defer cancel()
	return o.mzipMeta.Get(waitCtx)
}

func (o *Ops) pumpfunMetaSnapshot(ctx context.Context) (fetchers.PumpfunMeta, error) {
	waitCtx, cancel := context.WithTimeout(ctx, metaWaitTimeout)
	defer cancel()
	return o.pumpfunMeta.Get(waitCtx)
}
