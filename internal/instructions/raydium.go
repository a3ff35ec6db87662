package instructions

import (
	"github.com/KongzTech/moonzip-backend/internal/solana"
)

// AMM PDA seeds fixed by the external pool program.
var (
	ammAssociatedSeed  = []byte("amm_associated_seed")
	ammOpenOrderSeed   = []byte("open_order_associated_seed")
	ammLpMintSeed      = []byte("lp_mint_associated_seed")
	ammTargetSeed      = []byte("target_associated_seed")
	ammConfigSeed      = []byte("amm_config_account_seed")
	ammAuthoritySeed   = []byte("amm authority")
)

func ammAssociatedAddress(programID, market solana.Pubkey, seed []byte) solana.Pubkey {
	key, _, _ := solana.FindProgramAddress([][]byte{programID[:], market[:], seed}, programID)
	return key
}

// DeployToRaydium moves graduated liquidity into the external AMM pool:
// wraps the SOL side into a temporary seeded token account, initializes the
// pool against the prepared market, and closes the wrapper.
func (o *Ops) DeployToRaydium(market solana.Pubkey, tokensAmount, solsAmount uint64) ([]solana.Instruction, error) {
	mint, err := o.curveMint()
	if err != nil {
		return nil, err
	}
	programID := o.config.RaydiumProgram
	donor := o.config.Authority

	ammPool := ammAssociatedAddress(programID, market, ammAssociatedSeed)
	ammAuthority, nonce, err := solana.FindProgramAddress([][]byte{ammAuthoritySeed}, programID)
	if err != nil {
		return nil, err
	}
	ammOpenOrders := ammAssociatedAddress(programID, ammPool, ammOpenOrderSeed)
	ammLpMint := ammAssociatedAddress(programID, ammPool, ammLpMintSeed)
	ammTargetOrders := ammAssociatedAddress(programID, ammPool, ammTargetSeed)
	ammConfig, _, err := solana.FindProgramAddress([][]byte{ammConfigSeed}, programID)
	if err != nil {
		return nil, err
	}

	ammCoinVault := solana.AssociatedTokenAddress(ammAuthority, solana.WrappedSolMint)
	ammPcVault := solana.AssociatedTokenAddress(ammAuthority, mint)

	userTokenPc := solana.AssociatedTokenAddress(donor, mint)
	userTokenLp := solana.AssociatedTokenAddress(donor, ammLpMint)

	// The wrapper account carries rent plus the pool's SOL side.
	wrapperSeed := mint.String()
	wrapper := solana.CreateWithSeed(donor, wrapperSeed, solana.TokenProgram)
	wrapperLamports := o.rent.MinimumBalance(solana.TokenAccountSize) + solsAmount

	createWrapper := solana.CreateAccountWithSeed(
		donor, wrapper, donor, wrapperSeed,
		wrapperLamports, solana.TokenAccountSize, solana.TokenProgram)
	initWrapper := solana.TokenInitializeAccount(wrapper, solana.WrappedSolMint, donor)
	closeWrapper := solana.TokenCloseAccount(wrapper, donor, donor)

	enc := solana.NewEncoder()
	enc.U8(1) // Initialize2
	enc.U8(nonce)
	enc.U64(0) // open_time: immediate
	enc.U64(tokensAmount)
	enc.U64(solsAmount)

	initialize := solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			solana.Meta(solana.TokenProgram),
			solana.Meta(solana.AssociatedTokenProgram),
			solana.Meta(solana.SystemProgram),
			solana.Meta(solana.SysvarRent),
			solana.WritableMeta(ammPool),
			solana.Meta(ammAuthority),
			solana.WritableMeta(ammOpenOrders),
			solana.WritableMeta(ammLpMint),
			solana.Meta(solana.WrappedSolMint),
			solana.Meta(mint),
			solana.WritableMeta(ammCoinVault),
			solana.WritableMeta(ammPcVault),
			solana.WritableMeta(ammTargetOrders),
			solana.Meta(ammConfig),
			solana.WritableMeta(o.config.RaydiumFeeDestination),
			solana.Meta(o.config.SerumOpenbookProgram),
			solana.Meta(market),
			solana.WritableSignerMeta(donor),
			solana.WritableMeta(wrapper),
			solana.WritableMeta(userTokenPc),
			solana.WritableMeta(userTokenLp),
		},
		Data: enc.Bytes(),
	}

	return []solana.Instruction{
		createWrapper,
		initWrapper,
		initialize,
		closeWrapper,
	}, nil
}
