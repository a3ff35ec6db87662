package instructions

import (
	"github.com/KongzTech/moonzip-backend/internal/solana"
)

const marketSeed = "mzip_market"

// Exchange market account sizes, fixed by the DEX program.
const (
	marketAccountSpace = 388
	requestQueueSpace  = 764
	eventQueueSpace    = 11308
	bidsSpace          = 14524
	asksSpace          = 14524
)

// Serum market lot parameters used for graduated tokens.
const (
	marketCoinLotSize      = 6447184
	marketPcLotSize        = 64
	marketVaultSignerNonce = 0
	marketPcDustThreshold  = 64
)

// OpenbookMarketAddress derives the seeded market account for a mint.
func (o *Ops) OpenbookMarketAddress(mint solana.Pubkey) solana.Pubkey {
	return solana.CreateWithSeed(mint, marketSeed, o.config.SerumOpenbookProgram)
}

// PrepareOpenbookMarket creates and initializes the exchange market with
// its seeded bids/asks/event-queue/request-queue accounts. Returns the
// market address together with the ordered instructions.
func (o *Ops) PrepareOpenbookMarket() (solana.Pubkey, []solana.Instruction, error) {
	mint, err := o.curveMint()
	if err != nil {
		return solana.Pubkey{}, nil, err
	}
	payer := o.config.Authority
	programID := o.config.SerumOpenbookProgram

	market := o.OpenbookMarketAddress(mint)
	createMarket := solana.CreateAccountWithSeed(
		payer, market, mint, marketSeed,
		o.rent.MinimumBalance(marketAccountSpace), marketAccountSpace, programID)

	queue := func(suffix string, space uint64) (solana.Pubkey, solana.Instruction) {
		seed := "queue_" + suffix
		address := solana.CreateWithSeed(mint, seed, programID)
		ix := solana.CreateAccountWithSeed(
			payer, address, mint, seed,
			o.rent.MinimumBalance(int(space)), space, programID)
		return address, ix
	}
	requestQueue, requestQueueIx := queue("request", requestQueueSpace)
	eventQueue, eventQueueIx := queue("event", eventQueueSpace)
	bids, bidsIx := queue("bids", bidsSpace)
	asks, asksIx := queue("asks", asksSpace)

	coinMint := solana.WrappedSolMint
	coinVault := solana.AssociatedTokenAddress(market, coinMint)
	pcMint := mint
	pcVault := solana.AssociatedTokenAddress(market, pcMint)

	initialize := initializeMarketInstruction(
		programID, market, requestQueue, eventQueue, bids, asks,
		coinVault, pcVault, coinMint, pcMint)

	return market, []solana.Instruction{
		createMarket,
		bidsIx,
		asksIx,
		requestQueueIx,
		eventQueueIx,
		initialize,
	}, nil
}

// initializeMarketInstruction encodes the DEX InitializeMarket call: a
// version byte, the u32 method tag, then the market parameters.
func initializeMarketInstruction(programID, market, requestQueue, eventQueue, bids, asks, coinVault, pcVault, coinMint, pcMint solana.Pubkey) solana.Instruction {
	enc := solana.NewEncoder()
	enc.U8(0)  // version
	enc.U32(0) // InitializeMarket
	enc.U64(marketCoinLotSize)
	enc.U64(marketPcLotSize)
	enc.U16(0) // fee_rate_bps
	enc.U64(marketVaultSignerNonce)
	enc.U64(marketPcDustThreshold)

	return solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			solana.WritableMeta(market),
			solana.WritableMeta(requestQueue),
			solana.WritableMeta(eventQueue),
			solana.WritableMeta(bids),
			solana.WritableMeta(asks),
			solana.WritableMeta(coinVault),
			solana.WritableMeta(pcVault),
			solana.Meta(coinMint),
			solana.Meta(pcMint),
			solana.Meta(solana.SysvarRent),
		},
		Data: enc.Bytes(),
	}
}
