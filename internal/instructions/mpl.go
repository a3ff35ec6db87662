package instructions

import (
	"github.com/KongzTech/moonzip-backend/internal/solana"
)

var metadataPrefix = []byte("metadata")

// mplMetadataAccount derives the token metadata PDA for a mint.
func (o *Ops) mplMetadataAccount(mint solana.Pubkey) solana.Pubkey {
	program := o.config.MplMetadataProgram
	key, _, _ := solana.FindProgramAddress(
		[][]byte{metadataPrefix, program[:], mint[:]}, program)
	return key
}

// Metadata program discriminators.
const (
	mplCreateInstruction  = 42 // Create
	mplTokenStandardFungible = 2
	sysvarInstructions       = "Sysvar1nstructions1111111111111111111111111"
)

// mplCreateMetadata registers immutable fungible metadata for the mint,
// carrying the pinned offchain URI.
func (o *Ops) mplCreateMetadata(mint solana.Pubkey, name, symbol, uri string) solana.Instruction {
	program := o.config.MplMetadataProgram
	authority := o.config.Authority

	enc := solana.NewEncoder()
	enc.U8(mplCreateInstruction)
	enc.U8(0) // CreateArgs::V1
	// AssetData
	enc.String(name)
	enc.String(symbol)
	enc.String(uri)
	enc.U16(0)   // seller_fee_basis_points
	enc.U8(0)    // creators: None
	enc.Bool(false) // primary_sale_happened
	enc.Bool(false) // is_mutable
	enc.U8(mplTokenStandardFungible)
	enc.U8(0) // collection: None
	enc.U8(0) // uses: None
	enc.U8(0) // collection_details: None
	enc.U8(0) // rule_set: None
	enc.U8(0) // decimals: None
	enc.U8(0) // print_supply: None

	return solana.Instruction{
		ProgramID: program,
		Accounts: []solana.AccountMeta{
			solana.WritableMeta(o.mplMetadataAccount(mint)),
			solana.Meta(program), // master_edition: None
			solana.WritableSignerMeta(mint),
			solana.SignerMeta(authority),
			solana.WritableSignerMeta(authority), // payer
			solana.SignerMeta(authority),         // update_authority
			solana.Meta(solana.SystemProgram),
			solana.Meta(solana.MustParsePubkey(sysvarInstructions)),
			solana.Meta(solana.TokenProgram),
		},
		Data: enc.Bytes(),
	}
}
