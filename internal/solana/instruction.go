package solana

// AccountMeta describes an account referenced by an instruction.
type AccountMeta struct {
	Pubkey     Pubkey
	IsSigner   bool
	IsWritable bool
}

// Meta returns a readonly non-signer account reference.
func Meta(key Pubkey) AccountMeta {
	return AccountMeta{Pubkey: key}
}

// WritableMeta returns a writable non-signer account reference.
func WritableMeta(key Pubkey) AccountMeta {
	return AccountMeta{Pubkey: key, IsWritable: true}
}

// SignerMeta returns a readonly signer account reference.
func SignerMeta(key Pubkey) AccountMeta {
	return AccountMeta{Pubkey: key, IsSigner: true}
}

// WritableSignerMeta returns a writable signer account reference.
func WritableSignerMeta(key Pubkey) AccountMeta {
	return AccountMeta{Pubkey: key, IsSigner: true, IsWritable: true}
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// System program instruction tags (bincode u32).
const (
	systemCreateAccountWithSeed uint32 = 3
	systemTransfer              uint32 = 2
)

// Transfer builds a system-program lamport transfer.
func Transfer(from, to Pubkey, lamports uint64) Instruction {
	enc := NewEncoder()
	enc.U32(systemTransfer)
	enc.U64(lamports)
	return Instruction{
		ProgramID: SystemProgram,
		Accounts: []AccountMeta{
			WritableSignerMeta(from),
			WritableMeta(to),
		},
		Data: enc.Bytes(),
	}
}

// CreateAccountWithSeed builds the system-program seeded account creation.
func CreateAccountWithSeed(from, newAccount, base Pubkey, seed string, lamports, space uint64, owner Pubkey) Instruction {
	enc := NewEncoder()
	enc.U32(systemCreateAccountWithSeed)
	enc.Pubkey(base)
	enc.U64(uint64(len(seed)))
	enc.Raw([]byte(seed))
	enc.U64(lamports)
	enc.U64(space)
	enc.Pubkey(owner)

	accounts := []AccountMeta{
		WritableSignerMeta(from),
		WritableMeta(newAccount),
	}
	if base != from {
		accounts = append(accounts, SignerMeta(base))
	}
	return Instruction{
		ProgramID: SystemProgram,
		Accounts:  accounts,
		Data:      enc.Bytes(),
	}
}

// SPL token instruction tags.
const (
	tokenInitializeAccount uint8 = 1
	tokenTransfer          uint8 = 3
	tokenCloseAccount      uint8 = 9
)

// TokenTransfer builds an SPL token transfer.
func TokenTransfer(source, destination, owner Pubkey, amount uint64) Instruction {
	enc := NewEncoder()
	enc.U8(tokenTransfer)
	enc.U64(amount)
	return Instruction{
		ProgramID: TokenProgram,
		Accounts: []AccountMeta{
			WritableMeta(source),
			WritableMeta(destination),
			SignerMeta(owner),
		},
		Data: enc.Bytes(),
	}
}

// TokenInitializeAccount builds an SPL token account initialization.
func TokenInitializeAccount(account, mint, owner Pubkey) Instruction {
	return Instruction{
		ProgramID: TokenProgram,
		Accounts: []AccountMeta{
			WritableMeta(account),
			Meta(mint),
			Meta(owner),
			Meta(SysvarRent),
		},
		Data: []byte{tokenInitializeAccount},
	}
}

// TokenCloseAccount builds an SPL token account close.
func TokenCloseAccount(account, destination, owner Pubkey) Instruction {
	return Instruction{
		ProgramID: TokenProgram,
		Accounts: []AccountMeta{
			WritableMeta(account),
			WritableMeta(destination),
			SignerMeta(owner),
		},
		Data: []byte{tokenCloseAccount},
	}
}

// CreateAssociatedTokenAccount builds an ATA creation for wallet+mint.
func CreateAssociatedTokenAccount(payer, wallet, mint Pubkey) Instruction {
	return associatedTokenAccountIx(payer, wallet, mint, 0)
}

// CreateAssociatedTokenAccountIdempotent is the no-op-if-exists variant.
func CreateAssociatedTokenAccountIdempotent(payer, wallet, mint Pubkey) Instruction {
	return associatedTokenAccountIx(payer, wallet, mint, 1)
}

func associatedTokenAccountIx(payer, wallet, mint Pubkey, tag uint8) Instruction {
	ata := AssociatedTokenAddress(wallet, mint)
	return Instruction{
		ProgramID: AssociatedTokenProgram,
		Accounts: []AccountMeta{
			WritableSignerMeta(payer),
			WritableMeta(ata),
			Meta(wallet),
			Meta(mint),
			Meta(SystemProgram),
			Meta(TokenProgram),
		},
		Data: []byte{tag},
	}
}

// SPL token account layout sizes, used in rent budgeting.
const (
	TokenAccountSize = 165
	TokenMintSize    = 82
)
