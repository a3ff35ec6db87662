// Package mzip is the client-side binding of the native launch program: PDA
// derivations, account layouts, event decoding and instruction data
// encoding. The on-chain logic itself lives in a separate artifact; this
// package only mirrors its published schemas.
package mzip

import (
	"crypto/sha256"

	"github.com/KongzTech/moonzip-backend/internal/solana"
	"github.com/google/uuid"
)

// PDA seed prefixes published by the program.
var (
	projectPrefix    = []byte("project")
	staticPoolPrefix = []byte("static-pool")
	curvedPoolPrefix = []byte("curved-pool")
	transmuterPrefix = []byte("transmuter")
	feePrefix        = []byte("fee")
	globalPrefix     = []byte("curved-pool-global-account")
	eventAuthPrefix  = []byte("__event_authority")
)

// ProjectID is the program-side project identifier: the UUID's 128 bits in
// little-endian byte order.
type ProjectID [16]byte

// ProjectIDFromUUID maps a stored project id onto its chain form.
func ProjectIDFromUUID(id uuid.UUID) ProjectID {
	var out ProjectID
	for i := 0; i < 16; i++ {
		out[i] = id[15-i]
	}
	return out
}

// AnchorDiscriminator derives the 8-byte discriminator for a namespaced
// anchor symbol, e.g. ("global", "create_project") for an instruction or
// ("event", "TradeEvent") for an event.
func AnchorDiscriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// EventInstructionTag is the outer discriminator of anchor's emit-via-CPI
// event instructions (the little-endian bytes of 0x1d9acb512ea545e4).
var EventInstructionTag = [8]byte{0xe4, 0x45, 0xa5, 0x2e, 0x51, 0xcb, 0x9a, 0x1d}

// DiscriminatorSize is the byte width of an anchor discriminator.
const DiscriminatorSize = 8

// ProjectAddress derives the project PDA.
func ProjectAddress(programID solana.Pubkey, id ProjectID) solana.Pubkey {
	key, _, _ := solana.FindProgramAddress([][]byte{projectPrefix, id[:]}, programID)
	return key
}

// StaticPoolAddress derives the static pool PDA for its mint.
func StaticPoolAddress(programID, mint solana.Pubkey) solana.Pubkey {
	key, _, _ := solana.FindProgramAddress([][]byte{staticPoolPrefix, mint[:]}, programID)
	return key
}

// CurvedPoolAddress derives the curve pool PDA for its mint.
func CurvedPoolAddress(programID, mint solana.Pubkey) solana.Pubkey {
	key, _, _ := solana.FindProgramAddress([][]byte{curvedPoolPrefix, mint[:]}, programID)
	return key
}

// TransmuterAddress derives the transmuter PDA keyed by the mint pair.
func TransmuterAddress(programID, fromMint, toMint solana.Pubkey) solana.Pubkey {
	key, _, _ := solana.FindProgramAddress([][]byte{transmuterPrefix, fromMint[:], toMint[:]}, programID)
	return key
}

// FeeAddress derives the program fee account PDA.
func FeeAddress(programID solana.Pubkey) solana.Pubkey {
	key, _, _ := solana.FindProgramAddress([][]byte{feePrefix}, programID)
	return key
}

// GlobalAddress derives the curve-pool global config PDA.
func GlobalAddress(programID solana.Pubkey) solana.Pubkey {
	key, _, _ := solana.FindProgramAddress([][]byte{globalPrefix}, programID)
	return key
}

// EventAuthority derives anchor's event CPI authority for a program.
func EventAuthority(programID solana.Pubkey) solana.Pubkey {
	key, _, _ := solana.FindProgramAddress([][]byte{eventAuthPrefix}, programID)
	return key
}
