// Package solana implements the minimal Solana primitives the backend needs:
// keys, program-derived addresses, legacy transactions, a JSON-RPC client
// pool and the relayed-RPC bundle client.
package solana

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PubkeyLength is the byte length of an ed25519 public key.
const PubkeyLength = 32

// Pubkey is a Solana account address.
type Pubkey [PubkeyLength]byte

// Well-known program addresses.
var (
	SystemProgram          = MustParsePubkey("11111111111111111111111111111111")
	TokenProgram           = MustParsePubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgram = MustParsePubkey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SysvarRent             = MustParsePubkey("SysvarRent111111111111111111111111111111111")
	WrappedSolMint         = MustParsePubkey("So11111111111111111111111111111111111111112")
)

// ParsePubkey decodes a base58-encoded address.
func ParsePubkey(s string) (Pubkey, error) {
	var key Pubkey
	raw, err := base58.Decode(s)
	if err != nil {
		return key, fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(raw) != PubkeyLength {
		return key, fmt.Errorf("pubkey %q has %d bytes, want %d", s, len(raw), PubkeyLength)
	}
	copy(key[:], raw)
	return key, nil
}

// MustParsePubkey is ParsePubkey for constants.
func MustParsePubkey(s string) Pubkey {
	key, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return key
}

// PubkeyFromBytes converts a raw 32-byte slice into a Pubkey.
func PubkeyFromBytes(raw []byte) (Pubkey, error) {
	var key Pubkey
	if len(raw) != PubkeyLength {
		return key, fmt.Errorf("pubkey has %d bytes, want %d", len(raw), PubkeyLength)
	}
	copy(key[:], raw)
	return key, nil
}

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// IsZero reports whether the key is the all-zero address.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// MarshalText implements encoding.TextMarshaler, so keys serialize as base58
// in JSON and YAML.
func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty string maps
// to the zero key so optional config fields can stay unset.
func (p *Pubkey) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = Pubkey{}
		return nil
	}
	key, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*p = key
	return nil
}

// IsOnCurve reports whether the key is a valid ed25519 curve point. Program
// derived addresses must NOT be on the curve.
func (p Pubkey) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(p[:])
	return err == nil
}

const pdaMarker = "ProgramDerivedAddress"

// CreateProgramAddress derives an address from seeds. It fails when the
// result lands on the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, error) {
	hasher := sha256.New()
	for _, seed := range seeds {
		if len(seed) > 32 {
			return Pubkey{}, fmt.Errorf("seed exceeds 32 bytes")
		}
		hasher.Write(seed)
	}
	hasher.Write(programID[:])
	hasher.Write([]byte(pdaMarker))

	key, err := PubkeyFromBytes(hasher.Sum(nil))
	if err != nil {
		return Pubkey{}, err
	}
	if key.IsOnCurve() {
		return Pubkey{}, fmt.Errorf("invalid seeds: address falls on the curve")
	}
	return key, nil
}

// FindProgramAddress finds the canonical off-curve address for seeds,
// walking the bump seed down from 255.
func FindProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		withBump := make([][]byte, 0, len(seeds)+1)
		withBump = append(withBump, seeds...)
		withBump = append(withBump, []byte{uint8(bump)})
		key, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return key, uint8(bump), nil
		}
	}
	return Pubkey{}, 0, fmt.Errorf("no viable bump seed found")
}

// CreateWithSeed derives the address used by the system program's
// create-account-with-seed flow.
func CreateWithSeed(base Pubkey, seed string, owner Pubkey) Pubkey {
	hasher := sha256.New()
	hasher.Write(base[:])
	hasher.Write([]byte(seed))
	hasher.Write(owner[:])
	var key Pubkey
	copy(key[:], hasher.Sum(nil))
	return key
}

// AssociatedTokenAddress derives the associated token account for a wallet
// and mint.
func AssociatedTokenAddress(wallet, mint Pubkey) Pubkey {
	key, _, err := FindProgramAddress(
		[][]byte{wallet[:], TokenProgram[:], mint[:]},
		AssociatedTokenProgram,
	)
	if err != nil {
		// Unreachable: the bump walk always terminates for ATA seeds.
		panic(err)
	}
	return key
}

// PubkeysEqual is a small helper for tests and filters.
func PubkeysEqual(a, b Pubkey) bool {
	return bytes.Equal(a[:], b[:])
}
