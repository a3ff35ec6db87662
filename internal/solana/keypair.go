package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mr-tron/base58"
)

// KeypairLength is the byte length of a serialized keypair (seed || pubkey).
const KeypairLength = 64

// Keypair is an ed25519 signing key.
type Keypair struct {
	priv ed25519.PrivateKey
}

// NewKeypair generates a fresh random keypair.
func NewKeypair() Keypair {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}
	return Keypair{priv: priv}
}

// KeypairFromBytes restores a keypair from its 64-byte form.
func KeypairFromBytes(raw []byte) (Keypair, error) {
	if len(raw) != KeypairLength {
		return Keypair{}, fmt.Errorf("keypair has %d bytes, want %d", len(raw), KeypairLength)
	}
	priv := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	pub := priv.Public().(ed25519.PublicKey)
	if !PubkeysEqual(pubkeyOf(pub), pubkeyOfSlice(raw[ed25519.SeedSize:])) {
		return Keypair{}, fmt.Errorf("keypair pubkey does not match its seed")
	}
	return Keypair{priv: priv}, nil
}

// Bytes returns the 64-byte serialized form.
func (k Keypair) Bytes() []byte {
	out := make([]byte, KeypairLength)
	copy(out, k.priv)
	return out
}

// Pubkey returns the public half.
func (k Keypair) Pubkey() Pubkey {
	return pubkeyOf(k.priv.Public().(ed25519.PublicKey))
}

// Sign signs the message and returns the signature.
func (k Keypair) Sign(message []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.priv, message))
	return sig
}

func pubkeyOf(pub ed25519.PublicKey) Pubkey {
	var key Pubkey
	copy(key[:], pub)
	return key
}

func pubkeyOfSlice(raw []byte) Pubkey {
	var key Pubkey
	copy(key[:], raw)
	return key
}

// SignatureLength is the byte length of an ed25519 signature.
const SignatureLength = 64

// Signature is an ed25519 signature.
type Signature [SignatureLength]byte

// ParseSignature decodes a base58-encoded signature.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	raw, err := base58.Decode(s)
	if err != nil {
		return sig, fmt.Errorf("decode signature: %w", err)
	}
	if len(raw) != SignatureLength {
		return sig, fmt.Errorf("signature has %d bytes, want %d", len(raw), SignatureLength)
	}
	copy(sig[:], raw)
	return sig, nil
}

func (s Signature) String() string {
	return base58.Encode(s[:])
}

// Verify checks the signature over message for the given key.
func (s Signature) Verify(key Pubkey, message []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(key[:]), message, s[:])
}

// KeypairConfig deserializes a keypair from configuration, either inline as
// a byte array or from a JSON keypair file.
type KeypairConfig struct {
	Keypair
}

type rawKeypairConfig struct {
	Path  string  `yaml:"path"`
	Array []uint8 `yaml:"array"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *KeypairConfig) UnmarshalYAML(unmarshal func(any) error) error {
	var raw rawKeypairConfig
	if err := unmarshal(&raw); err != nil {
		return err
	}
	if raw.Path == "" && len(raw.Array) == 0 {
		// Left unset; callers validate before use.
		return nil
	}
	bytes := raw.Array
	if raw.Path != "" {
		data, err := os.ReadFile(raw.Path)
		if err != nil {
			return fmt.Errorf("read keypair file: %w", err)
		}
		if err := json.Unmarshal(data, &bytes); err != nil {
			return fmt.Errorf("decode keypair file: %w", err)
		}
	}
	keypair, err := KeypairFromBytes(bytes)
	if err != nil {
		return err
	}
	c.Keypair = keypair
	return nil
}
