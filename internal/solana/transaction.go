package solana

import (
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
)

// Transaction is a legacy (non-versioned) Solana transaction.
type Transaction struct {
	Signatures []Signature
	Message    Message
}

// Message is the signable portion of a legacy transaction.
type Message struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
	AccountKeys                 []Pubkey
	RecentBlockhash             Hash
	Instructions                []CompiledInstruction
}

// CompiledInstruction references accounts by index into the message keys.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

type accountUsage struct {
	key      Pubkey
	signer   bool
	writable bool
}

// NewTransaction compiles instructions into an unsigned transaction with the
// given fee payer.
func NewTransaction(instructions []Instruction, payer Pubkey) (*Transaction, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("no instructions to compile")
	}

	ordered := []accountUsage{{key: payer, signer: true, writable: true}}
	index := map[Pubkey]int{payer: 0}
	use := func(meta AccountMeta) {
		if at, ok := index[meta.Pubkey]; ok {
			ordered[at].signer = ordered[at].signer || meta.IsSigner
			ordered[at].writable = ordered[at].writable || meta.IsWritable
			return
		}
		index[meta.Pubkey] = len(ordered)
		ordered = append(ordered, accountUsage{
			key:      meta.Pubkey,
			signer:   meta.IsSigner,
			writable: meta.IsWritable,
		})
	}
	for _, ix := range instructions {
		for _, meta := range ix.Accounts {
			use(meta)
		}
		use(Meta(ix.ProgramID))
	}

	// Message layout: writable signers, readonly signers, writable
	// non-signers, readonly non-signers. The payer stays first.
	var keys []Pubkey
	var header Message
	appendClass := func(signer, writable bool) {
		for _, usage := range ordered {
			if usage.signer == signer && usage.writable == writable {
				keys = append(keys, usage.key)
			}
		}
	}
	appendClass(true, true)
	appendClass(true, false)
	appendClass(false, true)
	appendClass(false, false)

	for _, usage := range ordered {
		if usage.signer {
			header.NumRequiredSignatures++
			if !usage.writable {
				header.NumReadonlySignedAccounts++
			}
		} else if !usage.writable {
			header.NumReadonlyUnsignedAccounts++
		}
	}

	keyIndex := map[Pubkey]uint8{}
	for i, key := range keys {
		keyIndex[key] = uint8(i)
	}

	compiled := make([]CompiledInstruction, 0, len(instructions))
	for _, ix := range instructions {
		accounts := make([]uint8, 0, len(ix.Accounts))
		for _, meta := range ix.Accounts {
			accounts = append(accounts, keyIndex[meta.Pubkey])
		}
		compiled = append(compiled, CompiledInstruction{
			ProgramIDIndex: keyIndex[ix.ProgramID],
			Accounts:       accounts,
			Data:           ix.Data,
		})
	}

	header.AccountKeys = keys
	header.Instructions = compiled
	return &Transaction{
		Signatures: make([]Signature, header.NumRequiredSignatures),
		Message:    header,
	}, nil
}

// Sign sets the blockhash and fills every required signature slot from the
// provided keypairs. All required signers must be present.
func (t *Transaction) Sign(signers []Keypair, blockhash Hash) error {
	t.Message.RecentBlockhash = blockhash
	message := t.Message.Serialize()

	byKey := map[Pubkey]Keypair{}
	for _, signer := range signers {
		byKey[signer.Pubkey()] = signer
	}

	for i := 0; i < int(t.Message.NumRequiredSignatures); i++ {
		key := t.Message.AccountKeys[i]
		signer, ok := byKey[key]
		if !ok {
			return fmt.Errorf("missing signer for %s", key)
		}
		t.Signatures[i] = signer.Sign(message)
	}
	return nil
}

// Serialize returns the wire form of the message.
func (m Message) Serialize() []byte {
	buf := []byte{
		m.NumRequiredSignatures,
		m.NumReadonlySignedAccounts,
		m.NumReadonlyUnsignedAccounts,
	}
	buf = AppendShortvec(buf, len(m.AccountKeys))
	for _, key := range m.AccountKeys {
		buf = append(buf, key[:]...)
	}
	buf = append(buf, m.RecentBlockhash[:]...)
	buf = AppendShortvec(buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf = append(buf, ix.ProgramIDIndex)
		buf = AppendShortvec(buf, len(ix.Accounts))
		buf = append(buf, ix.Accounts...)
		buf = AppendShortvec(buf, len(ix.Data))
		buf = append(buf, ix.Data...)
	}
	return buf
}

// Serialize returns the wire form of the whole transaction.
func (t *Transaction) Serialize() []byte {
	var buf []byte
	buf = AppendShortvec(buf, len(t.Signatures))
	for _, sig := range t.Signatures {
		buf = append(buf, sig[:]...)
	}
	return append(buf, t.Message.Serialize()...)
}

// SerializeBase64 is the encoding used by the relayed-RPC submission paths.
func (t *Transaction) SerializeBase64() string {
	return base64.StdEncoding.EncodeToString(t.Serialize())
}

// SerializeBase58 is the encoding handed to API clients for signing.
func (t *Transaction) SerializeBase58() string {
	return base58.Encode(t.Serialize())
}
