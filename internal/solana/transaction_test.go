package solana

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubkeyRoundTrip(t *testing.T) {
	keypair := NewKeypair()
	key := keypair.Pubkey()

	parsed, err := ParsePubkey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	fromBytes, err := PubkeyFromBytes(key[:])
	require.NoError(t, err)
	assert.Equal(t, key, fromBytes)
}

func TestKeypairRoundTrip(t *testing.T) {
	keypair := NewKeypair()
	restored, err := KeypairFromBytes(keypair.Bytes())
	require.NoError(t, err)
	assert.Equal(t, keypair.Pubkey(), restored.Pubkey())

	_, err = KeypairFromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestFindProgramAddressOffCurve(t *testing.T) {
	program := MustParsePubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	address, bump, err := FindProgramAddress([][]byte{[]byte("some-seed")}, program)
	require.NoError(t, err)
	assert.False(t, address.IsOnCurve())

	// The derivation is deterministic.
	again, bumpAgain, err := FindProgramAddress([][]byte{[]byte("some-seed")}, program)
	require.NoError(t, err)
	assert.Equal(t, address, again)
	assert.Equal(t, bump, bumpAgain)
}

func TestAssociatedTokenAddressDiffersPerWallet(t *testing.T) {
	mint := NewKeypair().Pubkey()
	first := AssociatedTokenAddress(NewKeypair().Pubkey(), mint)
	second := AssociatedTokenAddress(NewKeypair().Pubkey(), mint)
	assert.NotEqual(t, first, second)
}

func TestShortvecEncoding(t *testing.T) {
	cases := map[int][]byte{
		0:     {0x00},
		1:     {0x01},
		127:   {0x7f},
		128:   {0x80, 0x01},
		16383: {0xff, 0x7f},
		16384: {0x80, 0x80, 0x01},
	}
	for value, want := range cases {
		assert.Equal(t, want, AppendShortvec(nil, value), "value %d", value)
	}
}

func TestTransactionCompileAndSign(t *testing.T) {
	payer := NewKeypair()
	extraSigner := NewKeypair()
	recipient := NewKeypair().Pubkey()

	ixs := []Instruction{
		Transfer(payer.Pubkey(), recipient, 100),
		{
			ProgramID: TokenProgram,
			Accounts: []AccountMeta{
				WritableSignerMeta(extraSigner.Pubkey()),
				Meta(recipient),
			},
			Data: []byte{1, 2, 3},
		},
	}

	tx, err := NewTransaction(ixs, payer.Pubkey())
	require.NoError(t, err)

	// The payer leads the account list and all signers precede
	// non-signers.
	require.Equal(t, payer.Pubkey(), tx.Message.AccountKeys[0])
	assert.EqualValues(t, 2, tx.Message.NumRequiredSignatures)
	assert.Equal(t, extraSigner.Pubkey(), tx.Message.AccountKeys[1])

	var blockhash Hash
	copy(blockhash[:], []byte("blockhash-for-tests-blockhash-00"))
	require.NoError(t, tx.Sign([]Keypair{payer, extraSigner}, blockhash))

	message := tx.Message.Serialize()
	for i, sig := range tx.Signatures {
		key := tx.Message.AccountKeys[i]
		assert.True(t, ed25519.Verify(ed25519.PublicKey(key[:]), message, sig[:]),
			"signature %d must verify", i)
	}

	// Same instructions compile to the same wire form.
	again, err := NewTransaction(ixs, payer.Pubkey())
	require.NoError(t, err)
	require.NoError(t, again.Sign([]Keypair{payer, extraSigner}, blockhash))
	assert.Equal(t, tx.Serialize(), again.Serialize())
}

func TestTransactionMissingSigner(t *testing.T) {
	payer := NewKeypair()
	tx, err := NewTransaction([]Instruction{
		Transfer(payer.Pubkey(), NewKeypair().Pubkey(), 1),
	}, payer.Pubkey())
	require.NoError(t, err)

	err = tx.Sign([]Keypair{NewKeypair()}, Hash{})
	assert.ErrorContains(t, err, "missing signer")
}
