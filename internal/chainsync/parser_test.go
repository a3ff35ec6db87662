package chainsync

import (
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KongzTech/moonzip-backend/internal/mzip"
	"github.com/KongzTech/moonzip-backend/internal/pumpfun"
	"github.com/KongzTech/moonzip-backend/internal/solana"
)

func testLog(t *testing.T) *logrus.Entry {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func testConfig() Config {
	return Config{
		MzipProgram:    solana.NewKeypair().Pubkey(),
		PumpfunProgram: solana.NewKeypair().Pubkey(),
	}
}

func eventInstructionData(discriminator [8]byte, payload []byte) []byte {
	data := append([]byte{}, mzip.EventInstructionTag[:]...)
	data = append(data, discriminator[:]...)
	return append(data, payload...)
}

func staticPoolBuyPayload(id mzip.ProjectID, collected uint64) []byte {
	enc := solana.NewEncoder()
	enc.Raw(id[:])
	enc.Pubkey(solana.NewKeypair().Pubkey())
	enc.U64(100)       // request_sols
	enc.U64(100)       // output_tokens
	enc.U64(collected) // new_collected_sols
	return enc.Bytes()
}

func tradeEventPayload(mint solana.Pubkey) []byte {
	enc := solana.NewEncoder()
	enc.Pubkey(mint)
	enc.U64(10)
	enc.U64(20)
	enc.Bool(true)
	enc.Pubkey(solana.NewKeypair().Pubkey())
	enc.I64(1700000000)
	enc.U64(30)
	enc.U64(40)
	return enc.Bytes()
}

func inputWith(config Config, instructions ...InnerInstruction) ParseInput {
	keys := [][]byte{
		config.MzipProgram[:],
		config.PumpfunProgram[:],
	}
	return ParseInput{
		Slot: 42,
		Transaction: &StreamedTransaction{
			Message: &TxMessage{AccountKeys: keys},
		},
		Meta: &TxMeta{
			InnerInstructions: []InnerInstructions{{Instructions: instructions}},
		},
	}
}

func TestParserExtractsMzipEvent(t *testing.T) {
	config := testConfig()
	parser := NewParseAggregator(config, testLog(t))

	id := mzip.ProjectIDFromUUID(uuid.New())
	instruction := InnerInstruction{
		ProgramIDIndex: 0,
		Data:           eventInstructionData(mzip.StaticPoolBuyEventDiscriminator, staticPoolBuyPayload(id, 555)),
	}

	events, err := parser.parseTx(inputWith(config, instruction))
	require.NoError(t, err)
	require.Len(t, events, 1)
	wrapped, ok := events[0].(MzipEvent)
	require.True(t, ok)
	buy, ok := wrapped.Inner.(mzip.StaticPoolBuyEvent)
	require.True(t, ok)
	assert.Equal(t, id, buy.ProjectID)
	assert.EqualValues(t, 555, buy.NewCollectedSols)
}

func TestParserDeterminism(t *testing.T) {
	config := testConfig()
	parser := NewParseAggregator(config, testLog(t))

	id := mzip.ProjectIDFromUUID(uuid.New())
	mint := solana.NewKeypair().Pubkey()
	input := inputWith(config,
		InnerInstruction{
			ProgramIDIndex: 0,
			Data:           eventInstructionData(mzip.StaticPoolBuyEventDiscriminator, staticPoolBuyPayload(id, 1)),
		},
		InnerInstruction{
			ProgramIDIndex: 1,
			Data:           eventInstructionData(pumpfun.TradeEventDiscriminator, tradeEventPayload(mint)),
		},
	)

	first, err := parser.parseTx(input)
	require.NoError(t, err)
	second, err := parser.parseTx(input)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParserIgnoresUntrackedPrograms(t *testing.T) {
	config := testConfig()
	parser := NewParseAggregator(config, testLog(t))

	untracked := solana.NewKeypair().Pubkey()
	input := ParseInput{
		Slot: 7,
		Transaction: &StreamedTransaction{
			Message: &TxMessage{AccountKeys: [][]byte{untracked[:]}},
		},
		Meta: &TxMeta{
			InnerInstructions: []InnerInstructions{{Instructions: []InnerInstruction{{
				ProgramIDIndex: 0,
				Data:           eventInstructionData(pumpfun.TradeEventDiscriminator, tradeEventPayload(untracked)),
			}}}},
		},
	}

	events, err := parser.parseTx(input)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParserDropsMalformedInstruction(t *testing.T) {
	config := testConfig()
	parser := NewParseAggregator(config, testLog(t))

	id := mzip.ProjectIDFromUUID(uuid.New())
	input := inputWith(config,
		// Truncated payload fails to decode and is dropped alone.
		InnerInstruction{
			ProgramIDIndex: 0,
			Data:           eventInstructionData(mzip.StaticPoolBuyEventDiscriminator, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}),
		},
		InnerInstruction{
			ProgramIDIndex: 0,
			Data:           eventInstructionData(mzip.StaticPoolSellEventDiscriminator, staticPoolBuyPayload(id, 9)),
		},
	)

	events, err := parser.parseTx(input)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestParserWrongOuterTagSkipped(t *testing.T) {
	config := testConfig()
	parser := NewParseAggregator(config, testLog(t))

	data := make([]byte, 40)
	input := inputWith(config, InnerInstruction{ProgramIDIndex: 0, Data: data})

	events, err := parser.parseTx(input)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParserMintSuffixFilter(t *testing.T) {
	config := testConfig()
	mint := solana.NewKeypair().Pubkey()
	config.AllowedMintSuffix = mint.String()[40:]

	parser := NewParseAggregator(config, testLog(t))
	matching := inputWith(config, InnerInstruction{
		ProgramIDIndex: 1,
		Data:           eventInstructionData(pumpfun.TradeEventDiscriminator, tradeEventPayload(mint)),
	})
	events, err := parser.parseTx(matching)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	other := solana.NewKeypair().Pubkey()
	filtered := inputWith(config, InnerInstruction{
		ProgramIDIndex: 1,
		Data:           eventInstructionData(pumpfun.TradeEventDiscriminator, tradeEventPayload(other)),
	})
	events, err = parser.parseTx(filtered)
	require.NoError(t, err)
	assert.Empty(t, events)
}
