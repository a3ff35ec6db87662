package chainsync

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/KongzTech/moonzip-backend/internal/mzip"
	"github.com/KongzTech/moonzip-backend/internal/pumpfun"
	"github.com/KongzTech/moonzip-backend/internal/solana"
)

// Event is a tracked domain event: a native program event or an external
// AMM trade.
type Event interface {
	isTrackedEvent()
}

// MzipEvent wraps a native program event.
type MzipEvent struct {
	Inner mzip.Event
}

// PumpfunTrade wraps an external AMM trade event.
type PumpfunTrade struct {
	Inner pumpfun.TradeEvent
}

func (MzipEvent) isTrackedEvent()    {}
func (PumpfunTrade) isTrackedEvent() {}

// ParseResult is the per-transaction batch of extracted events.
type ParseResult struct {
	Slot   uint64
	Events []Event
}

// parseWorkers bounds the concurrent decoding of inner instructions.
const parseWorkers = 4

// ParseAggregator decodes raw transactions into domain events.
type ParseAggregator struct {
	config Config
	log    *logrus.Entry
}

// NewParseAggregator creates the parser stage.
func NewParseAggregator(config Config, log *logrus.Entry) *ParseAggregator {
	return &ParseAggregator{
		config: config,
		log:    log.WithField("component", "parser"),
	}
}

// Serve drains the input queue, emitting a ParseResult per transaction that
// produced at least one event. The output queue preserves input order.
func (p *ParseAggregator) Serve(in <-chan ParseInput) <-chan ParseResult {
	out := make(chan ParseResult, bufferCapacity)
	go func() {
		defer close(out)
		for input := range in {
			events, err := p.parseTx(input)
			if err != nil {
				p.log.WithError(err).WithField("slot", input.Slot).Error("parse tick error")
				continue
			}
			if len(events) == 0 {
				p.log.WithField("slot", input.Slot).Debug("ignored transaction: no needed events")
				continue
			}
			out <- ParseResult{Slot: input.Slot, Events: events}
		}
		// Input closure means the pipeline collapsed; nothing left to do.
		p.log.Error("parser input channel closed")
	}()
	return out
}

func (p *ParseAggregator) parseTx(input ParseInput) ([]Event, error) {
	if input.Transaction.Message == nil {
		return nil, fmt.Errorf("no message in transaction")
	}
	accounts := make([]solana.Pubkey, len(input.Transaction.Message.AccountKeys))
	for i, raw := range input.Transaction.Message.AccountKeys {
		key, err := solana.PubkeyFromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("deserialize account key %d: %w", i, err)
		}
		accounts[i] = key
	}

	var flat []InnerInstruction
	for _, group := range input.Meta.InnerInstructions {
		flat = append(flat, group.Instructions...)
	}

	// Instructions decode independently; order within a transaction does
	// not matter because all state updates are idempotent per field.
	events := make([]Event, len(flat))
	var wg sync.WaitGroup
	sem := make(chan struct{}, parseWorkers)
	for i, instruction := range flat {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, instruction InnerInstruction) {
			defer wg.Done()
			defer func() { <-sem }()
			event, err := p.parseInstruction(accounts, instruction)
			if err != nil {
				// A single failed instruction is dropped; the transaction
				// continues. Consumers cannot count these drops.
				p.log.WithError(err).Trace("error occurred with event")
				return
			}
			if event != nil && p.keepEvent(event) {
				events[i] = event
			}
		}(i, instruction)
	}
	wg.Wait()

	kept := events[:0]
	for _, event := range events {
		if event != nil {
			kept = append(kept, event)
		}
	}
	return kept, nil
}

func (p *ParseAggregator) parseInstruction(accounts []solana.Pubkey, instruction InnerInstruction) (Event, error) {
	if int(instruction.ProgramIDIndex) >= len(accounts) {
		return nil, fmt.Errorf("program id index %d out of range", instruction.ProgramIDIndex)
	}
	programID := accounts[instruction.ProgramIDIndex]

	tracked := false
	for _, candidate := range p.config.TrackedPrograms() {
		if programID == candidate {
			tracked = true
			break
		}
	}
	if !tracked {
		return nil, nil
	}

	discriminator, payload, ok := unpackEventData(instruction.Data)
	if !ok {
		return nil, nil
	}

	switch programID {
	case p.config.MzipProgram:
		event, err := mzip.ParseEvent(discriminator, payload)
		if err != nil {
			return nil, err
		}
		return MzipEvent{Inner: event}, nil
	case p.config.PumpfunProgram:
		if discriminator != pumpfun.TradeEventDiscriminator {
			return nil, fmt.Errorf("unsupported pumpfun event discriminator: %x", discriminator)
		}
		trade, err := pumpfun.ParseTradeEvent(payload)
		if err != nil {
			return nil, err
		}
		return PumpfunTrade{Inner: trade}, nil
	default:
		return nil, fmt.Errorf("invariant: program must be filtered in advance")
	}
}

// keepEvent applies the optional mint-suffix filter to external AMM trades.
func (p *ParseAggregator) keepEvent(event Event) bool {
	trade, ok := event.(PumpfunTrade)
	if !ok {
		return true
	}
	if p.config.AllowedMintSuffix == "" {
		return true
	}
	return strings.HasSuffix(trade.Inner.Mint.String(), p.config.AllowedMintSuffix)
}

// unpackEventData splits instruction data into the inner event
// discriminator and payload. The outer discriminator must match the anchor
// event instruction tag.
func unpackEventData(data []byte) ([8]byte, []byte, bool) {
	if len(data) <= mzip.DiscriminatorSize*2 {
		return [8]byte{}, nil, false
	}
	var outer [8]byte
	copy(outer[:], data[:mzip.DiscriminatorSize])
	if outer != mzip.EventInstructionTag {
		return [8]byte{}, nil, false
	}
	var inner [8]byte
	copy(inner[:], data[mzip.DiscriminatorSize:mzip.DiscriminatorSize*2])
	return inner, data[mzip.DiscriminatorSize*2:], true
}
