package mzip

import (
	"fmt"

	"github.com/KongzTech/moonzip-backend/internal/solana"
)

// Event is an event emitted by the native program.
type Event interface {
	isMzipEvent()
}

// ProjectChangedEvent marks a stage transition of a project.
type ProjectChangedEvent struct {
	ProjectID ProjectID
	FromStage ProjectStage
	ToStage   ProjectStage
}

// StaticPoolBuyEvent records a purchase into a static pool.
type StaticPoolBuyEvent struct {
	ProjectID        ProjectID
	User             solana.Pubkey
	RequestSols      uint64
	OutputTokens     uint64
	NewCollectedSols uint64
}

// StaticPoolSellEvent records a sale back into a static pool.
type StaticPoolSellEvent struct {
	ProjectID        ProjectID
	User             solana.Pubkey
	RequestTokens    uint64
	OutputSols       uint64
	NewCollectedSols uint64
}

// CurvedPoolBuyEvent records a purchase from a curve pool.
type CurvedPoolBuyEvent struct {
	ProjectID                ProjectID
	User                     solana.Pubkey
	RequestSols              uint64
	MinTokenOutput           uint64
	TokensOutput             uint64
	NewVirtualTokenReserves  uint64
	NewVirtualSolReserves    uint64
}

// CurvedPoolSellEvent records a sale into a curve pool.
type CurvedPoolSellEvent struct {
	ProjectID                ProjectID
	User                     solana.Pubkey
	RequestTokens            uint64
	MinSolOutput             uint64
	SolsOutput               uint64
	NewVirtualTokenReserves  uint64
	NewVirtualSolReserves    uint64
}

func (ProjectChangedEvent) isMzipEvent()  {}
func (StaticPoolBuyEvent) isMzipEvent()   {}
func (StaticPoolSellEvent) isMzipEvent()  {}
func (CurvedPoolBuyEvent) isMzipEvent()   {}
func (CurvedPoolSellEvent) isMzipEvent()  {}

// Event discriminators, derived the anchor way from the event struct names.
var (
	ProjectChangedEventDiscriminator = AnchorDiscriminator("event", "ProjectChangedEvent")
	StaticPoolBuyEventDiscriminator  = AnchorDiscriminator("event", "StaticPoolBuyEvent")
	StaticPoolSellEventDiscriminator = AnchorDiscriminator("event", "StaticPoolSellEvent")
	CurvedPoolBuyEventDiscriminator  = AnchorDiscriminator("event", "CurvedPoolBuyEvent")
	CurvedPoolSellEventDiscriminator = AnchorDiscriminator("event", "CurvedPoolSellEvent")
)

func readProjectID(dec *solana.Decoder) ProjectID {
	var id ProjectID
	raw := dec.U128()
	copy(id[:], raw[:])
	return id
}

// ParseEvent dispatches an event payload by its discriminator.
func ParseEvent(discriminator [8]byte, payload []byte) (Event, error) {
	dec := solana.NewDecoder(payload)
	var event Event
	switch discriminator {
	case ProjectChangedEventDiscriminator:
		event = ProjectChangedEvent{
			ProjectID: readProjectID(dec),
			FromStage: ProjectStage(dec.U8()),
			ToStage:   ProjectStage(dec.U8()),
		}
	case StaticPoolBuyEventDiscriminator:
		event = StaticPoolBuyEvent{
			ProjectID:        readProjectID(dec),
			User:             dec.Pubkey(),
			RequestSols:      dec.U64(),
			OutputTokens:     dec.U64(),
			NewCollectedSols: dec.U64(),
		}
	case StaticPoolSellEventDiscriminator:
		event = StaticPoolSellEvent{
			ProjectID:        readProjectID(dec),
			User:             dec.Pubkey(),
			RequestTokens:    dec.U64(),
			OutputSols:       dec.U64(),
			NewCollectedSols: dec.U64(),
		}
	case CurvedPoolBuyEventDiscriminator:
		event = CurvedPoolBuyEvent{
			ProjectID:               readProjectID(dec),
			User:                    dec.Pubkey(),
			RequestSols:             dec.U64(),
			MinTokenOutput:          dec.U64(),
			TokensOutput:            dec.U64(),
			NewVirtualTokenReserves: dec.U64(),
			NewVirtualSolReserves:   dec.U64(),
		}
	case CurvedPoolSellEventDiscriminator:
		event = CurvedPoolSellEvent{
			ProjectID:               readProjectID(dec),
			User:                    dec.Pubkey(),
			RequestTokens:           dec.U64(),
			MinSolOutput:            dec.U64(),
			SolsOutput:              dec.U64(),
			NewVirtualTokenReserves: dec.U64(),
			NewVirtualSolReserves:   dec.U64(),
		}
	default:
		return nil, fmt.Errorf("unsupported event discriminator: %x", discriminator)
	}
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}
	return event, nil
}
