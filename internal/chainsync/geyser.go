// Package chainsync is the ingest pipeline: a streaming subscription of
// transactions touching the tracked programs, a parser extracting domain
// events from inner instructions, and an applier folding them into storage.
package chainsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// GeyserConfig configures the streaming transaction feed.
type GeyserConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// GeyserClient subscribes to the push-based transaction feed. Frames carry
// {slot, transaction, meta} updates plus ping/pong keepalives; the client
// answers server pings with a SubscribeRequestPing{id:1}.
type GeyserClient struct {
	config GeyserConfig
}

// NewGeyserClient creates a client for the configured endpoint.
func NewGeyserClient(config GeyserConfig) (*GeyserClient, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("geyser endpoint required")
	}
	return &GeyserClient{config: config}, nil
}

// TxSubscriptionFilter selects the transactions streamed to the client.
type TxSubscriptionFilter struct {
	Vote           *bool    `json:"vote,omitempty"`
	Failed         *bool    `json:"failed,omitempty"`
	AccountInclude []string `json:"accountInclude,omitempty"`
	AccountExclude []string `json:"accountExclude,omitempty"`
}

type subscribeRequest struct {
	Transactions map[string]TxSubscriptionFilter `json:"transactions,omitempty"`
	Commitment   string                          `json:"commitment,omitempty"`
	Ping         *subscribePing                  `json:"ping,omitempty"`
}

type subscribePing struct {
	ID int `json:"id"`
}

// TxMessage is the message portion of a streamed transaction.
type TxMessage struct {
	AccountKeys [][]byte `json:"accountKeys"`
}

// StreamedTransaction is the raw transaction content of an update.
type StreamedTransaction struct {
	Message *TxMessage `json:"message"`
}

// InnerInstruction is one instruction executed inside a transaction.
type InnerInstruction struct {
	ProgramIDIndex uint32 `json:"programIdIndex"`
	Accounts       []byte `json:"accounts"`
	Data           []byte `json:"data"`
}

// InnerInstructions groups the inner instructions of one top-level call.
type InnerInstructions struct {
	Index        uint32             `json:"index"`
	Instructions []InnerInstruction `json:"instructions"`
}

// TxMeta is the status metadata of a streamed transaction.
type TxMeta struct {
	InnerInstructions []InnerInstructions `json:"innerInstructions"`
}

type txUpdate struct {
	Transaction *StreamedTransaction `json:"transaction"`
	Meta        *TxMeta              `json:"meta"`
}

type subscribeUpdate struct {
	Slot        uint64          `json:"slot"`
	Transaction *txUpdate       `json:"transaction"`
	Ping        json.RawMessage `json:"ping"`
	Pong        json.RawMessage `json:"pong"`
}

// TxStream is one live subscription.
type TxStream struct {
	conn *websocket.Conn
}

// SubscribeTxs opens a subscription at confirmed commitment.
func (c *GeyserClient) SubscribeTxs(ctx context.Context, filter TxSubscriptionFilter) (*TxStream, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 60 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.config.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to geyser server: %w", err)
	}
	request := subscribeRequest{
		Transactions: map[string]TxSubscriptionFilter{"client": filter},
		Commitment:   "confirmed",
	}
	if err := conn.WriteJSON(request); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send subscription request: %w", err)
	}
	return &TxStream{conn: conn}, nil
}

// Next returns the next transaction update, transparently answering
// keepalive pings. It returns an error when the stream terminates.
func (s *TxStream) Next(ctx context.Context) (uint64, *txUpdate, error) {
	for {
		if deadline, ok := ctx.Deadline(); ok {
			_ = s.conn.SetReadDeadline(deadline)
		}
		var update subscribeUpdate
		if err := s.conn.ReadJSON(&update); err != nil {
			return 0, nil, fmt.Errorf("read stream update: %w", err)
		}
		switch {
		case update.Transaction != nil:
			return update.Slot, update.Transaction, nil
		case update.Ping != nil:
			// Keeps load balancers that expect client pings alive.
			reply := subscribeRequest{Ping: &subscribePing{ID: 1}}
			if err := s.conn.WriteJSON(reply); err != nil {
				return 0, nil, fmt.Errorf("answer keepalive ping: %w", err)
			}
		case update.Pong != nil:
			// Ignored.
		default:
			return 0, nil, fmt.Errorf("unexpected stream message")
		}
	}
}

// Close terminates the subscription.
func (s *TxStream) Close() {
	_ = s.conn.Close()
}
