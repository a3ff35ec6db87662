package fetchers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/KongzTech/moonzip-backend/internal/solana"
)

const defaultTipStreamURL = "wss://bundles.jito.wtf/api/v1/bundles/tip_stream"

// TipStateFetcher consumes the relayer's tip statistics push stream. Fetch
// blocks on the next frame, so the runner uses a zero config and the watch
// comparator accepts every value.
type TipStateFetcher struct {
	URL string

	conn *websocket.Conn
}

// Name implements Fetcher.
func (f *TipStateFetcher) Name() string { return "jito-tip-state" }

// Init dials the stream.
func (f *TipStateFetcher) Init(ctx context.Context) error {
	url := f.URL
	if url == "" {
		url = defaultTipStreamURL
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial tip stream: %w", err)
	}
	f.conn = conn
	return nil
}

// Fetch reads the next frame: a JSON array of tip states.
func (f *TipStateFetcher) Fetch(ctx context.Context) (solana.TipState, error) {
	if f.conn == nil {
		return solana.TipState{}, fmt.Errorf("tip stream not initialized")
	}
	_, frame, err := f.conn.ReadMessage()
	if err != nil {
		// Redial on the next attempt; the runner backs off in between.
		f.conn.Close()
		f.conn = nil
		if dialErr := f.Init(ctx); dialErr != nil {
			return solana.TipState{}, dialErr
		}
		return solana.TipState{}, fmt.Errorf("read tip stream frame: %w", err)
	}
	var states []solana.TipState
	if err := json.Unmarshal(frame, &states); err != nil {
		return solana.TipState{}, fmt.Errorf("decode tip stream frame: %w", err)
	}
	if len(states) == 0 {
		return solana.TipState{}, fmt.Errorf("empty tip state list received")
	}
	return states[0], nil
}

// AlwaysAccept is the tip stream comparator: there is no staleness notion,
// every frame replaces the previous one.
func AlwaysAccept(old, new solana.TipState) bool { return true }
