package chainsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KongzTech/moonzip-backend/internal/solana"
)

func geyserTestServer(t *testing.T, serve func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestGeyserSubscribeAndKeepalive(t *testing.T) {
	mzipProgram := solana.NewKeypair().Pubkey()
	received := make(chan subscribeRequest, 4)

	endpoint := geyserTestServer(t, func(conn *websocket.Conn) {
		// The subscription request arrives first.
		var request subscribeRequest
		require.NoError(t, conn.ReadJSON(&request))
		received <- request

		// Server keepalive ping: the client must answer with its own
		// ping frame.
		require.NoError(t, conn.WriteJSON(map[string]any{"ping": map[string]any{}}))
		var pingReply subscribeRequest
		require.NoError(t, conn.ReadJSON(&pingReply))
		received <- pingReply

		update := subscribeUpdate{
			Slot: 99,
			Transaction: &txUpdate{
				Transaction: &StreamedTransaction{
					Message: &TxMessage{AccountKeys: [][]byte{mzipProgram[:]}},
				},
				Meta: &TxMeta{},
			},
		}
		require.NoError(t, conn.WriteJSON(update))
		// Keep the stream open until the client goes away.
		conn.ReadMessage()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := NewGeyserClient(GeyserConfig{Endpoint: endpoint})
	require.NoError(t, err)

	config := Config{MzipProgram: mzipProgram, PumpfunProgram: solana.NewKeypair().Pubkey()}
	fetcher := NewChainFetcher(client, config, testLog(t))
	out := fetcher.Serve(ctx)

	input := <-out
	assert.EqualValues(t, 99, input.Slot)
	require.NotNil(t, input.Transaction)

	subscription := <-received
	filter, ok := subscription.Transactions["client"]
	require.True(t, ok)
	require.NotNil(t, filter.Vote)
	assert.False(t, *filter.Vote)
	require.NotNil(t, filter.Failed)
	assert.False(t, *filter.Failed)
	assert.Contains(t, filter.AccountInclude, mzipProgram.String())
	assert.Equal(t, "confirmed", subscription.Commitment)

	pingReply := <-received
	require.NotNil(t, pingReply.Ping)
	assert.Equal(t, 1, pingReply.Ping.ID)
}
