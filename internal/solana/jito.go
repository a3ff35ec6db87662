package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// JitoClientConfig configures one block-engine endpoint.
type JitoClientConfig struct {
	BaseURL string `yaml:"base_url"`
}

func (c JitoClientConfig) baseURL() string {
	if c.BaseURL == "" {
		return "https://frankfurt.mainnet.block-engine.jito.wtf"
	}
	return c.BaseURL
}

// JitoClient submits transactions and bundles through the relayed-RPC path.
type JitoClient struct {
	baseURL string
	client  *http.Client
}

// NewJitoClient creates a client for the configured block engine.
func NewJitoClient(cfg JitoClientConfig) *JitoClient {
	return &JitoClient{
		baseURL: cfg.baseURL(),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type jitoResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *JitoClient) call(ctx context.Context, path, method string, params []any, out any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("jito %s: %w", method, err)
	}
	defer resp.Body.Close()

	var decoded jitoResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("jito %s: decode response (status %s): %w", method, resp.Status, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("jito %s: error %d: %s", method, decoded.Error.Code, decoded.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("jito %s: decode result: %w", method, err)
		}
	}
	return nil
}

// SubmitSingleTx submits one signed transaction, returning its signature.
func (c *JitoClient) SubmitSingleTx(ctx context.Context, tx *Transaction) (Signature, error) {
	var result string
	params := []any{tx.SerializeBase64(), map[string]any{"encoding": "base64"}}
	if err := c.call(ctx, "/api/v1/transactions", "sendTransaction", params, &result); err != nil {
		return Signature{}, err
	}
	return ParseSignature(result)
}

// SubmitBundle submits an atomic bundle, returning the bundle id.
func (c *JitoClient) SubmitBundle(ctx context.Context, txs []*Transaction) (string, error) {
	serialized := make([]string, len(txs))
	for i, tx := range txs {
		serialized[i] = tx.SerializeBase64()
	}
	var result string
	params := []any{serialized, map[string]any{"encoding": "base64"}}
	if err := c.call(ctx, "/api/v1/bundles", "sendBundle", params, &result); err != nil {
		return "", err
	}
	return result, nil
}

// ErrBundleNotLanded marks a bundle whose status list is still empty. The
// executor treats it as transient.
var ErrBundleNotLanded = fmt.Errorf("empty bundle statuses: not landed")

// BundleStatus is one entry of the bundle status endpoint.
type BundleStatus struct {
	ConfirmationStatus string          `json:"confirmation_status"`
	Err                json.RawMessage `json:"err"`
}

// Failed reports whether the bundle carries an error. The endpoint encodes
// it as {"Ok":null} on success and {"Err":"..."} on failure.
func (s BundleStatus) Failed() bool {
	if len(s.Err) == 0 || string(s.Err) == "null" {
		return false
	}
	var wrapped struct {
		Err *string `json:"Err"`
	}
	if err := json.Unmarshal(s.Err, &wrapped); err != nil {
		return true
	}
	return wrapped.Err != nil
}

// ErrString returns the bundle error text, if any.
func (s BundleStatus) ErrString() string {
	var wrapped struct {
		Err *string `json:"Err"`
	}
	if err := json.Unmarshal(s.Err, &wrapped); err == nil && wrapped.Err != nil {
		return *wrapped.Err
	}
	return string(s.Err)
}

// GetBundleStatus polls the status of a submitted bundle.
func (c *JitoClient) GetBundleStatus(ctx context.Context, bundleID string) (BundleStatus, error) {
	var result *struct {
		Value []BundleStatus `json:"value"`
	}
	params := []any{[]string{bundleID}}
	if err := c.call(ctx, "/api/v1/getBundleStatuses", "getBundleStatuses", params, &result); err != nil {
		return BundleStatus{}, err
	}
	if result == nil || len(result.Value) == 0 {
		return BundleStatus{}, ErrBundleNotLanded
	}
	return result.Value[0], nil
}

// Tip recipient accounts operated by the relayer. One is chosen uniformly at
// random per bundle.
var jitoTipAccounts = []Pubkey{
	MustParsePubkey("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
	MustParsePubkey("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	MustParsePubkey("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	MustParsePubkey("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	MustParsePubkey("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	MustParsePubkey("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	MustParsePubkey("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	MustParsePubkey("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
}

// TipState mirrors the relayer's tip statistics stream.
type TipState struct {
	LandedTips75thPercentile float64 `json:"landed_tips_75th_percentile"`
}

const maxTipSol = 0.002

// OptimalTip sizes a bundle tip: the 75th percentile of landed tips capped
// at 0.002 SOL, plus up to 99 lamports of jitter to avoid exact-amount
// collisions with other senders.
func (s TipState) OptimalTip() uint64 {
	tip := SolToLamports(min(s.LandedTips75thPercentile, maxTipSol))
	return tip + uint64(rand.Intn(100))
}

// TipInstruction builds the tip transfer paid by payer.
func (s TipState) TipInstruction(payer Pubkey) Instruction {
	recipient := jitoTipAccounts[rand.Intn(len(jitoTipAccounts))]
	return Transfer(payer, recipient, s.OptimalTip())
}
