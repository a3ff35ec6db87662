package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Commitment levels understood by the cluster.
const (
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// RPCClient talks JSON-RPC 2.0 to a Solana node.
type RPCClient struct {
	endpoint string
	client   *http.Client
}

// NewRPCClient creates a client against one endpoint.
func NewRPCClient(endpoint string) *RPCClient {
	return &RPCClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// Call performs a raw JSON-RPC call, decoding the result into out.
func (c *RPCClient) Call(ctx context.Context, method string, params []any, out any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("rpc %s: decode response (status %s): %w", method, resp.Status, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("rpc %s: node returned error %d: %s", method, decoded.Error.Code, decoded.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("rpc %s: decode result: %w", method, err)
		}
	}
	return nil
}

type rpcContext struct {
	Slot uint64 `json:"slot"`
}

type accountInfo struct {
	Data []string `json:"data"`
}

func (a *accountInfo) bytes() ([]byte, error) {
	if a == nil || len(a.Data) == 0 {
		return nil, fmt.Errorf("account has no data")
	}
	return base64.StdEncoding.DecodeString(a.Data[0])
}

// AccountData is raw account content together with the slot it was read at.
type AccountData struct {
	Slot uint64
	Data []byte
}

// GetAccountData fetches one account's raw data.
func (c *RPCClient) GetAccountData(ctx context.Context, key Pubkey, commitment string) (AccountData, error) {
	var result struct {
		Context rpcContext   `json:"context"`
		Value   *accountInfo `json:"value"`
	}
	params := []any{key.String(), map[string]any{"encoding": "base64", "commitment": commitment}}
	if err := c.Call(ctx, "getAccountInfo", params, &result); err != nil {
		return AccountData{}, err
	}
	if result.Value == nil {
		return AccountData{}, fmt.Errorf("account %s not found", key)
	}
	raw, err := result.Value.bytes()
	if err != nil {
		return AccountData{}, err
	}
	return AccountData{Slot: result.Context.Slot, Data: raw}, nil
}

// GetMultipleAccounts fetches raw data for many accounts in one call,
// returning the read slot. Missing accounts come back as nil entries,
// matching the request order.
func (c *RPCClient) GetMultipleAccounts(ctx context.Context, keys []Pubkey, commitment string) ([][]byte, uint64, error) {
	encoded := make([]string, len(keys))
	for i, key := range keys {
		encoded[i] = key.String()
	}
	var result struct {
		Context rpcContext     `json:"context"`
		Value   []*accountInfo `json:"value"`
	}
	params := []any{encoded, map[string]any{"encoding": "base64", "commitment": commitment}}
	if err := c.Call(ctx, "getMultipleAccounts", params, &result); err != nil {
		return nil, 0, err
	}
	out := make([][]byte, len(result.Value))
	for i, info := range result.Value {
		if info == nil {
			continue
		}
		raw, err := info.bytes()
		if err != nil {
			return nil, 0, fmt.Errorf("account %s: %w", keys[i], err)
		}
		out[i] = raw
	}
	return out, result.Context.Slot, nil
}

// GetLatestBlockhash returns the most recent blockhash and its slot.
func (c *RPCClient) GetLatestBlockhash(ctx context.Context, commitment string) (Hash, uint64, error) {
	var result struct {
		Context rpcContext `json:"context"`
		Value   struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	params := []any{map[string]any{"commitment": commitment}}
	if err := c.Call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return Hash{}, 0, err
	}
	hash, err := ParseHash(result.Value.Blockhash)
	if err != nil {
		return Hash{}, 0, err
	}
	return hash, result.Context.Slot, nil
}

// SignatureStatus reports the cluster's view of a submitted signature.
// A nil entry means the cluster has not seen the signature.
type SignatureStatus struct {
	ConfirmationStatus string          `json:"confirmationStatus"`
	Err                json.RawMessage `json:"err"`
}

// Failed reports whether the cluster recorded a transaction error.
func (s *SignatureStatus) Failed() bool {
	return s != nil && len(s.Err) > 0 && string(s.Err) != "null"
}

// GetSignatureStatus fetches the status of one signature.
func (c *RPCClient) GetSignatureStatus(ctx context.Context, sig Signature) (*SignatureStatus, error) {
	var result struct {
		Value []*SignatureStatus `json:"value"`
	}
	params := []any{[]string{sig.String()}, map[string]any{"searchTransactionHistory": false}}
	if err := c.Call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}
	if len(result.Value) == 0 {
		return nil, nil
	}
	return result.Value[0], nil
}
