package executor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KongzTech/moonzip-backend/infrastructure/config"
	"github.com/KongzTech/moonzip-backend/internal/fetchers"
	"github.com/KongzTech/moonzip-backend/internal/solana"
)

func testLog(t *testing.T) *logrus.Entry {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

type rpcCall struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type fakeCluster struct {
	t *testing.T

	signatureStatus  func(call int) any
	bundleStatus     func(call int) any
	submitFails      atomic.Int32
	statusCalls      atomic.Int32
	bundleCalls      atomic.Int32
	submittedSingles atomic.Int32
	submittedBundles atomic.Int32
}

func (f *fakeCluster) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var call rpcCall
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&call))

		respond := func(result any) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "result": result})
		}
		switch call.Method {
		case "sendTransaction":
			f.submittedSingles.Add(1)
			if f.submitFails.Load() > 0 {
				f.submitFails.Add(-1)
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			respond(solana.Signature{}.String())
		case "sendBundle":
			f.submittedBundles.Add(1)
			respond("bundle-id-1")
		case "getSignatureStatuses":
			respond(map[string]any{
				"context": map[string]any{"slot": 1},
				"value":   []any{f.signatureStatus(int(f.statusCalls.Add(1)))},
			})
		case "getBundleStatuses":
			respond(f.bundleStatus(int(f.bundleCalls.Add(1))))
		default:
			f.t.Fatalf("unexpected rpc method %s", call.Method)
		}
	}
}

func testExecutor(t *testing.T, cluster *fakeCluster) *TxExecutor {
	server := httptest.NewServer(cluster.handler())
	t.Cleanup(server.Close)

	pool, err := solana.NewPool(solana.PoolConfig{
		RPCClients: []solana.RPCClientConfig{{
			Node: solana.NodeConfig{RPCURL: server.URL},
			Limit: solana.RateLimitConfig{
				PerSecond: 1000, Burst: 1000,
				JitterMin:      config.Duration(time.Millisecond),
				JitterInterval: config.Duration(time.Millisecond),
			},
		}},
		JitoClients: []solana.JitoClientConfig{{BaseURL: server.URL}},
	})
	require.NoError(t, err)

	watch := fetchers.NewWatch[fetchers.SolanaMeta](nil)
	watch.Publish(fetchers.SolanaMeta{
		Rent:            solana.Rent{LamportsPerByteYear: 3480, ExemptionThreshold: 2},
		RecentBlockhash: solana.Hash{1},
	})

	return New(pool, watch.Receiver(), Config{
		MaxTries:         2,
		ErrRetryInterval: config.Duration(5 * time.Millisecond),
	}, testLog(t))
}

func sampleRequest() TransactionRequest {
	payer := solana.NewKeypair()
	return TransactionRequest{
		Instructions: []solana.Instruction{
			solana.Transfer(payer.Pubkey(), solana.NewKeypair().Pubkey(), 10),
		},
		Payer: payer,
	}
}

func TestExecuteSingleConfirms(t *testing.T) {
	cluster := &fakeCluster{t: t}
	cluster.signatureStatus = func(int) any {
		return map[string]any{"confirmationStatus": "confirmed"}
	}
	exec := testExecutor(t, cluster)

	require.NoError(t, exec.ExecuteSingle(context.Background(), sampleRequest()))
	assert.EqualValues(t, 1, cluster.submittedSingles.Load())
}

func TestExecuteSingleRetriesSubmitFailures(t *testing.T) {
	cluster := &fakeCluster{t: t}
	cluster.signatureStatus = func(int) any {
		return map[string]any{"confirmationStatus": "confirmed"}
	}
	cluster.submitFails.Store(1)
	exec := testExecutor(t, cluster)

	require.NoError(t, exec.ExecuteSingle(context.Background(), sampleRequest()))
	assert.EqualValues(t, 2, cluster.submittedSingles.Load())
}

func TestExecuteSingleValidatorErrorIsFatal(t *testing.T) {
	cluster := &fakeCluster{t: t}
	cluster.signatureStatus = func(int) any {
		return map[string]any{
			"confirmationStatus": "processed",
			"err":                map[string]any{"InstructionError": []any{0, "Custom"}},
		}
	}
	exec := testExecutor(t, cluster)

	err := exec.ExecuteSingle(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fatal error, stop execution")
	// No second submission after a validator rejection.
	assert.EqualValues(t, 1, cluster.submittedSingles.Load())
}

func TestExecuteSingleExhaustsTries(t *testing.T) {
	cluster := &fakeCluster{t: t}
	cluster.signatureStatus = func(int) any { return nil }
	exec := testExecutor(t, cluster)

	err := exec.ExecuteSingle(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")
}

func TestExecuteBatchConfirms(t *testing.T) {
	cluster := &fakeCluster{t: t}
	cluster.bundleStatus = func(call int) any {
		if call == 1 {
			// Not landed yet: empty status list is transient.
			return nil
		}
		return map[string]any{
			"value": []any{map[string]any{"confirmation_status": "confirmed", "err": map[string]any{"Ok": nil}}},
		}
	}
	exec := testExecutor(t, cluster)

	err := exec.ExecuteBatch(context.Background(), []TransactionRequest{sampleRequest(), sampleRequest()})
	require.NoError(t, err)
	assert.EqualValues(t, 2, cluster.submittedBundles.Load())
}

func TestExecuteBatchBundleErrorIsFatal(t *testing.T) {
	cluster := &fakeCluster{t: t}
	cluster.bundleStatus = func(int) any {
		return map[string]any{
			"value": []any{map[string]any{"confirmation_status": "processed", "err": map[string]any{"Err": "simulation failed"}}},
		}
	}
	exec := testExecutor(t, cluster)

	err := exec.ExecuteBatch(context.Background(), []TransactionRequest{sampleRequest()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fatal error, stop execution")
	assert.EqualValues(t, 1, cluster.submittedBundles.Load())
}
