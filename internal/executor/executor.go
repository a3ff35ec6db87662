// Package executor signs, submits and confirms transactions through the
// relayed-RPC path, with bounded retries on transient failures.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KongzTech/moonzip-backend/infrastructure/config"
	"github.com/KongzTech/moonzip-backend/infrastructure/metrics"
	"github.com/KongzTech/moonzip-backend/internal/fetchers"
	"github.com/KongzTech/moonzip-backend/internal/solana"
)

// Config bounds the retry budget.
type Config struct {
	MaxTries         int           `yaml:"max_tries"`
	ErrRetryInterval config.Duration `yaml:"err_retry_interval"`
}

func (c Config) normalized() Config {
	if c.MaxTries <= 0 {
		c.MaxTries = 3
	}
	if c.ErrRetryInterval <= 0 {
		c.ErrRetryInterval = config.Duration(200 * time.Millisecond)
	}
	return c
}

// Confirmation polling bounds.
const (
	singleMaxWait      = 1500 * time.Millisecond
	singlePollInterval = 500 * time.Millisecond
	bundleMaxWait      = 2 * time.Second
	bundlePollInterval = 300 * time.Millisecond
	metaWaitTimeout    = 10 * time.Second
)

// fatalError wraps errors that must not be retried: the cluster or the
// bundle endpoint rejected the transaction itself.
type fatalError struct{ err error }

func (f fatalError) Error() string { return f.err.Error() }
func (f fatalError) Unwrap() error { return f.err }

// TransactionRequest is one transaction to sign and submit. Each try signs
// afresh under the latest cached blockhash; tries share no state.
type TransactionRequest struct {
	Instructions []solana.Instruction
	Signers      []solana.Keypair
	Payer        solana.Keypair
}

func (r TransactionRequest) signed(blockhash solana.Hash) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(r.Instructions, r.Payer.Pubkey())
	if err != nil {
		return nil, err
	}
	signers := append([]solana.Keypair{r.Payer}, r.Signers...)
	if err := tx.Sign(signers, blockhash); err != nil {
		return nil, err
	}
	return tx, nil
}

// TxExecutor submits single transactions and atomic bundles.
type TxExecutor struct {
	pool   *solana.Pool
	meta   *fetchers.Receiver[fetchers.SolanaMeta]
	config Config
	log    *logrus.Entry
}

// New creates the executor.
func New(pool *solana.Pool, meta *fetchers.Receiver[fetchers.SolanaMeta], config Config, log *logrus.Entry) *TxExecutor {
	return &TxExecutor{
		pool:   pool,
		meta:   meta,
		config: config.normalized(),
		log:    log.WithField("component", "tx-executor"),
	}
}

// ExecuteSingle submits one transaction and waits for its confirmation.
func (e *TxExecutor) ExecuteSingle(ctx context.Context, request TransactionRequest) error {
	return e.withRetries(ctx, "single", func() error {
		return e.executeSingleTick(ctx, request)
	})
}

// ExecuteBatch submits the requests as one atomic bundle and waits until
// the bundle confirms.
func (e *TxExecutor) ExecuteBatch(ctx context.Context, requests []TransactionRequest) error {
	return e.withRetries(ctx, "bundle", func() error {
		return e.executeBatchTick(ctx, requests)
	})
}

func (e *TxExecutor) withRetries(ctx context.Context, path string, tick func() error) error {
	for tries := 0; tries < e.config.MaxTries; tries++ {
		metrics.ExecutorTries.WithLabelValues(path).Inc()
		err := tick()
		if err == nil {
			return nil
		}
		var fatal fatalError
		if errors.As(err, &fatal) {
			return fmt.Errorf("fatal error, stop execution: %w", fatal.err)
		}
		e.log.WithError(err).Warn("transaction submission failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.config.ErrRetryInterval.Std()):
		}
	}
	return fmt.Errorf("transaction submission failed after %d tries: exhausted", e.config.MaxTries)
}

func (e *TxExecutor) blockhash(ctx context.Context) (solana.Hash, error) {
	waitCtx, cancel := context.WithTimeout(ctx, metaWaitTimeout)
	defer cancel()
	meta, err := e.meta.Get(waitCtx)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("await solana meta: %w", err)
	}
	return meta.RecentBlockhash, nil
}

func (e *TxExecutor) executeSingleTick(ctx context.Context, request TransactionRequest) error {
	blockhash, err := e.blockhash(ctx)
	if err != nil {
		return err
	}
	tx, err := request.signed(blockhash)
	if err != nil {
		return err
	}
	signature, err := e.pool.Jito().SubmitSingleTx(ctx, tx)
	if err != nil {
		return err
	}
	return e.waitBySignature(ctx, signature)
}

func (e *TxExecutor) waitBySignature(ctx context.Context, signature solana.Signature) error {
	deadline := time.Now().Add(singleMaxWait)
	for time.Now().Before(deadline) {
		client, err := e.pool.RPC().Use(ctx)
		if err != nil {
			return err
		}
		status, err := client.GetSignatureStatus(ctx, signature)
		if err != nil {
			return err
		}
		if status == nil {
			e.log.WithField("signature", signature.String()).
				Debug("transaction signature not found: validator ignored")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(singlePollInterval):
			}
			continue
		}
		if status.Failed() {
			return fatalError{fmt.Errorf("transaction returned error: %s", status.Err)}
		}
		e.log.WithField("signature", signature.String()).Info("transaction confirmed successfully")
		return nil
	}
	return fmt.Errorf("timeout elapsed: %s", singleMaxWait)
}

func (e *TxExecutor) executeBatchTick(ctx context.Context, requests []TransactionRequest) error {
	blockhash, err := e.blockhash(ctx)
	if err != nil {
		return err
	}
	txs := make([]*solana.Transaction, len(requests))
	for i, request := range requests {
		tx, err := request.signed(blockhash)
		if err != nil {
			return err
		}
		txs[i] = tx
	}
	client := e.pool.Jito()
	bundleID, err := client.SubmitBundle(ctx, txs)
	if err != nil {
		return err
	}
	return e.watchBundle(ctx, client, bundleID)
}

func (e *TxExecutor) watchBundle(ctx context.Context, client *solana.JitoClient, bundleID string) error {
	deadline := time.Now().Add(bundleMaxWait)
	for time.Now().Before(deadline) {
		status, err := client.GetBundleStatus(ctx, bundleID)
		if err != nil {
			// A missing status list means the bundle has not landed yet;
			// transient, retried on the next try.
			return err
		}
		if status.Failed() {
			return fatalError{fmt.Errorf("transaction batch resulted in error: %s", status.ErrString())}
		}
		if status.ConfirmationStatus == solana.CommitmentConfirmed ||
			status.ConfirmationStatus == solana.CommitmentFinalized {
			e.log.WithField("bundle_id", bundleID).Info("bundle completed successfully")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bundlePollInterval):
		}
	}
	return fmt.Errorf("bundle await timeout")
}
