package chainsync

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	bufferCapacity = 1000
	maxSleep       = 400 * time.Millisecond
)

// ParseInput is one raw transaction handed to the parser.
type ParseInput struct {
	Slot        uint64
	Transaction *StreamedTransaction
	Meta        *TxMeta
}

// ChainFetcher maintains the streaming subscription and feeds the parser
// through a bounded queue. A stalled consumer blocks the send, which
// throttles ingestion through the server's flow control.
type ChainFetcher struct {
	client *GeyserClient
	config Config
	log    *logrus.Entry
}

// NewChainFetcher creates the fetcher.
func NewChainFetcher(client *GeyserClient, config Config, log *logrus.Entry) *ChainFetcher {
	return &ChainFetcher{
		client: client,
		config: config,
		log:    log.WithField("component", "chain-fetcher"),
	}
}

// Serve spawns the subscription loop. Every recoverable error logs and
// reconnects; reconnects keep at least the 400ms cadence.
func (f *ChainFetcher) Serve(ctx context.Context) <-chan ParseInput {
	out := make(chan ParseInput, bufferCapacity)
	go func() {
		defer close(out)
		for ctx.Err() == nil {
			before := time.Now()
			if err := f.tick(ctx, out); err != nil && ctx.Err() == nil {
				f.log.WithError(err).Error("chain fetcher tick error")
			}
			remaining := maxSleep - time.Since(before)
			if remaining > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(remaining):
				}
			}
		}
	}()
	return out
}

func (f *ChainFetcher) tick(ctx context.Context, out chan<- ParseInput) error {
	programs := f.config.TrackedPrograms()
	include := make([]string, len(programs))
	for i, program := range programs {
		include[i] = program.String()
	}
	vote, failed := false, false
	stream, err := f.client.SubscribeTxs(ctx, TxSubscriptionFilter{
		Vote:           &vote,
		Failed:         &failed,
		AccountInclude: include,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		slot, update, err := stream.Next(ctx)
		if err != nil {
			// The stream must never terminate; any termination is an error
			// that triggers a reconnect.
			return err
		}
		if update.Transaction == nil || update.Meta == nil {
			f.log.Error("failed to handle received message: missing transaction or meta")
			continue
		}
		input := ParseInput{
			Slot:        slot,
			Transaction: update.Transaction,
			Meta:        update.Meta,
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- input:
		}
	}
}
