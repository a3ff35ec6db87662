package fetchers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KongzTech/moonzip-backend/infrastructure/config"
)

// Fetcher is the capability driven by the periodic runner.
type Fetcher[T any] interface {
	// Init runs once before the loop; failure kills the fetcher.
	Init(ctx context.Context) error
	// Fetch produces the next candidate value.
	Fetch(ctx context.Context) (T, error)
	// Name identifies the fetcher in logs.
	Name() string
}

// Config paces the periodic runner.
type Config struct {
	TickInterval config.Duration `yaml:"tick_interval"`
	ErrorBackoff config.Duration `yaml:"error_backoff"`
}

// ZeroConfig runs as fast as the fetcher delivers; used by push-stream
// fetchers that block inside Fetch.
func ZeroConfig() Config {
	return Config{}
}

// EveryHour suits slow-moving chain-global config accounts.
func EveryHour() Config {
	return Config{
		TickInterval: config.Duration(time.Hour),
		ErrorBackoff: config.Duration(5 * time.Second),
	}
}

func (c Config) normalized() Config {
	if c.ErrorBackoff < 0 {
		c.ErrorBackoff = 0
	}
	return c
}

// PeriodicFetcher drives a Fetcher, publishing into a Watch.
type PeriodicFetcher[T any] struct {
	fetcher Fetcher[T]
	config  Config
	log     *logrus.Entry
}

// NewPeriodic creates a runner for the fetcher.
func NewPeriodic[T any](fetcher Fetcher[T], config Config, log *logrus.Entry) *PeriodicFetcher[T] {
	return &PeriodicFetcher[T]{
		fetcher: fetcher,
		config:  config.normalized(),
		log:     log.WithField("fetcher", fetcher.Name()),
	}
}

// Serve spawns the fetch loop and returns the observer handle. All fetch
// failures are transient: logged, backed off, retried. Init failure stops
// the fetcher for good.
func (p *PeriodicFetcher[T]) Serve(ctx context.Context, less func(old, new T) bool) *Receiver[T] {
	watch := NewWatch(less)
	go func() {
		if err := p.fetcher.Init(ctx); err != nil {
			p.log.WithError(err).Error("fetcher init failed, stopping")
			return
		}
		for {
			if ctx.Err() != nil {
				return
			}
			value, err := p.fetcher.Fetch(ctx)
			if err != nil {
				p.log.WithError(err).Error("fetch failed")
				if !sleepCtx(ctx, p.config.ErrorBackoff.Std()) {
					return
				}
				continue
			}
			watch.Publish(value)
			if !sleepCtx(ctx, p.config.TickInterval.Std()) {
				return
			}
		}
	}()
	return watch.Receiver()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
