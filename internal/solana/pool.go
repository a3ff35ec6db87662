package solana

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/KongzTech/moonzip-backend/infrastructure/config"
)

// PoolConfig configures the balanced client pools.
type PoolConfig struct {
	RPCClients  []RPCClientConfig  `yaml:"rpc_clients"`
	JitoClients []JitoClientConfig `yaml:"jito_clients"`
}

// RPCClientConfig describes one rate-limited RPC node.
type RPCClientConfig struct {
	Node  NodeConfig      `yaml:"node"`
	Limit RateLimitConfig `yaml:"limit"`
}

// NodeConfig selects the node kind: a known provider or a raw URL.
type NodeConfig struct {
	Type   string `yaml:"type"`
	APIKey string `yaml:"api_key"`
	RPCURL string `yaml:"rpc_url"`
}

// URL resolves the node endpoint.
func (n NodeConfig) URL() (string, error) {
	switch n.Type {
	case "helius":
		return fmt.Sprintf("https://mainnet.helius-rpc.com?api-key=%s", n.APIKey), nil
	case "", "any":
		if n.RPCURL == "" {
			return "", fmt.Errorf("rpc_url required for node")
		}
		return n.RPCURL, nil
	default:
		return "", fmt.Errorf("unknown node type %q", n.Type)
	}
}

// RateLimitConfig bounds per-node request rate, with jitter spread.
type RateLimitConfig struct {
	PerSecond      int           `yaml:"per_second"`
	Burst          int           `yaml:"burst"`
	JitterMin      config.Duration `yaml:"jitter_min"`
	JitterInterval config.Duration `yaml:"jitter_interval"`
}

func (c RateLimitConfig) normalized() RateLimitConfig {
	if c.PerSecond <= 0 {
		c.PerSecond = 1
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.JitterMin <= 0 {
		c.JitterMin = config.Duration(100 * time.Millisecond)
	}
	if c.JitterInterval <= 0 {
		c.JitterInterval = config.Duration(200 * time.Millisecond)
	}
	return c
}

// LimitedRPC wraps an RPC client behind a token bucket.
type LimitedRPC struct {
	client  *RPCClient
	limiter *rate.Limiter
	jitter  RateLimitConfig
}

// Use waits for rate-limit clearance and returns the underlying client.
func (l *LimitedRPC) Use(ctx context.Context) (*RPCClient, error) {
	sleep := l.jitter.JitterMin.Std() + time.Duration(rand.Int63n(int64(l.jitter.JitterInterval)))
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(sleep):
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.client, nil
}

// Pool round-robins RPC and relayed-RPC clients.
type Pool struct {
	rpc  []*LimitedRPC
	jito []*JitoClient

	rpcPos  atomic.Uint64
	jitoPos atomic.Uint64
}

// NewPool builds the pool from configuration.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if len(cfg.RPCClients) == 0 {
		return nil, fmt.Errorf("at least one rpc client required")
	}
	if len(cfg.JitoClients) == 0 {
		return nil, fmt.Errorf("at least one jito client required")
	}
	pool := &Pool{}
	for _, clientCfg := range cfg.RPCClients {
		url, err := clientCfg.Node.URL()
		if err != nil {
			return nil, err
		}
		limit := clientCfg.Limit.normalized()
		pool.rpc = append(pool.rpc, &LimitedRPC{
			client:  NewRPCClient(url),
			limiter: rate.NewLimiter(rate.Limit(limit.PerSecond), limit.Burst),
			jitter:  limit,
		})
	}
	for _, clientCfg := range cfg.JitoClients {
		pool.jito = append(pool.jito, NewJitoClient(clientCfg))
	}
	return pool, nil
}

// RPC returns the next rate-limited RPC client.
func (p *Pool) RPC() *LimitedRPC {
	return p.rpc[p.rpcPos.Add(1)%uint64(len(p.rpc))]
}

// Jito returns the next relayed-RPC client.
func (p *Pool) Jito() *JitoClient {
	return p.jito[p.jitoPos.Add(1)%uint64(len(p.jito))]
}
