// Package database provides the pooled Postgres handle and schema
// migrations shared by all daemons.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Config configures the connection pool.
type Config struct {
	URL            string `yaml:"url"`
	MaxConnections int    `yaml:"max_connections"`
}

const defaultMaxConnections = 5

// Client is a thin handle over the pooled connection.
type Client struct {
	*sqlx.DB
}

// FromConfig opens the pool and verifies connectivity.
func FromConfig(ctx context.Context, cfg Config) (*Client, error) {
	db, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = defaultMaxConnections
	}
	db.SetMaxOpenConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Client{DB: db}, nil
}

// SerializableTx begins a transaction at SERIALIZABLE isolation. The caller
// commits or rolls back; letting the handle go out of scope without a
// commit leaves rollback to the driver.
func (c *Client) SerializableTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := c.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin serializable tx: %w", err)
	}
	return tx, nil
}
