// The chain-syncer daemon ingests the streaming transaction feed and folds
// the extracted events into storage.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/KongzTech/moonzip-backend/infrastructure/config"
	"github.com/KongzTech/moonzip-backend/infrastructure/logging"
	"github.com/KongzTech/moonzip-backend/internal/chainsync"
	"github.com/KongzTech/moonzip-backend/internal/database"
)

type appConfig struct {
	DB        database.Config        `yaml:"db"`
	Geyser    chainsync.GeyserConfig `yaml:"geyser"`
	ChainSync chainsync.Config       `yaml:"chain_sync"`
}

func main() {
	log := logging.NewFromEnv("chain-syncer")

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		log.WithError(err).Fatal("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.FromConfig(ctx, cfg.DB)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}

	geyser, err := chainsync.NewGeyserClient(cfg.Geyser)
	if err != nil {
		log.WithError(err).Fatal("build geyser client")
	}

	root := log.Component("main")
	raw := chainsync.NewChainFetcher(geyser, cfg.ChainSync, root).Serve(ctx)
	parsed := chainsync.NewParseAggregator(cfg.ChainSync, root).Serve(raw)

	chainsync.NewStorageApplier(db, root).Serve(ctx, parsed)
	if ctx.Err() == nil {
		log.Fatal("storage applier unexpectedly terminated")
	}
}
