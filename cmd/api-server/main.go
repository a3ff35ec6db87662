// The api-server daemon hosts the public HTTP surface.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/KongzTech/moonzip-backend/infrastructure/config"
	"github.com/KongzTech/moonzip-backend/infrastructure/logging"
	"github.com/KongzTech/moonzip-backend/internal/api"
	"github.com/KongzTech/moonzip-backend/internal/database"
	"github.com/KongzTech/moonzip-backend/internal/fetchers"
	"github.com/KongzTech/moonzip-backend/internal/instructions"
	"github.com/KongzTech/moonzip-backend/internal/solana"
	"github.com/KongzTech/moonzip-backend/internal/storage"
)

type appConfig struct {
	API          api.Config          `yaml:"api"`
	DB           database.Config     `yaml:"db"`
	SolanaPool   solana.PoolConfig   `yaml:"solana_pool"`
	Instructions instructions.Config `yaml:"instructions"`
	Fetchers     fetchersConfig      `yaml:"fetchers"`
}

type fetchersConfig struct {
	SolanaMeta fetchers.Config `yaml:"solana_meta"`
}

func main() {
	log := logging.NewFromEnv("api-server")

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		log.WithError(err).Fatal("load config")
	}
	cfg.Instructions = cfg.Instructions.Normalize()
	if cfg.Instructions.MzipProgram.IsZero() || cfg.Instructions.Authority.IsZero() {
		log.Fatal("instructions.mzip_program and instructions.authority are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.FromConfig(ctx, cfg.DB)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	if err := db.Migrate(); err != nil {
		log.WithError(err).Fatal("run migrations")
	}

	pool, err := solana.NewPool(cfg.SolanaPool)
	if err != nil {
		log.WithError(err).Fatal("build solana pool")
	}

	root := log.Component("main")
	solanaMeta := fetchers.NewPeriodic[fetchers.SolanaMeta](
		&fetchers.SolanaMetaFetcher{Pool: pool}, cfg.Fetchers.SolanaMeta, root,
	).Serve(ctx, fetchers.LessByMarker)
	mzipMeta := fetchers.NewPeriodic[fetchers.MzipMeta](
		&fetchers.MzipMetaFetcher{Pool: pool, ProgramID: cfg.Instructions.MzipProgram},
		fetchers.EveryHour(), root,
	).Serve(ctx, fetchers.LessByMarker)
	pumpfunMeta := fetchers.NewPeriodic[fetchers.PumpfunMeta](
		&fetchers.PumpfunMetaFetcher{Pool: pool, ProgramID: cfg.Instructions.PumpfunProgram},
		fetchers.EveryHour(), root,
	).Serve(ctx, fetchers.LessByMarker)

	app := &api.App{
		Store: storage.NewStore(db),
		Builder: &instructions.Builder{
			Config:      cfg.Instructions,
			SolanaMeta:  solanaMeta,
			MzipMeta:    mzipMeta,
			PumpfunMeta: pumpfunMeta,
		},
	}

	root.Info("starting API server")
	server := api.NewServer(app, cfg.API, log.Component("api"))
	if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("API server unexpectedly terminated")
	}
	os.Exit(0)
}
