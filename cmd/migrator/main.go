// The migrator daemon advances projects through their lifecycle.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/KongzTech/moonzip-backend/infrastructure/config"
	"github.com/KongzTech/moonzip-backend/infrastructure/logging"
	"github.com/KongzTech/moonzip-backend/internal/database"
	"github.com/KongzTech/moonzip-backend/internal/executor"
	"github.com/KongzTech/moonzip-backend/internal/fetchers"
	"github.com/KongzTech/moonzip-backend/internal/instructions"
	"github.com/KongzTech/moonzip-backend/internal/ipfs"
	"github.com/KongzTech/moonzip-backend/internal/migrator"
	"github.com/KongzTech/moonzip-backend/internal/solana"
	"github.com/KongzTech/moonzip-backend/internal/storage"
)

type appConfig struct {
	DB              database.Config            `yaml:"db"`
	Keys            keysConfig                 `yaml:"keys"`
	SolanaPool      solana.PoolConfig          `yaml:"solana_pool"`
	Migrator        migrator.Config            `yaml:"migrator"`
	TokenKeysLoader migrator.KeysLoaderConfig  `yaml:"token_keys_loader"`
	Instructions    instructions.Config        `yaml:"instructions"`
	Fetchers        fetchersConfig             `yaml:"fetchers"`
}

type keysConfig struct {
	Authority solana.KeypairConfig `yaml:"authority"`
}

type fetchersConfig struct {
	SolanaMeta fetchers.Config `yaml:"solana_meta"`
}

func main() {
	log := logging.NewFromEnv("migrator")

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
	store := storage.NewStore(db)

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
	tipState := fetchers.NewPeriodic[solana.TipState](
		&fetchers.TipStateFetcher{}, fetchers.ZeroConfig(), root,
	).Serve(ctx, fetchers.AlwaysAccept)

	builder := &instructions.Builder{
		Config:      cfg.Instructions,
		SolanaMeta:  solanaMeta,
		MzipMeta:    mzipMeta,
		PumpfunMeta: pumpfunMeta,
	}

	tools := &migrator.Tools{
		Store:       store,
		Pool:        pool,
		Builder:     builder,
		Executor:    executor.New(pool, solanaMeta, cfg.Migrator.TxExec, root),
		Authority:   cfg.Keys.Authority.Keypair,
		MzipIpfs:    ipfs.NewPinataClient(cfg.Migrator.MzipIpfs),
		PumpfunIpfs: ipfs.NewPumpfunIpfsClient(cfg.Migrator.PumpfunIpfs),
		MzipMeta:    mzipMeta,
		TipState:    tipState,
	}

	engine := migrator.New(tools, cfg.Migrator, root)
	schedule, err := engine.Serve(ctx)
	if err != nil {
		log.WithError(err).Fatal("start migrator")
	}

	keysLoader := migrator.NewKeysLoader(cfg.TokenKeysLoader, store, root)
	if err := keysLoader.Register(ctx, schedule); err != nil {
		log.WithError(err).Fatal("start keys loader")
	}

	<-ctx.Done()
	<-schedule.Stop().Done()
}
