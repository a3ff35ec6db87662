// Package migrator drives projects through their lifecycle: it reconciles
// stored stages with on-chain state and constructs and submits the
// transactions that advance each project to its next stage.
package migrator

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/KongzTech/moonzip-backend/infrastructure/config"
	"github.com/KongzTech/moonzip-backend/infrastructure/metrics"
	"github.com/KongzTech/moonzip-backend/internal/executor"
	"github.com/KongzTech/moonzip-backend/internal/fetchers"
	"github.com/KongzTech/moonzip-backend/internal/instructions"
	"github.com/KongzTech/moonzip-backend/internal/ipfs"
	"github.com/KongzTech/moonzip-backend/internal/mzip"
	"github.com/KongzTech/moonzip-backend/internal/solana"
	"github.com/KongzTech/moonzip-backend/internal/storage"
)

// Config paces the migrator.
type Config struct {
	TickInterval config.Duration        `yaml:"tick_interval"`
	MzipIpfs     ipfs.PinataConfig   `yaml:"mzip_ipfs"`
	PumpfunIpfs  ipfs.PumpfunIpfsConfig `yaml:"pumpfun_ipfs"`
	TxExec       executor.Config     `yaml:"tx_exec"`
}

func (c Config) tickInterval() time.Duration {
	if c.TickInterval <= 0 {
		return 3 * time.Second
	}
	return c.TickInterval.Std()
}

// pageSize is bounded by the multi-account RPC call limit.
const pageSize = 100

// Tools bundles the shared handles every migration task uses.
type Tools struct {
	Store     *storage.Store
	Pool      *solana.Pool
	Builder   *instructions.Builder
	Executor  *executor.TxExecutor
	Authority solana.Keypair

	MzipIpfs    *ipfs.PinataClient
	PumpfunIpfs *ipfs.PumpfunIpfsClient

	MzipMeta *fetchers.Receiver[fetchers.MzipMeta]
	TipState *fetchers.Receiver[solana.TipState]
}

// Migrator is the periodic reconciler.
type Migrator struct {
	tools  *Tools
	config Config
	log    *logrus.Entry
}

// New creates the migrator.
func New(tools *Tools, config Config, log *logrus.Entry) *Migrator {
	return &Migrator{
		tools:  tools,
		config: config,
		log:    log.WithField("component", "migrator"),
	}
}

// Serve verifies external dependencies and starts the tick schedule.
// Overlapping ticks are skipped rather than queued.
func (m *Migrator) Serve(ctx context.Context) (*cron.Cron, error) {
	if err := m.tools.MzipIpfs.VerifyConnection(ctx); err != nil {
		return nil, err
	}

	schedule := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := schedule.AddFunc("@every "+m.config.tickInterval().String(), func() {
		if err := m.tick(ctx); err != nil {
			m.log.WithError(err).Error("migration tick failed")
		}
	})
	if err != nil {
		return nil, err
	}
	schedule.Start()
	return schedule, nil
}

func (m *Migrator) tick(ctx context.Context) error {
	after := time.Unix(0, 0)
	for {
		next, err := m.tickPage(ctx, after)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		after = *next
	}
}

// tickPage processes one page of active projects: syncs their on-chain
// stage and spawns a migration task per target. It returns the next page
// cursor, or nil when this was the last page.
func (m *Migrator) tickPage(ctx context.Context, after time.Time) (*time.Time, error) {
	projects, err := m.tools.Store.ListActivePage(ctx, after, pageSize)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, nil
	}
	lastTimemark := projects[len(projects)-1].CreatedAt

	keys := make([]solana.Pubkey, len(projects))
	for i := range projects {
		keys[i] = mzip.ProjectAddress(m.tools.Builder.Config.MzipProgram, projects[i].ChainID())
	}
	client, err := m.tools.Pool.RPC().Use(ctx)
	if err != nil {
		return nil, err
	}
	accounts, _, err := client.GetMultipleAccounts(ctx, keys, solana.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}

	for i := range projects {
		project := projects[i]
		if accounts[i] == nil {
			continue
		}
		chainProject, err := mzip.ParseProject(accounts[i])
		if err != nil {
			return nil, err
		}
		previousStage := project.Stage
		if project.ApplyChainStage(chainProject.Stage) {
			if err := m.tools.Store.SetStage(ctx, project.ID, project.Stage); err != nil {
				return nil, err
			}
			m.log.WithFields(logrus.Fields{
				"project_id": project.ID,
				"from":       previousStage,
				"to":         project.Stage,
			}).Debug("synced project stage")
		}
		if !migratorTarget(&project) {
			m.log.WithField("project_id", project.ID).
				Debug("skipping project migration - not a target")
			continue
		}

		task := &projectMigration{tools: m.tools, project: project, log: m.log}
		go func() {
			if err := task.migrate(ctx); err != nil {
				metrics.MigrationAttempts.WithLabelValues("failed").Inc()
				m.log.WithError(err).WithField("project_id", task.project.ID).
					Warn("failed to execute migration for project")
				return
			}
			metrics.MigrationAttempts.WithLabelValues("ok").Inc()
		}()
	}

	if len(projects) < pageSize {
		return nil, nil
	}
	return &lastTimemark, nil
}

// migratorTarget reports whether the stage is one the migrator advances.
func migratorTarget(project *storage.StoredProject) bool {
	switch project.Stage {
	case storage.StageConfirmed,
		storage.StageOnStaticPool,
		storage.StageStaticPoolClosed,
		storage.StageCurvePoolClosed:
		return true
	default:
		return false
	}
}
