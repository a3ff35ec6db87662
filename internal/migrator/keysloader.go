package migrator

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/KongzTech/moonzip-backend/infrastructure/config"
	"github.com/sirupsen/logrus"

	"github.com/KongzTech/moonzip-backend/internal/solana"
	"github.com/KongzTech/moonzip-backend/internal/storage"
)

// KeysLoaderConfig configures the keypair preload sidecar.
type KeysLoaderConfig struct {
	Directory    string        `yaml:"directory"`
	TickInterval config.Duration `yaml:"tick_interval"`
}

func (c KeysLoaderConfig) tickInterval() time.Duration {
	if c.TickInterval <= 0 {
		return 30 * time.Second
	}
	return c.TickInterval.Std()
}

// KeysLoader watches a directory of per-file keypair blobs, loading each
// into the preload pool and deleting the file.
type KeysLoader struct {
	config KeysLoaderConfig
	store  *storage.Store
	log    *logrus.Entry
}

// NewKeysLoader creates the sidecar.
func NewKeysLoader(config KeysLoaderConfig, store *storage.Store, log *logrus.Entry) *KeysLoader {
	return &KeysLoader{
		config: config,
		store:  store,
		log:    log.WithField("component", "keys-loader"),
	}
}

// Register attaches the scan to a cron schedule.
func (l *KeysLoader) Register(ctx context.Context, schedule *cron.Cron) error {
	_, err := schedule.AddFunc("@every "+l.config.tickInterval().String(), func() {
		if err := l.tick(ctx); err != nil {
			l.log.WithError(err).Error("keys loader tick failed")
		}
	})
	return err
}

func (l *KeysLoader) tick(ctx context.Context) error {
	entries, err := os.ReadDir(l.config.Directory)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(l.config.Directory, entry.Name())
		keypair, err := l.loadKeypairFromFile(ctx, path)
		if err != nil {
			l.log.WithError(err).WithField("path", path).Warn("failed to decode keypair")
			continue
		}
		l.log.WithField("pubkey", keypair.Pubkey().String()).Info("loaded token keypair")
	}
	return nil
}

func (l *KeysLoader) loadKeypairFromFile(ctx context.Context, path string) (solana.Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return solana.Keypair{}, err
	}
	keypair, err := solana.KeypairFromBytes(data)
	if err != nil {
		return solana.Keypair{}, err
	}
	if err := l.store.InsertKeypair(ctx, storage.StoredKeypairOf(keypair)); err != nil {
		return solana.Keypair{}, err
	}
	if err := os.Remove(path); err != nil {
		return solana.Keypair{}, err
	}
	return keypair, nil
}
