package migrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KongzTech/moonzip-backend/internal/storage"
)

func TestMigratorTargets(t *testing.T) {
	targets := map[storage.Stage]bool{
		storage.StageCreated:          false,
		storage.StageConfirmed:        true,
		storage.StageOnStaticPool:     true,
		storage.StageStaticPoolClosed: true,
		storage.StageOnCurvePool:      false,
		storage.StageCurvePoolClosed:  true,
		storage.StageGraduated:        false,
	}
	for stage, want := range targets {
		project := &storage.StoredProject{Stage: stage}
		assert.Equal(t, want, migratorTarget(project), "stage %s", stage)
	}
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, "3s", Config{}.tickInterval().String())
	assert.Equal(t, "30s", KeysLoaderConfig{}.tickInterval().String())
}
