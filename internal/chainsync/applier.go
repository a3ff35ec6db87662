package chainsync

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/KongzTech/moonzip-backend/infrastructure/metrics"
	"github.com/KongzTech/moonzip-backend/internal/database"
	"github.com/KongzTech/moonzip-backend/internal/mzip"
	"github.com/KongzTech/moonzip-backend/internal/storage"
)

// StorageApplier folds parsed events into the database, one serializable
// transaction per inbound slot batch.
type StorageApplier struct {
	db  *database.Client
	log *logrus.Entry
}

// NewStorageApplier creates the applier stage.
func NewStorageApplier(db *database.Client, log *logrus.Entry) *StorageApplier {
	return &StorageApplier{
		db:  db,
		log: log.WithField("component", "storage-applier"),
	}
}

// Serve drains the queue until it closes. Database errors roll the batch
// back, log, and the loop continues with the next element.
func (a *StorageApplier) Serve(ctx context.Context, in <-chan ParseResult) {
	for result := range in {
		if err := a.applyResult(ctx, result); err != nil {
			metrics.EventsDropped.Inc()
			a.log.WithError(err).WithField("slot", result.Slot).Error("storage applier tick error")
		}
	}
	a.log.Error("unexpected disconnect from parser")
}

func (a *StorageApplier) applyResult(ctx context.Context, result ParseResult) error {
	tx, err := a.db.SerializableTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, event := range result.Events {
		a.log.WithField("slot", result.Slot).Tracef("applying event %T", event)
		if err := a.applyEvent(ctx, tx, event); err != nil {
			return err
		}
	}

	a.log.WithField("slot", result.Slot).Debug("commit transaction")
	return tx.Commit()
}

func (a *StorageApplier) applyEvent(ctx context.Context, tx *sqlx.Tx, event Event) error {
	switch typed := event.(type) {
	case MzipEvent:
		return a.applyMzipEvent(ctx, tx, typed.Inner)
	case PumpfunTrade:
		// Filter-only for now; no storage effect.
		return nil
	default:
		a.log.Error("some tracked event not implemented")
		return nil
	}
}

func (a *StorageApplier) applyMzipEvent(ctx context.Context, tx *sqlx.Tx, event mzip.Event) error {
	switch typed := event.(type) {
	case mzip.ProjectChangedEvent:
		return applyProjectChanged(ctx, tx, typed)
	case mzip.StaticPoolBuyEvent:
		return applyCollectedLamports(ctx, tx, typed.ProjectID, typed.NewCollectedSols, "static_pool_buy")
	case mzip.StaticPoolSellEvent:
		return applyCollectedLamports(ctx, tx, typed.ProjectID, typed.NewCollectedSols, "static_pool_sell")
	default:
		// Curve pool events are reserved; nothing to store yet.
		a.log.Warn("some mzip tracked event not implemented")
		return nil
	}
}

func applyProjectChanged(ctx context.Context, tx *sqlx.Tx, event mzip.ProjectChangedEvent) error {
	stage := storage.StageFromChain(event.ToStage)
	projectID, err := projectIDFromChain(event.ProjectID)
	if err != nil {
		return err
	}

	// Enum comparison follows definition order; the guard keeps the stage
	// monotonic under reordered or duplicated delivery.
	_, err = tx.ExecContext(ctx, `
		UPDATE project SET stage = $2
		WHERE id = $1 AND stage < $2
	`, projectID, stage)
	if err != nil {
		return fmt.Errorf("apply project changed: %w", err)
	}
	metrics.EventsApplied.WithLabelValues("project_changed").Inc()
	return nil
}

func applyCollectedLamports(ctx context.Context, tx *sqlx.Tx, chainID mzip.ProjectID, collected uint64, label string) error {
	projectID, err := projectIDFromChain(chainID)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE static_pool_chain_state SET collected_lamports = $2 WHERE project_id = $1
	`, projectID, storage.Balance(collected))
	if err != nil {
		return fmt.Errorf("apply collected lamports: %w", err)
	}
	metrics.EventsApplied.WithLabelValues(label).Inc()
	return nil
}

// projectIDFromChain reverses the little-endian uuid mapping.
func projectIDFromChain(id mzip.ProjectID) (uuid.UUID, error) {
	var raw [16]byte
	for i := 0; i < 16; i++ {
		raw[i] = id[15-i]
	}
	return uuid.FromBytes(raw[:])
}
