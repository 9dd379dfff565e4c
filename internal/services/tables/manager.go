// Package tables grants and releases exclusive working rights over
// physical tables. The manager only touches the lock fields; occupancy
// status transitions belong to the order ledger.
package tables

import (
	"context"
	"fmt"
	"time"

	"restaurant-pos/internal/audit"
	"restaurant-pos/internal/faults"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/storage"
)

// DefaultStalePeriod is the lock age after which an abandoned lock may
// be reclaimed by another actor.
const DefaultStalePeriod = 30 * time.Minute

// Manager hands out table locks. All decisions are made after taking
// the table row lock, so two concurrent acquires serialize on the
// store and the loser sees the winner's committed lock.
type Manager struct {
	store      storage.Store
	logger     *logger.Logger
	audit      audit.Emitter
	staleAfter time.Duration
}

// NewManager creates a table lock manager. A non-positive staleAfter
// falls back to DefaultStalePeriod.
func NewManager(store storage.Store, log *logger.Logger, emitter audit.Emitter, staleAfter time.Duration) *Manager {
	if staleAfter <= 0 {
		staleAfter = DefaultStalePeriod
	}
	return &Manager{
		store:      store,
		logger:     log,
		audit:      emitter,
		staleAfter: staleAfter,
	}
}

// Acquire grants the table lock to the actor. Re-acquiring a lock the
// actor already holds refreshes its timestamp; a lock held by someone
// else conflicts unless it has gone stale, in which case it is
// silently reclaimed.
func (m *Manager) Acquire(ctx context.Context, actor models.Actor, tableID int64) (*models.Table, error) {
	requestID := logger.GenerateRequestID()

	var before, after *models.Table
	err := m.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		t, err := tx.GetTableForUpdate(ctx, tableID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if t.Locked() && !t.LockedBy(actor.ID) && !t.LockStale(now, m.staleAfter) {
			return faults.Conflict("table %d is in use", t.Number)
		}

		snapshot := *t
		before = &snapshot
		t.GrantLock(actor.ID, now)
		if err := tx.SaveTable(ctx, t); err != nil {
			return err
		}
		after = t
		return nil
	})
	if err != nil {
		m.logger.Debug("table_lock_denied", fmt.Sprintf("Lock on table %d denied", tableID), requestID, map[string]interface{}{
			"table_id": tableID,
			"actor_id": actor.ID,
			"reason":   err.Error(),
		})
		return nil, err
	}

	m.audit.Emit(ctx, audit.NewEvent(actor.ID, "table.lock_acquired", "table", tableID, before, after))
	m.logger.Info("table_lock_acquired", fmt.Sprintf("Table %d locked by actor %d", tableID, actor.ID), requestID, map[string]interface{}{
		"table_id": tableID,
		"actor_id": actor.ID,
	})
	return after, nil
}

// Release clears the table lock. Only the holder may release, unless
// an admin override is set; a table still carrying an active order
// cannot be released by unlock alone.
func (m *Manager) Release(ctx context.Context, actor models.Actor, tableID int64, adminOverride bool) error {
	requestID := logger.GenerateRequestID()

	var before, after *models.Table
	err := m.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		t, err := tx.GetTableForUpdate(ctx, tableID)
		if err != nil {
			return err
		}

		if !t.Locked() {
			return nil
		}
		if !t.LockedBy(actor.ID) && !(adminOverride && actor.IsAdmin()) {
			return faults.Forbidden("table %d is locked by another actor", t.Number)
		}
		if t.CurrentOrderID != nil {
			return faults.Conflict("table %d still has an active order", t.Number)
		}

		snapshot := *t
		before = &snapshot
		t.ClearLock()
		if err := tx.SaveTable(ctx, t); err != nil {
			return err
		}
		after = t
		return nil
	})
	if err != nil {
		return err
	}

	if after != nil {
		m.audit.Emit(ctx, audit.NewEvent(actor.ID, "table.lock_released", "table", tableID, before, after))
		m.logger.Info("table_lock_released", fmt.Sprintf("Table %d lock released by actor %d", tableID, actor.ID), requestID, map[string]interface{}{
			"table_id":       tableID,
			"actor_id":       actor.ID,
			"admin_override": adminOverride,
		})
	}
	return nil
}

// StalePeriod exposes the configured staleness threshold so the order
// ledger applies the same reclaim rule when it binds locks at order
// creation.
func (m *Manager) StalePeriod() time.Duration {
	return m.staleAfter
}
