package models

import "time"

// TableStatus represents the occupancy state of a physical table.
type TableStatus string

const (
	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableMaintenance TableStatus = "maintenance"
)

// Table is a physical seating unit. CurrentOrderID is non-nil iff the
// table is occupied; the lock fields grant one actor exclusive working
// rights independent of occupancy. Tables are soft-deactivated, never
// deleted while referenced.
type Table struct {
	ID             int64       `json:"id" db:"id"`
	Number         int         `json:"number" db:"number"`
	Capacity       int         `json:"capacity" db:"capacity"`
	Status         TableStatus `json:"status" db:"status"`
	CurrentOrderID *int64      `json:"current_order_id,omitempty" db:"current_order_id"`
	LockHolder     *int64      `json:"lock_holder,omitempty" db:"lock_holder"`
	LockAcquiredAt *time.Time  `json:"lock_acquired_at,omitempty" db:"lock_acquired_at"`
	Active         bool        `json:"active" db:"active"`
	CreatedAt      time.Time   `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at,omitempty" db:"updated_at"`
}

// Locked reports whether any actor currently holds the table lock.
func (t *Table) Locked() bool {
	return t.LockHolder != nil
}

// LockedBy reports whether the given actor holds the table lock.
func (t *Table) LockedBy(actorID int64) bool {
	return t.LockHolder != nil && *t.LockHolder == actorID
}

// LockStale reports whether the current lock is older than threshold
// and may be reclaimed by another actor.
func (t *Table) LockStale(now time.Time, threshold time.Duration) bool {
	if t.LockHolder == nil || t.LockAcquiredAt == nil {
		return false
	}
	return now.Sub(*t.LockAcquiredAt) >= threshold
}

// GrantLock hands the table lock to the actor with a fresh timestamp.
func (t *Table) GrantLock(actorID int64, now time.Time) {
	t.LockHolder = &actorID
	t.LockAcquiredAt = &now
}

// ClearLock releases the table lock.
func (t *Table) ClearLock() {
	t.LockHolder = nil
	t.LockAcquiredAt = nil
}
