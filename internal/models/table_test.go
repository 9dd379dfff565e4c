package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTableLockLifecycle(t *testing.T) {
	var tbl Table
	require.False(t, tbl.Locked())

	now := time.Now().UTC()
	tbl.GrantLock(7, now)
	require.True(t, tbl.Locked())
	require.True(t, tbl.LockedBy(7))
	require.False(t, tbl.LockedBy(8))

	tbl.ClearLock()
	require.False(t, tbl.Locked())
	require.Nil(t, tbl.LockAcquiredAt)
}

func TestTableLockStale(t *testing.T) {
	var tbl Table
	now := time.Now().UTC()
	require.False(t, tbl.LockStale(now, 30*time.Minute))

	tbl.GrantLock(7, now.Add(-29*time.Minute))
	require.False(t, tbl.LockStale(now, 30*time.Minute))

	tbl.GrantLock(7, now.Add(-30*time.Minute))
	require.True(t, tbl.LockStale(now, 30*time.Minute))
}

func TestOrderStatusTerminal(t *testing.T) {
	require.False(t, OrderOpen.Terminal())
	require.False(t, OrderServed.Terminal())
	require.True(t, OrderPaid.Terminal())
	require.True(t, OrderCancelled.Terminal())
	require.True(t, OrderVoid.Terminal())
}

func TestRoundMoney(t *testing.T) {
	require.Equal(t, 0.30, RoundMoney(0.1+0.2))
	require.Equal(t, 2.35, RoundMoney(2.346))
	require.Equal(t, 2.34, RoundMoney(2.344))
	require.Equal(t, -1.25, RoundMoney(-1.2499999))
}

func TestTicketNumbers(t *testing.T) {
	require.Contains(t, NewOrderNumber(), "ORD-")
	require.Contains(t, NewPaymentNumber(), "PAY-")
	require.NotEqual(t, NewOrderNumber(), NewOrderNumber())
}
