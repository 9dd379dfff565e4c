package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/faults"
	"restaurant-pos/internal/models"
)

func TestMemoryRollsBackOnError(t *testing.T) {
	m := NewMemory()
	boom := errors.New("boom")

	var insertedID int64
	err := m.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		o := &models.Order{Number: "ORD-TEST1", ServerID: 1, Status: models.OrderOpen}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		insertedID = o.ID
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Nil(t, m.OrderByID(insertedID))

	// The order number is free again for the next transaction.
	err = m.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.InsertOrder(ctx, &models.Order{Number: "ORD-TEST1", ServerID: 1, Status: models.OrderOpen})
	})
	require.NoError(t, err)
}

func TestMemoryOrderNumberUniqueness(t *testing.T) {
	m := NewMemory()

	insert := func() error {
		return m.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
			return tx.InsertOrder(ctx, &models.Order{Number: "ORD-DUP", ServerID: 1, Status: models.OrderOpen})
		})
	}

	require.NoError(t, insert())
	err := insert()
	require.Error(t, err)
	require.True(t, faults.IsConflict(err))
}

func TestMemoryGettersReturnCopies(t *testing.T) {
	m := NewMemory()
	m.SeedTable(models.Table{ID: 1, Number: 1, Status: models.TableAvailable, Active: true})

	err := m.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		tbl, err := tx.GetTableForUpdate(ctx, 1)
		if err != nil {
			return err
		}
		// Mutation without SaveTable must not land.
		tbl.Status = models.TableMaintenance
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, models.TableAvailable, m.TableByID(1).Status)
}

func TestMemoryMissingRows(t *testing.T) {
	m := NewMemory()

	err := m.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		_, err := tx.GetOrderForUpdate(ctx, 42)
		return err
	})
	require.True(t, faults.IsNotFound(err))

	err = m.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		_, err := tx.GetProductForUpdate(ctx, 42)
		return err
	})
	require.True(t, faults.IsNotFound(err))
}
