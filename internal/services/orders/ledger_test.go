package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/audit"
	"restaurant-pos/internal/faults"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/storage"
)

var (
	server1   = models.Actor{ID: 1, Role: models.RoleServer}
	server2   = models.Actor{ID: 2, Role: models.RoleServer}
	moderator = models.Actor{ID: 4, Role: models.RoleModerator}
)

const (
	burgerID  = int64(10) // fixed price 5.00, tracked stock 10
	sodaID    = int64(11) // fixed price 2.50, untracked
	fishID    = int64(12) // variable price
	retiredID = int64(13) // inactive
	soupID    = int64(14) // 86'd: active but unavailable
)

func intPtr(v int) *int         { return &v }
func i64Ptr(v int64) *int64     { return &v }
func f64Ptr(v float64) *float64 { return &v }
func strPtr(v string) *string   { return &v }

func newLedger(t *testing.T) (*Ledger, *storage.Memory, *audit.Recorder) {
	t.Helper()
	store := storage.NewMemory()
	store.SeedTable(models.Table{ID: 1, Number: 1, Capacity: 4, Status: models.TableAvailable, Active: true})
	store.SeedTable(models.Table{ID: 2, Number: 2, Capacity: 2, Status: models.TableMaintenance, Active: true})
	store.SeedProduct(models.Product{ID: burgerID, Name: "burger", Price: 5.00, Available: true, TrackStock: true, StockQuantity: intPtr(10), Active: true})
	store.SeedProduct(models.Product{ID: sodaID, Name: "soda", Price: 2.50, Available: true, Active: true})
	store.SeedProduct(models.Product{ID: fishID, Name: "market fish", Available: true, VariablePrice: true, Active: true})
	store.SeedProduct(models.Product{ID: retiredID, Name: "retired", Price: 3.00, Available: true, Active: false})
	store.SeedProduct(models.Product{ID: soupID, Name: "soup", Price: 4.00, Available: false, Active: true})

	rec := &audit.Recorder{}
	l := NewLedger(store, logger.New("orders-test"), rec, 0, 30*time.Minute)
	return l, store, rec
}

func stockOf(t *testing.T, store *storage.Memory, productID int64) int {
	t.Helper()
	p := store.ProductByID(productID)
	require.NotNil(t, p)
	return p.Stock()
}

func TestCreateTakeaway(t *testing.T) {
	l, store, rec := newLedger(t)

	order, err := l.Create(context.Background(), server1, CreateRequest{})
	require.NoError(t, err)
	require.True(t, order.Takeaway())
	require.Equal(t, models.OrderOpen, order.Status)
	require.Equal(t, 1, order.GuestCount)
	require.Contains(t, order.Number, "ORD-")
	require.NotNil(t, store.OrderByID(order.ID))

	events := rec.Events()
	require.Len(t, events, 1)
	require.Equal(t, "order.created", events[0].Action)
}

func TestCreateNegativeGuestCount(t *testing.T) {
	l, _, _ := newLedger(t)

	_, err := l.Create(context.Background(), server1, CreateRequest{GuestCount: -1})
	require.Error(t, err)
	require.True(t, faults.IsBadRequest(err))
}

func TestCreateBindsTable(t *testing.T) {
	l, store, _ := newLedger(t)

	order, err := l.Create(context.Background(), server1, CreateRequest{TableID: i64Ptr(1), GuestCount: 3})
	require.NoError(t, err)

	tbl := store.TableByID(1)
	require.Equal(t, models.TableOccupied, tbl.Status)
	require.NotNil(t, tbl.CurrentOrderID)
	require.Equal(t, order.ID, *tbl.CurrentOrderID)
	require.True(t, tbl.LockedBy(server1.ID))
}

func TestCreateOccupiedTableConflicts(t *testing.T) {
	l, _, _ := newLedger(t)

	_, err := l.Create(context.Background(), server1, CreateRequest{TableID: i64Ptr(1)})
	require.NoError(t, err)

	_, err = l.Create(context.Background(), server2, CreateRequest{TableID: i64Ptr(1)})
	require.Error(t, err)
	require.True(t, faults.IsConflict(err))
}

func TestCreateMaintenanceTableRejected(t *testing.T) {
	l, _, _ := newLedger(t)

	_, err := l.Create(context.Background(), server1, CreateRequest{TableID: i64Ptr(2)})
	require.Error(t, err)
	require.True(t, faults.IsBadRequest(err))
}

func TestCreateRespectsForeignTableLock(t *testing.T) {
	l, store, _ := newLedger(t)
	at := time.Now().UTC().Add(-10 * time.Minute)
	store.SeedTable(models.Table{
		ID: 3, Number: 3, Capacity: 4, Status: models.TableAvailable, Active: true,
		LockHolder: i64Ptr(server2.ID), LockAcquiredAt: &at,
	})

	_, err := l.Create(context.Background(), server1, CreateRequest{TableID: i64Ptr(3)})
	require.Error(t, err)
	require.True(t, faults.IsConflict(err))
}

func TestCreateReclaimsStaleTableLock(t *testing.T) {
	l, store, _ := newLedger(t)
	at := time.Now().UTC().Add(-31 * time.Minute)
	store.SeedTable(models.Table{
		ID: 3, Number: 3, Capacity: 4, Status: models.TableAvailable, Active: true,
		LockHolder: i64Ptr(server2.ID), LockAcquiredAt: &at,
	})

	order, err := l.Create(context.Background(), server1, CreateRequest{TableID: i64Ptr(3)})
	require.NoError(t, err)

	tbl := store.TableByID(3)
	require.True(t, tbl.LockedBy(server1.ID))
	require.Equal(t, order.ID, *tbl.CurrentOrderID)
}

func TestCreateConcurrentSameTableOneWinner(t *testing.T) {
	l, store, _ := newLedger(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	actors := []models.Actor{server1, server2}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.Create(context.Background(), actors[i], CreateRequest{TableID: i64Ptr(1)})
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case faults.IsConflict(err):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, won)
	require.Equal(t, 1, lost)
	require.NotNil(t, store.TableByID(1).CurrentOrderID)
}

func TestAddItemComputesTotalsAndStock(t *testing.T) {
	l, store, rec := newLedger(t)
	order, err := l.Create(context.Background(), server1, CreateRequest{})
	require.NoError(t, err)

	item, err := l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: burgerID, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, 5.00, item.UnitPrice)
	require.Equal(t, 10.00, item.Subtotal)
	require.Equal(t, models.ItemPending, item.Status)

	stored := store.OrderByID(order.ID)
	require.Equal(t, 10.00, stored.Subtotal)
	require.Equal(t, 10.00, stored.Total)
	require.Equal(t, 8, stockOf(t, store, burgerID))

	events := rec.Events()
	require.Equal(t, "order.item_added", events[len(events)-1].Action)
}

func TestAddItemInsufficientStock(t *testing.T) {
	l, store, _ := newLedger(t)
	order, err := l.Create(context.Background(), server1, CreateRequest{})
	require.NoError(t, err)

	_, err = l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: burgerID, Quantity: 11})
	require.Error(t, err)
	require.True(t, faults.IsBadRequest(err))

	// The rejected transaction left nothing behind.
	require.Equal(t, 10, stockOf(t, store, burgerID))
	require.Empty(t, store.ItemsByOrder(order.ID))
	require.Equal(t, 0.00, store.OrderByID(order.ID).Total)
}

func TestAddItemCatalogGates(t *testing.T) {
	l, _, _ := newLedger(t)
	order, err := l.Create(context.Background(), server1, CreateRequest{})
	require.NoError(t, err)

	_, err = l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: retiredID, Quantity: 1})
	require.True(t, faults.IsNotFound(err))

	_, err = l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: soupID, Quantity: 1})
	require.True(t, faults.IsBadRequest(err))

	_, err = l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: 999, Quantity: 1})
	require.True(t, faults.IsNotFound(err))

	_, err = l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: burgerID, Quantity: 0})
	require.True(t, faults.IsBadRequest(err))
}

func TestAddItemVariablePrice(t *testing.T) {
	l, _, _ := newLedger(t)
	order, err := l.Create(context.Background(), server1, CreateRequest{})
	require.NoError(t, err)

	item, err := l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: fishID, Quantity: 1, UnitPrice: f64Ptr(17.50)})
	require.NoError(t, err)
	require.Equal(t, 17.50, item.UnitPrice)

	// Supplied price on a fixed-price product is ignored.
	item, err = l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: sodaID, Quantity: 1, UnitPrice: f64Ptr(0.01)})
	require.NoError(t, err)
	require.Equal(t, 2.50, item.UnitPrice)

	_, err = l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: fishID, Quantity: 1, UnitPrice: f64Ptr(-1)})
	require.True(t, faults.IsBadRequest(err))
}

func TestAddItemOwnership(t *testing.T) {
	l, _, _ := newLedger(t)
	order, err := l.Create(context.Background(), server1, CreateRequest{})
	require.NoError(t, err)

	_, err = l.AddItem(context.Background(), server2, order.ID, AddItemRequest{ProductID: sodaID, Quantity: 1})
	require.Error(t, err)
	require.True(t, faults.IsForbidden(err))

	// Moderators may edit any order.
	_, err = l.AddItem(context.Background(), moderator, order.ID, AddItemRequest{ProductID: sodaID, Quantity: 1})
	require.NoError(t, err)
}

func TestAddItemClosedOrder(t *testing.T) {
	l, _, _ := newLedger(t)
	order, err := l.Create(context.Background(), server1, CreateRequest{})
	require.NoError(t, err)
	require.NoError(t, l.Cancel(context.Background(), moderator, order.ID, "walked out"))

	_, err = l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: sodaID, Quantity: 1})
	require.Error(t, err)
	require.True(t, faults.IsBadRequest(err))
}

func TestUpdateItemAdjustsStockByDelta(t *testing.T) {
	l, store, _ := newLedger(t)
	order, err := l.Create(context.Background(), server1, CreateRequest{})
	require.NoError(t, err)
	item, err := l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: burgerID, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, 8, stockOf(t, store, burgerID))

	// Growing consumes the delta.
	updated, err := l.UpdateItem(context.Background(), server1, order.ID, item.ID, UpdateItemRequest{Quantity: 5})
	require.NoError(t, err)
	require.Equal(t, 25.00, updated.Subtotal)
	require.Equal(t, 5, stockOf(t, store, burgerID))
	require.Equal(t, 25.00, store.OrderByID(order.ID).Total)

	// Shrinking returns the delta.
	updated, err = l.UpdateItem(context.Background(), server1, order.ID, item.ID, UpdateItemRequest{Quantity: 1, Notes: strPtr("no pickles")})
	require.NoError(t, err)
	require.Equal(t, 5.00, updated.Subtotal)
	require.Equal(t, "no pickles", updated.Notes)
	require.Equal(t, 9, stockOf(t, store, burgerID))
	require.Equal(t, 5.00, store.OrderByID(order.ID).Total)
}

func TestUpdateItemInsufficientStockForDelta(t *testing.T) {
	l, store, _ := newLedger(t)
	order, err := l.Create(context.Background(), server1, CreateRequest{})
	require.NoError(t, err)
	item, err := l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: burgerID, Quantity: 8})
	require.NoError(t, err)
	require.Equal(t, 2, stockOf(t, store, burgerID))

	_, err = l.UpdateItem(context.Background(), server1, order.ID, item.ID, UpdateItemRequest{Quantity: 11})
	require.Error(t, err)
	require.True(t, faults.IsBadRequest(err))

	require.Equal(t, 2, stockOf(t, store, burgerID))
	items := store.ItemsByOrder(order.ID)
	require.Len(t, items, 1)
	require.Equal(t, 8, items[0].Quantity)
}

func TestUpdateCancelledItemRejected(t *testing.T) {
	l, _, _ := newLedger(t)
	order, err := l.Create(context.Background(), server1, CreateRequest{})
	require.NoError(t, err)
	item, err := l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: sodaID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, l.RemoveItem(context.Background(), server1, order.ID, item.ID))

	_, err = l.UpdateItem(context.Background(), server1, order.ID, item.ID, UpdateItemRequest{Quantity: 2})
	require.Error(t, err)
	require.True(t, faults.IsBadRequest(err))
}

func TestRemoveItemRestoresStockAndTotals(t *testing.T) {
	l, store, _ := newLedger(t)
	order, err := l.Create(context.Background(), server1, CreateRequest{})
	require.NoError(t, err)
	burger, err := l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: burgerID, Quantity: 2})
	require.NoError(t, err)
	_, err = l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: sodaID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, l.RemoveItem(context.Background(), server1, order.ID, burger.ID))

	require.Equal(t, 10, stockOf(t, store, burgerID))
	require.Equal(t, 2.50, store.OrderByID(order.ID).Total)

	// The row survives as a cancelled line.
	items := store.ItemsByOrder(order.ID)
	require.Len(t, items, 2)
	require.Equal(t, models.ItemCancelled, items[0].Status)

	// Double removal is rejected.
	err = l.RemoveItem(context.Background(), server1, order.ID, burger.ID)
	require.True(t, faults.IsBadRequest(err))
	require.Equal(t, 10, stockOf(t, store, burgerID))
}

func TestCancelOrderRestoresStockAndFreesTable(t *testing.T) {
	l, store, rec := newLedger(t)
	order, err := l.Create(context.Background(), server1, CreateRequest{TableID: i64Ptr(1)})
	require.NoError(t, err)
	_, err = l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: burgerID, Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, l.Cancel(context.Background(), moderator, order.ID, "kitchen fire"))

	stored := store.OrderByID(order.ID)
	require.Equal(t, models.OrderCancelled, stored.Status)
	require.NotNil(t, stored.ClosedAt)
	require.Contains(t, stored.Notes, "cancelled: kitchen fire")

	require.Equal(t, 10, stockOf(t, store, burgerID))
	for _, it := range store.ItemsByOrder(order.ID) {
		require.Equal(t, models.ItemCancelled, it.Status)
	}

	tbl := store.TableByID(1)
	require.Equal(t, models.TableAvailable, tbl.Status)
	require.Nil(t, tbl.CurrentOrderID)
	require.False(t, tbl.Locked())

	events := rec.Events()
	require.Equal(t, "order.cancelled", events[len(events)-1].Action)
}

func TestCancelRequiresManagerRole(t *testing.T) {
	l, store, _ := newLedger(t)
	order, err := l.Create(context.Background(), server1, CreateRequest{})
	require.NoError(t, err)

	err = l.Cancel(context.Background(), server1, order.ID, "changed mind")
	require.Error(t, err)
	require.True(t, faults.IsForbidden(err))
	require.Equal(t, models.OrderOpen, store.OrderByID(order.ID).Status)
}

func TestCancelAlreadyCancelled(t *testing.T) {
	l, _, _ := newLedger(t)
	order, err := l.Create(context.Background(), server1, CreateRequest{})
	require.NoError(t, err)
	require.NoError(t, l.Cancel(context.Background(), moderator, order.ID, "first"))

	err = l.Cancel(context.Background(), moderator, order.ID, "second")
	require.Error(t, err)
	require.True(t, faults.IsBadRequest(err))
}

// Totals must equal the live item set after every mutation in a mixed
// sequence, not just at the end.
func TestTotalsTrackItemSetThroughSequence(t *testing.T) {
	l, store, _ := newLedger(t)
	order, err := l.Create(context.Background(), server1, CreateRequest{})
	require.NoError(t, err)

	assertTotals := func() {
		t.Helper()
		var want float64
		for _, it := range store.ItemsByOrder(order.ID) {
			if it.Cancelled() {
				continue
			}
			want += it.Subtotal
		}
		stored := store.OrderByID(order.ID)
		require.Equal(t, models.RoundMoney(want), stored.Subtotal)
		require.Equal(t, stored.Subtotal+stored.Tax-stored.Discount, stored.Total)
	}

	burger, err := l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: burgerID, Quantity: 2})
	require.NoError(t, err)
	assertTotals()

	soda, err := l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: sodaID, Quantity: 3})
	require.NoError(t, err)
	assertTotals()

	_, err = l.UpdateItem(context.Background(), server1, order.ID, burger.ID, UpdateItemRequest{Quantity: 4})
	require.NoError(t, err)
	assertTotals()

	require.NoError(t, l.RemoveItem(context.Background(), server1, order.ID, soda.ID))
	assertTotals()

	_, err = l.AddItem(context.Background(), server1, order.ID, AddItemRequest{ProductID: fishID, Quantity: 1, UnitPrice: f64Ptr(12.34)})
	require.NoError(t, err)
	assertTotals()
}
