package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/audit"
	"restaurant-pos/internal/faults"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/orders"
	"restaurant-pos/internal/storage"
)

var (
	server    = models.Actor{ID: 1, Role: models.RoleServer}
	cashier   = models.Actor{ID: 5, Role: models.RoleCashier}
	moderator = models.Actor{ID: 4, Role: models.RoleModerator}
)

const (
	cashMethod     = int64(1)
	disabledMethod = int64(2)
	menuProduct    = int64(30) // fixed price 45.00, untracked
)

func i64Ptr(v int64) *int64 { return &v }

func newEngine(t *testing.T) (*Engine, *orders.Ledger, *storage.Memory, *audit.Recorder) {
	t.Helper()
	store := storage.NewMemory()
	store.SeedTable(models.Table{ID: 1, Number: 1, Capacity: 4, Status: models.TableAvailable, Active: true})
	store.SeedProduct(models.Product{ID: menuProduct, Name: "tasting menu", Price: 45.00, Available: true, Active: true})
	store.SeedPaymentMethod(models.PaymentMethod{ID: cashMethod, Name: "cash", Active: true})
	store.SeedPaymentMethod(models.PaymentMethod{ID: disabledMethod, Name: "store credit", Active: false})

	rec := &audit.Recorder{}
	log := logger.New("payments-test")
	ledger := orders.NewLedger(store, log, audit.Nop{}, 0, 30*time.Minute)
	engine := NewEngine(store, log, rec)
	return engine, ledger, store, rec
}

// openOrder opens a takeaway order with one 45.00 line.
func openOrder(t *testing.T, ledger *orders.Ledger) *models.Order {
	t.Helper()
	order, err := ledger.Create(context.Background(), server, orders.CreateRequest{})
	require.NoError(t, err)
	_, err = ledger.AddItem(context.Background(), server, order.ID, orders.AddItemRequest{ProductID: menuProduct, Quantity: 1})
	require.NoError(t, err)
	return order
}

func TestProcessExactAmountWithTip(t *testing.T) {
	engine, ledger, store, rec := newEngine(t)
	order := openOrder(t, ledger)

	payment, err := engine.Process(context.Background(), cashier, Request{
		OrderID: order.ID, MethodID: cashMethod, AmountPaid: 50.00, Tip: 5.00,
	})
	require.NoError(t, err)
	require.Equal(t, 45.00, payment.AmountDue)
	require.Equal(t, 0.00, payment.Change)
	require.Contains(t, payment.Number, "PAY-")
	require.Equal(t, cashier.ID, payment.CashierID)

	stored := store.OrderByID(order.ID)
	require.Equal(t, models.OrderPaid, stored.Status)
	require.NotNil(t, stored.ClosedAt)

	for _, it := range store.ItemsByOrder(order.ID) {
		require.Equal(t, models.ItemServed, it.Status)
		require.NotNil(t, it.ServedAt)
	}

	events := rec.Events()
	require.Len(t, events, 1)
	require.Equal(t, "payment.processed", events[0].Action)
}

func TestProcessInsufficientAmount(t *testing.T) {
	engine, ledger, store, _ := newEngine(t)
	order := openOrder(t, ledger)

	_, err := engine.Process(context.Background(), cashier, Request{
		OrderID: order.ID, MethodID: cashMethod, AmountPaid: 49.99, Tip: 5.00,
	})
	require.Error(t, err)
	require.True(t, faults.IsBadRequest(err))

	// The order stays open and payable.
	require.Equal(t, models.OrderOpen, store.OrderByID(order.ID).Status)
	require.Empty(t, store.PaymentsByOrder(order.ID))
}

func TestProcessOverpaymentYieldsChange(t *testing.T) {
	engine, ledger, _, _ := newEngine(t)
	order := openOrder(t, ledger)

	payment, err := engine.Process(context.Background(), cashier, Request{
		OrderID: order.ID, MethodID: cashMethod, AmountPaid: 60.00, Tip: 5.00,
	})
	require.NoError(t, err)
	require.Equal(t, 10.00, payment.Change)
}

func TestProcessTwiceRejected(t *testing.T) {
	engine, ledger, store, _ := newEngine(t)
	order := openOrder(t, ledger)

	_, err := engine.Process(context.Background(), cashier, Request{
		OrderID: order.ID, MethodID: cashMethod, AmountPaid: 45.00,
	})
	require.NoError(t, err)

	_, err = engine.Process(context.Background(), cashier, Request{
		OrderID: order.ID, MethodID: cashMethod, AmountPaid: 45.00,
	})
	require.Error(t, err)
	require.True(t, faults.IsBadRequest(err))

	require.Len(t, store.PaymentsByOrder(order.ID), 1)
}

func TestProcessRoleGate(t *testing.T) {
	engine, ledger, _, _ := newEngine(t)
	order := openOrder(t, ledger)

	for _, actor := range []models.Actor{server, moderator} {
		_, err := engine.Process(context.Background(), actor, Request{
			OrderID: order.ID, MethodID: cashMethod, AmountPaid: 45.00,
		})
		require.Error(t, err)
		require.True(t, faults.IsForbidden(err))
	}

	_, err := engine.Process(context.Background(), models.Actor{ID: 9, Role: models.RoleAdmin}, Request{
		OrderID: order.ID, MethodID: cashMethod, AmountPaid: 45.00,
	})
	require.NoError(t, err)
}

func TestProcessNegativeAmounts(t *testing.T) {
	engine, ledger, _, _ := newEngine(t)
	order := openOrder(t, ledger)

	_, err := engine.Process(context.Background(), cashier, Request{
		OrderID: order.ID, MethodID: cashMethod, AmountPaid: -1,
	})
	require.True(t, faults.IsBadRequest(err))

	_, err = engine.Process(context.Background(), cashier, Request{
		OrderID: order.ID, MethodID: cashMethod, AmountPaid: 45.00, Tip: -1,
	})
	require.True(t, faults.IsBadRequest(err))
}

func TestProcessInactiveMethod(t *testing.T) {
	engine, ledger, _, _ := newEngine(t)
	order := openOrder(t, ledger)

	_, err := engine.Process(context.Background(), cashier, Request{
		OrderID: order.ID, MethodID: disabledMethod, AmountPaid: 45.00,
	})
	require.Error(t, err)
	require.True(t, faults.IsBadRequest(err))
}

func TestProcessUnknownMethod(t *testing.T) {
	engine, ledger, _, _ := newEngine(t)
	order := openOrder(t, ledger)

	_, err := engine.Process(context.Background(), cashier, Request{
		OrderID: order.ID, MethodID: 99, AmountPaid: 45.00,
	})
	require.Error(t, err)
	require.True(t, faults.IsNotFound(err))
}

func TestProcessCancelledOrder(t *testing.T) {
	engine, ledger, _, _ := newEngine(t)
	order := openOrder(t, ledger)
	require.NoError(t, ledger.Cancel(context.Background(), moderator, order.ID, "no-show"))

	_, err := engine.Process(context.Background(), cashier, Request{
		OrderID: order.ID, MethodID: cashMethod, AmountPaid: 45.00,
	})
	require.Error(t, err)
	require.True(t, faults.IsBadRequest(err))
}

func TestCancelAfterPaymentRejected(t *testing.T) {
	engine, ledger, _, _ := newEngine(t)
	order := openOrder(t, ledger)

	_, err := engine.Process(context.Background(), cashier, Request{
		OrderID: order.ID, MethodID: cashMethod, AmountPaid: 45.00,
	})
	require.NoError(t, err)

	err = ledger.Cancel(context.Background(), moderator, order.ID, "too late")
	require.Error(t, err)
	require.True(t, faults.IsBadRequest(err))
	require.Contains(t, err.Error(), "refund")
}

func TestProcessFreesBoundTable(t *testing.T) {
	engine, ledger, store, _ := newEngine(t)
	order, err := ledger.Create(context.Background(), server, orders.CreateRequest{TableID: i64Ptr(1)})
	require.NoError(t, err)
	_, err = ledger.AddItem(context.Background(), server, order.ID, orders.AddItemRequest{ProductID: menuProduct, Quantity: 1})
	require.NoError(t, err)

	_, err = engine.Process(context.Background(), cashier, Request{
		OrderID: order.ID, MethodID: cashMethod, AmountPaid: 45.00,
	})
	require.NoError(t, err)

	tbl := store.TableByID(1)
	require.Equal(t, models.TableAvailable, tbl.Status)
	require.Nil(t, tbl.CurrentOrderID)
	require.False(t, tbl.Locked())
}
