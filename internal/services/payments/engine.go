// Package payments settles orders: it validates and records the
// payment, closes the order, and frees the table — atomically, so a
// crash mid-settlement leaves the order untouched and still payable.
package payments

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

// Engine processes payments against the order ledger's final state.
type Engine struct {
	store  storage.Store
	logger *logger.Logger
	audit  audit.Emitter
}

// NewEngine creates a settlement engine.
func NewEngine(store storage.Store, log *logger.Logger, emitter audit.Emitter) *Engine {
	return &Engine{
		store:  store,
		logger: log,
		audit:  emitter,
	}
}

// Request describes a settlement attempt.
type Request struct {
	OrderID    int64
	MethodID   int64
	AmountPaid float64
	Tip        float64
	Reference  string
	Notes      string
}

// Process settles an order. Cashier or admin only. The order row lock
// makes double settlement impossible: the second caller blocks until
// the first commits, then sees status paid and gets a BadRequest, so
// at most one Payment row ever exists per order.
func (e *Engine) Process(ctx context.Context, actor models.Actor, req Request) (*models.Payment, error) {
	requestID := logger.GenerateRequestID()

	if !actor.Role.CanSettle() {
		return nil, faults.Forbidden("only cashiers and admins may process payments")
	}
	if req.AmountPaid < 0 {
		return nil, faults.BadRequest("amount paid must not be negative")
	}
	if req.Tip < 0 {
		return nil, faults.BadRequest("tip must not be negative")
	}

	var payment *models.Payment
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if order.Status == models.OrderPaid {
			return faults.BadRequest("order %s is already paid", order.Number)
		}
		if order.Status == models.OrderCancelled || order.Status == models.OrderVoid {
			return faults.BadRequest("cannot pay for a %s order", order.Status)
		}

		method, err := tx.GetPaymentMethod(ctx, req.MethodID)
		if err != nil {
			return err
		}
		if !method.Active {
			return faults.BadRequest("payment method %s is inactive", method.Name)
		}

		amountDue := order.Total
		required := models.RoundMoney(amountDue + req.Tip)
		if req.AmountPaid < required {
			return faults.BadRequest("insufficient payment: %.2f required, %.2f given", required, req.AmountPaid)
		}

		payment = &models.Payment{
			Number:     models.NewPaymentNumber(),
			OrderID:    order.ID,
			MethodID:   method.ID,
			AmountDue:  amountDue,
			AmountPaid: req.AmountPaid,
			Tip:        req.Tip,
			Change:     models.RoundMoney(req.AmountPaid - required),
			CashierID:  actor.ID,
			Reference:  req.Reference,
			Notes:      req.Notes,
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}

		now := time.Now().UTC()
		order.Status = models.OrderPaid
		order.ClosedAt = &now
		if err := tx.SaveOrder(ctx, order); err != nil {
			return err
		}

		items, err := tx.ListOrderItems(ctx, order.ID)
		if err != nil {
			return err
		}
		for i := range items {
			item := &items[i]
			if item.Cancelled() {
				continue
			}
			item.Status = models.ItemServed
			item.ServedAt = &now
			if err := tx.SaveOrderItem(ctx, item); err != nil {
				return err
			}
		}

		if order.TableID != nil {
			t, err := tx.GetTableForUpdate(ctx, *order.TableID)
			if err != nil {
				return err
			}
			t.Status = models.TableAvailable
			t.CurrentOrderID = nil
			t.ClearLock()
			if err := tx.SaveTable(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit.Emit(ctx, audit.NewEvent(actor.ID, "payment.processed", "payment", payment.ID, nil, payment))
	e.logger.Info("payment_processed", fmt.Sprintf("Payment %s recorded for order %d", payment.Number, req.OrderID), requestID, map[string]interface{}{
		"order_id":       req.OrderID,
		"payment_number": payment.Number,
		"amount_paid":    payment.AmountPaid,
		"change":         payment.Change,
		"cashier_id":     actor.ID,
	})
	return payment, nil
}
