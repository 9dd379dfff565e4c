// Package orders owns the order and order-item lifecycle: creation
// bound to a table lock, item mutations against the catalog, totals
// integrity and the order state machine. Every operation runs as one
// transaction under the relevant row locks; no caller ever observes an
// order whose totals disagree with its item set.
package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restaurant-pos/internal/audit"
	"restaurant-pos/internal/faults"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/catalog"
	"restaurant-pos/internal/storage"
)

// Ledger mutates orders and their items.
type Ledger struct {
	store      storage.Store
	logger     *logger.Logger
	audit      audit.Emitter
	taxRate    float64
	staleAfter time.Duration
}

// NewLedger creates an order ledger. taxRate is the configured rate
// applied to subtotals (zero disables tax without changing the
// formula); staleAfter is the table lock staleness threshold shared
// with the table lock manager.
func NewLedger(store storage.Store, log *logger.Logger, emitter audit.Emitter, taxRate float64, staleAfter time.Duration) *Ledger {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &Ledger{
		store:      store,
		logger:     log,
		audit:      emitter,
		taxRate:    taxRate,
		staleAfter: staleAfter,
	}
}

// CreateRequest describes a new order. A nil TableID opens a takeaway
// ticket that skips all table interaction.
type CreateRequest struct {
	TableID    *int64
	GuestCount int
	Notes      string
}

// Create opens a new order. For a table-bound order the table row is
// locked first: an occupied table with a live order conflicts, a
// maintenance table is rejected, and a fresh foreign lock conflicts.
// On success the table becomes occupied and its lock is bound to the
// creating actor.
func (l *Ledger) Create(ctx context.Context, actor models.Actor, req CreateRequest) (*models.Order, error) {
	requestID := logger.GenerateRequestID()

	if req.GuestCount < 0 {
		return nil, faults.BadRequest("guest count must not be negative")
	}
	guests := req.GuestCount
	if guests == 0 {
		guests = 1
	}

	order := &models.Order{
		Number:     models.NewOrderNumber(),
		TableID:    req.TableID,
		ServerID:   actor.ID,
		GuestCount: guests,
		Status:     models.OrderOpen,
		Notes:      req.Notes,
	}

	err := l.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if req.TableID == nil {
			return tx.InsertOrder(ctx, order)
		}

		t, err := tx.GetTableForUpdate(ctx, *req.TableID)
		if err != nil {
			return err
		}

		if t.Status == models.TableOccupied && t.CurrentOrderID != nil {
			return faults.Conflict("table %d already has an active order", t.Number)
		}
		if t.Status == models.TableMaintenance {
			return faults.BadRequest("table %d is under maintenance", t.Number)
		}
		now := time.Now().UTC()
		if t.Locked() && !t.LockedBy(actor.ID) && !t.LockStale(now, l.staleAfter) {
			return faults.Conflict("table %d is in use", t.Number)
		}

		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		t.Status = models.TableOccupied
		t.CurrentOrderID = &order.ID
		t.GrantLock(actor.ID, now)
		return tx.SaveTable(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	l.audit.Emit(ctx, audit.NewEvent(actor.ID, "order.created", "order", order.ID, nil, order))
	l.logger.Info("order_created", fmt.Sprintf("Order %s opened", order.Number), requestID, map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.Number,
		"table_id":     req.TableID,
		"server_id":    actor.ID,
	})
	return order, nil
}

// AddItemRequest describes a new order line. UnitPrice is only
// honored for variable-price products.
type AddItemRequest struct {
	ProductID int64
	Quantity  int
	Notes     string
	UnitPrice *float64
}

// AddItem appends a line to an open order, capturing the unit price
// and decrementing tracked stock, then recomputes the order totals —
// all inside one transaction holding the order row lock.
func (l *Ledger) AddItem(ctx context.Context, actor models.Actor, orderID int64, req AddItemRequest) (*models.OrderItem, error) {
	requestID := logger.GenerateRequestID()

	if req.Quantity < 1 {
		return nil, faults.BadRequest("quantity must be at least 1")
	}

	var item *models.OrderItem
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		order, err := l.openOrderForActor(ctx, tx, orderID, actor)
		if err != nil {
			return err
		}

		product, err := tx.GetProductForUpdate(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if err := catalog.EnsureOrderable(product); err != nil {
			return err
		}
		unitPrice, err := catalog.ResolveUnitPrice(product, req.UnitPrice)
		if err != nil {
			return err
		}
		if err := catalog.EnsureStock(product, req.Quantity); err != nil {
			return err
		}

		item = &models.OrderItem{
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  req.Quantity,
			UnitPrice: unitPrice,
			Subtotal:  ItemSubtotal(unitPrice, req.Quantity, 0),
			Status:    models.ItemPending,
			Notes:     req.Notes,
			AddedBy:   actor.ID,
		}
		if err := tx.InsertOrderItem(ctx, item); err != nil {
			return err
		}

		if product.TrackStock {
			if err := tx.SaveProductStock(ctx, product.ID, product.Stock()-req.Quantity); err != nil {
				return err
			}
		}

		return l.recomputeTotals(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	l.audit.Emit(ctx, audit.NewEvent(actor.ID, "order.item_added", "order_item", item.ID, nil, item))
	l.logger.Info("order_item_added", fmt.Sprintf("Item added to order %d", orderID), requestID, map[string]interface{}{
		"order_id":   orderID,
		"item_id":    item.ID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	})
	return item, nil
}

// UpdateItemRequest changes an existing line. Quantity is mandatory;
// Notes replaces the line notes when non-nil.
type UpdateItemRequest struct {
	Quantity int
	Notes    *string
}

// UpdateItem changes the quantity of a line. Stock is adjusted by the
// quantity delta (growing consumes, shrinking returns) and the line
// subtotal is recomputed from the originally captured unit price. The
// product's current catalog state is deliberately not re-checked:
// deactivating a product blocks new lines, not edits to lines that
// already reference it.
func (l *Ledger) UpdateItem(ctx context.Context, actor models.Actor, orderID, itemID int64, req UpdateItemRequest) (*models.OrderItem, error) {
	requestID := logger.GenerateRequestID()

	if req.Quantity < 1 {
		return nil, faults.BadRequest("quantity must be at least 1")
	}

	var before, after *models.OrderItem
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		order, err := l.openOrderForActor(ctx, tx, orderID, actor)
		if err != nil {
			return err
		}

		item, err := tx.GetOrderItem(ctx, orderID, itemID)
		if err != nil {
			return err
		}
		if item.Cancelled() {
			return faults.BadRequest("item %d is already cancelled", itemID)
		}

		delta := req.Quantity - item.Quantity
		if delta != 0 {
			product, err := tx.GetProductForUpdate(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if product.TrackStock {
				if delta > 0 && product.Stock() < delta {
					return faults.BadRequest("insufficient stock for %s: %d more requested, %d available", product.Name, delta, product.Stock())
				}
				if err := tx.SaveProductStock(ctx, product.ID, product.Stock()-delta); err != nil {
					return err
				}
			}
		}

		snapshot := *item
		before = &snapshot
		item.Quantity = req.Quantity
		item.Subtotal = ItemSubtotal(item.UnitPrice, req.Quantity, item.Discount)
		if req.Notes != nil {
			item.Notes = *req.Notes
		}
		if err := tx.SaveOrderItem(ctx, item); err != nil {
			return err
		}
		after = item

		return l.recomputeTotals(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	l.audit.Emit(ctx, audit.NewEvent(actor.ID, "order.item_updated", "order_item", itemID, before, after))
	l.logger.Info("order_item_updated", fmt.Sprintf("Item %d updated on order %d", itemID, orderID), requestID, map[string]interface{}{
		"order_id": orderID,
		"item_id":  itemID,
		"quantity": req.Quantity,
	})
	return after, nil
}

// RemoveItem cancels a line. The row is never deleted; tracked stock
// gets the full line quantity back and totals are recomputed.
func (l *Ledger) RemoveItem(ctx context.Context, actor models.Actor, orderID, itemID int64) error {
	requestID := logger.GenerateRequestID()

	var before, after *models.OrderItem
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		order, err := l.openOrderForActor(ctx, tx, orderID, actor)
		if err != nil {
			return err
		}

		item, err := tx.GetOrderItem(ctx, orderID, itemID)
		if err != nil {
			return err
		}
		if item.Cancelled() {
			return faults.BadRequest("item %d is already cancelled", itemID)
		}

		snapshot := *item
		before = &snapshot
		item.Status = models.ItemCancelled
		if err := tx.SaveOrderItem(ctx, item); err != nil {
			return err
		}
		after = item

		product, err := tx.GetProductForUpdate(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if product.TrackStock {
			if err := tx.SaveProductStock(ctx, product.ID, product.Stock()+item.Quantity); err != nil {
				return err
			}
		}

		return l.recomputeTotals(ctx, tx, order)
	})
	if err != nil {
		return err
	}

	l.audit.Emit(ctx, audit.NewEvent(actor.ID, "order.item_removed", "order_item", itemID, before, after))
	l.logger.Info("order_item_removed", fmt.Sprintf("Item %d cancelled on order %d", itemID, orderID), requestID, map[string]interface{}{
		"order_id": orderID,
		"item_id":  itemID,
	})
	return nil
}

// Cancel closes an open order without payment. Admin and moderator
// only. Stock of every live item is restored, all items flip to
// cancelled, and a bound table goes back to available with its lock
// cleared. Paid orders are refused ("use refund instead").
func (l *Ledger) Cancel(ctx context.Context, actor models.Actor, orderID int64, reason string) error {
	requestID := logger.GenerateRequestID()

	if !actor.Role.CanManageOrders() {
		return faults.Forbidden("only admins and moderators may cancel orders")
	}

	var before, after *models.Order
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == models.OrderPaid {
			return faults.BadRequest("order %s is already paid, use refund instead", order.Number)
		}
		if order.Status == models.OrderCancelled || order.Status == models.OrderVoid {
			return faults.BadRequest("order %s is already %s", order.Number, order.Status)
		}

		items, err := tx.ListOrderItems(ctx, orderID)
		if err != nil {
			return err
		}
		for i := range items {
			item := &items[i]
			if item.Cancelled() {
				continue
			}

			product, err := tx.GetProductForUpdate(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if product.TrackStock {
				if err := tx.SaveProductStock(ctx, product.ID, product.Stock()+item.Quantity); err != nil {
					return err
				}
			}

			item.Status = models.ItemCancelled
			if err := tx.SaveOrderItem(ctx, item); err != nil {
				return err
			}
		}

		snapshot := *order
		before = &snapshot
		now := time.Now().UTC()
		order.Status = models.OrderCancelled
		order.ClosedAt = &now
		order.Notes = appendNote(order.Notes, "cancelled: "+reason)
		if err := tx.SaveOrder(ctx, order); err != nil {
			return err
		}
		after = order

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
		return err
	}

	l.audit.Emit(ctx, audit.NewEvent(actor.ID, "order.cancelled", "order", orderID, before, after))
	l.logger.Info("order_cancelled", fmt.Sprintf("Order %d cancelled", orderID), requestID, map[string]interface{}{
		"order_id": orderID,
		"actor_id": actor.ID,
		"reason":   reason,
	})
	return nil
}

// openOrderForActor loads the order under its row lock and applies the
// shared open/ownership gate for item mutations.
func (l *Ledger) openOrderForActor(ctx context.Context, tx storage.Tx, orderID int64, actor models.Actor) (*models.Order, error) {
	order, err := tx.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderOpen {
		return nil, faults.BadRequest("cannot modify a closed order")
	}
	if !actor.CanMutateOrder(order) {
		return nil, faults.Forbidden("order %s belongs to another server", order.Number)
	}
	return order, nil
}

// recomputeTotals rederives the order's monetary fields from the item
// set within the same transaction as the mutation that changed it.
func (l *Ledger) recomputeTotals(ctx context.Context, tx storage.Tx, order *models.Order) error {
	items, err := tx.ListOrderItems(ctx, order.ID)
	if err != nil {
		return err
	}
	totals := ComputeTotals(items, l.taxRate, order.Discount)
	order.Subtotal = totals.Subtotal
	order.Tax = totals.Tax
	order.Total = totals.Total
	return tx.SaveOrder(ctx, order)
}

func appendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
