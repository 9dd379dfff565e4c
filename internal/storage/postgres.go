package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/faults"
	"restaurant-pos/internal/models"
)

// Postgres implements Store on a pgx connection pool. Row locks come
// from SELECT ... FOR UPDATE inside the transaction pgx gives us, so
// two actors contending for the same table or order block on the
// database, not in this process.
type Postgres struct {
	db *database.DB
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(db *database.DB) *Postgres {
	return &Postgres{db: db}
}

// WithinTx runs fn inside a single database transaction. Any error
// from fn rolls the transaction back in full.
func (s *Postgres) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetTableForUpdate(ctx context.Context, tableID int64) (*models.Table, error) {
	var tbl models.Table
	err := t.tx.QueryRow(ctx, getTableForUpdateSQL, tableID).Scan(
		&tbl.ID, &tbl.Number, &tbl.Capacity, &tbl.Status, &tbl.CurrentOrderID,
		&tbl.LockHolder, &tbl.LockAcquiredAt, &tbl.Active, &tbl.CreatedAt, &tbl.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, faults.NotFound("table %d not found", tableID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load table %d: %w", tableID, err)
	}
	return &tbl, nil
}

func (t *pgTx) SaveTable(ctx context.Context, tbl *models.Table) error {
	_, err := t.tx.Exec(ctx, updateTableSQL,
		tbl.ID, tbl.Status, tbl.CurrentOrderID, tbl.LockHolder, tbl.LockAcquiredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update table %d: %w", tbl.ID, err)
	}
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *models.Order) error {
	err := t.tx.QueryRow(ctx, insertOrderSQL,
		o.Number, o.TableID, o.ServerID, o.GuestCount, o.Status,
		o.Subtotal, o.Tax, o.Discount, o.Total, o.Notes,
	).Scan(&o.ID, &o.OpenedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order %s: %w", o.Number, err)
	}
	return nil
}

func (t *pgTx) GetOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error) {
	var o models.Order
	err := t.tx.QueryRow(ctx, getOrderForUpdateSQL, orderID).Scan(
		&o.ID, &o.Number, &o.TableID, &o.ServerID, &o.GuestCount, &o.Status,
		&o.Subtotal, &o.Tax, &o.Discount, &o.Total, &o.Notes,
		&o.OpenedAt, &o.ClosedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, faults.NotFound("order %d not found", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	return &o, nil
}

func (t *pgTx) SaveOrder(ctx context.Context, o *models.Order) error {
	_, err := t.tx.Exec(ctx, updateOrderSQL,
		o.ID, o.Status, o.Subtotal, o.Tax, o.Discount, o.Total, o.Notes, o.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update order %d: %w", o.ID, err)
	}
	return nil
}

func (t *pgTx) InsertOrderItem(ctx context.Context, it *models.OrderItem) error {
	err := t.tx.QueryRow(ctx, insertOrderItemSQL,
		it.OrderID, it.ProductID, it.Quantity, it.UnitPrice, it.Discount,
		it.Subtotal, it.Status, it.Notes, it.AddedBy,
	).Scan(&it.ID, &it.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to insert item for order %d: %w", it.OrderID, err)
	}
	return nil
}

func (t *pgTx) GetOrderItem(ctx context.Context, orderID, itemID int64) (*models.OrderItem, error) {
	var it models.OrderItem
	err := t.tx.QueryRow(ctx, getOrderItemSQL, orderID, itemID).Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Discount,
		&it.Subtotal, &it.Status, &it.Notes, &it.AddedBy, &it.AddedAt, &it.ServedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, faults.NotFound("item %d not found on order %d", itemID, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item %d: %w", itemID, err)
	}
	return &it, nil
}

func (t *pgTx) SaveOrderItem(ctx context.Context, it *models.OrderItem) error {
	_, err := t.tx.Exec(ctx, updateOrderItemSQL,
		it.ID, it.Quantity, it.Subtotal, it.Status, it.Notes, it.ServedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update item %d: %w", it.ID, err)
	}
	return nil
}

func (t *pgTx) ListOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	rows, err := t.tx.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items for order %d: %w", orderID, err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Discount,
			&it.Subtotal, &it.Status, &it.Notes, &it.AddedBy, &it.AddedAt, &it.ServedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (t *pgTx) GetProductForUpdate(ctx context.Context, productID int64) (*models.Product, error) {
	var p models.Product
	err := t.tx.QueryRow(ctx, getProductForUpdateSQL, productID).Scan(
		&p.ID, &p.Name, &p.Price, &p.Available, &p.TrackStock,
		&p.StockQuantity, &p.VariablePrice, &p.Active,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, faults.NotFound("product %d not found", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", productID, err)
	}
	return &p, nil
}

func (t *pgTx) SaveProductStock(ctx context.Context, productID int64, stock int) error {
	_, err := t.tx.Exec(ctx, updateProductStockSQL, productID, stock)
	if err != nil {
		return fmt.Errorf("failed to update stock for product %d: %w", productID, err)
	}
	return nil
}

func (t *pgTx) GetPaymentMethod(ctx context.Context, methodID int64) (*models.PaymentMethod, error) {
	var m models.PaymentMethod
	err := t.tx.QueryRow(ctx, getPaymentMethodSQL, methodID).Scan(&m.ID, &m.Name, &m.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, faults.NotFound("payment method %d not found", methodID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment method %d: %w", methodID, err)
	}
	return &m, nil
}

func (t *pgTx) InsertPayment(ctx context.Context, p *models.Payment) error {
	err := t.tx.QueryRow(ctx, insertPaymentSQL,
		p.Number, p.OrderID, p.MethodID, p.AmountDue, p.AmountPaid,
		p.Tip, p.Change, p.CashierID, p.Reference, p.Notes,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment for order %d: %w", p.OrderID, err)
	}
	return nil
}
