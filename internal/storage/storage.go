package storage

import (
	"context"

	"restaurant-pos/internal/models"
)

// Store is the transactional boundary the services run inside. Every
// business operation executes as one WithinTx call: the callback either
// returns nil and the writes commit atomically, or returns an error and
// nothing becomes visible to other readers.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is a transaction-scoped handle over the rows the core mutates.
// The ForUpdate getters take a pessimistic row lock held until the
// transaction ends, which is what serializes concurrent actors touching
// the same table or order. Getters return a not-found fault when the
// row is missing, so callers never inspect driver sentinel errors.
type Tx interface {
	GetTableForUpdate(ctx context.Context, tableID int64) (*models.Table, error)
	SaveTable(ctx context.Context, t *models.Table) error

	InsertOrder(ctx context.Context, o *models.Order) error
	GetOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error)
	SaveOrder(ctx context.Context, o *models.Order) error

	InsertOrderItem(ctx context.Context, it *models.OrderItem) error
	GetOrderItem(ctx context.Context, orderID, itemID int64) (*models.OrderItem, error)
	SaveOrderItem(ctx context.Context, it *models.OrderItem) error
	ListOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)

	GetProductForUpdate(ctx context.Context, productID int64) (*models.Product, error)
	SaveProductStock(ctx context.Context, productID int64, stock int) error

	GetPaymentMethod(ctx context.Context, methodID int64) (*models.PaymentMethod, error)
	InsertPayment(ctx context.Context, p *models.Payment) error
}
