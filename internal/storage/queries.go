package storage

// Table queries
const (
	getTableForUpdateSQL = `
		SELECT id, number, capacity, status, current_order_id, lock_holder, lock_acquired_at, active, created_at, updated_at
		FROM tables
		WHERE id = $1 AND active
		FOR UPDATE`

	updateTableSQL = `
		UPDATE tables
		SET status = $2, current_order_id = $3, lock_holder = $4, lock_acquired_at = $5, updated_at = NOW()
		WHERE id = $1`
)

// Order queries
const (
	insertOrderSQL = `
		INSERT INTO orders (number, table_id, server_id, guest_count, status, subtotal, tax, discount, total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, opened_at, updated_at`

	getOrderForUpdateSQL = `
		SELECT id, number, table_id, server_id, guest_count, status, subtotal, tax, discount, total, notes, opened_at, closed_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE`

	updateOrderSQL = `
		UPDATE orders
		SET status = $2, subtotal = $3, tax = $4, discount = $5, total = $6, notes = $7, closed_at = $8, updated_at = NOW()
		WHERE id = $1`
)

// Order item queries
const (
	insertOrderItemSQL = `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, discount, subtotal, status, notes, added_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, added_at`

	getOrderItemSQL = `
		SELECT id, order_id, product_id, quantity, unit_price, discount, subtotal, status, notes, added_by, added_at, served_at
		FROM order_items
		WHERE order_id = $1 AND id = $2`

	updateOrderItemSQL = `
		UPDATE order_items
		SET quantity = $2, subtotal = $3, status = $4, notes = $5, served_at = $6
		WHERE id = $1`

	listOrderItemsSQL = `
		SELECT id, order_id, product_id, quantity, unit_price, discount, subtotal, status, notes, added_by, added_at, served_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC`
)

// Product queries
const (
	getProductForUpdateSQL = `
		SELECT id, name, price, available, track_stock, stock_quantity, variable_price, active
		FROM products
		WHERE id = $1
		FOR UPDATE`

	updateProductStockSQL = `
		UPDATE products
		SET stock_quantity = $2, updated_at = NOW()
		WHERE id = $1`
)

// Payment queries
const (
	getPaymentMethodSQL = `
		SELECT id, name, active
		FROM payment_methods
		WHERE id = $1`

	insertPaymentSQL = `
		INSERT INTO payments (number, order_id, method_id, amount_due, amount_paid, tip, change, cashier_id, reference, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`
)
