package models

import "time"

// PaymentMethod is a configured way of paying (cash, card, voucher).
// Inactive methods stay on file for historical payments but reject new
// settlements.
type PaymentMethod struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Active bool   `json:"active" db:"active"`
}

// Payment records the settlement of one order. Exactly one is created
// when the order transitions to paid, and it is immutable afterwards;
// refunds and voids are separate bookkeeping outside this core.
type Payment struct {
	ID         int64     `json:"id" db:"id"`
	Number     string    `json:"payment_number" db:"number"`
	OrderID    int64     `json:"order_id" db:"order_id"`
	MethodID   int64     `json:"method_id" db:"method_id"`
	AmountDue  float64   `json:"amount_due" db:"amount_due"`
	AmountPaid float64   `json:"amount_paid" db:"amount_paid"`
	Tip        float64   `json:"tip" db:"tip"`
	Change     float64   `json:"change" db:"change"`
	CashierID  int64     `json:"cashier_id" db:"cashier_id"`
	Reference  string    `json:"reference,omitempty" db:"reference"`
	Notes      string    `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
