package orders

import "restaurant-pos/internal/models"

// Totals are the derived monetary fields of an order.
type Totals struct {
	Subtotal float64
	Tax      float64
	Total    float64
}

// ComputeTotals derives order totals from the live item set. Cancelled
// items do not count; their rows stay for history only. The tax rate
// is applied structurally even when configured to zero, so enabling a
// rate later changes a config value, not this formula.
func ComputeTotals(items []models.OrderItem, taxRate, orderDiscount float64) Totals {
	var subtotal float64
	for _, it := range items {
		if it.Cancelled() {
			continue
		}
		subtotal += it.Subtotal
	}
	subtotal = models.RoundMoney(subtotal)
	tax := models.RoundMoney(subtotal * taxRate)
	total := models.RoundMoney(subtotal + tax - orderDiscount)
	return Totals{Subtotal: subtotal, Tax: tax, Total: total}
}

// ItemSubtotal computes the captured line subtotal for an item:
// unit price times quantity, minus the line discount.
func ItemSubtotal(unitPrice float64, quantity int, discount float64) float64 {
	return models.RoundMoney(unitPrice*float64(quantity) - discount)
}
