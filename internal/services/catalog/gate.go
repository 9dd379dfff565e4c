// Package catalog is the order ledger's read-only view of the product
// catalog: availability, stock and pricing rules applied to a product
// row that was loaded under the enclosing transaction's row lock.
package catalog

import (
	"restaurant-pos/internal/faults"
	"restaurant-pos/internal/models"
)

// EnsureOrderable rejects products that cannot take new order items.
// Inactive products read as missing; unavailable ones are a client
// error ("86'd" but still on the menu).
func EnsureOrderable(p *models.Product) error {
	if p == nil || !p.Active {
		return faults.NotFound("product not found")
	}
	if !p.Available {
		return faults.BadRequest("product %s is not available", p.Name)
	}
	return nil
}

// EnsureStock rejects the quantity when the product tracks stock and
// does not have enough left. Untracked products always pass.
func EnsureStock(p *models.Product, quantity int) error {
	if !p.TrackStock {
		return nil
	}
	if p.Stock() < quantity {
		return faults.BadRequest("insufficient stock for %s: %d requested, %d available", p.Name, quantity, p.Stock())
	}
	return nil
}

// ResolveUnitPrice picks the price an item is captured at. Variable
// price products take the caller-supplied price when one is given;
// everything else uses the catalog price. A negative supplied price is
// always rejected, and a supplied price on a fixed-price product is
// ignored rather than trusted.
func ResolveUnitPrice(p *models.Product, supplied *float64) (float64, error) {
	if supplied != nil && *supplied < 0 {
		return 0, faults.BadRequest("unit price must not be negative")
	}
	if p.VariablePrice && supplied != nil {
		return models.RoundMoney(*supplied), nil
	}
	return models.RoundMoney(p.Price), nil
}
