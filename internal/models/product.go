package models

// Product is the read side of the catalog the core prices against.
// StockQuantity is nil when the product does not track stock.
// VariablePrice marks products whose unit price is supplied by the
// caller at add time (open food, specials) instead of the catalog.
type Product struct {
	ID            int64   `json:"id" db:"id"`
	Name          string  `json:"name" db:"name"`
	Price         float64 `json:"price" db:"price"`
	Available     bool    `json:"available" db:"available"`
	TrackStock    bool    `json:"track_stock" db:"track_stock"`
	StockQuantity *int    `json:"stock_quantity,omitempty" db:"stock_quantity"`
	VariablePrice bool    `json:"variable_price" db:"variable_price"`
	Active        bool    `json:"active" db:"active"`
}

// Stock returns the tracked stock level, or zero when not tracked.
func (p *Product) Stock() int {
	if p.StockQuantity == nil {
		return 0
	}
	return *p.StockQuantity
}
