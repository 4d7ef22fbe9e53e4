package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockBalance is the single authoritative on-hand quantity of a product, in its base unit.
// ZoneID is carried for callers but never interpreted here.
type StockBalance struct {
	ID             int64
	ProductID      int64
	ZoneID         *int64
	OnHand         decimal.Decimal
	LastMovementID *int64
	LastUpdated    time.Time
}

// Apply moves the balance by a signed base-unit quantity and records the movement that did it.
func (b *StockBalance) Apply(movementID int64, signedQty decimal.Decimal, at time.Time) {
	b.OnHand = b.OnHand.Add(signedQty)
	id := movementID
	b.LastMovementID = &id
	b.LastUpdated = at
}

// LowStockItem is one row of the low-stock listing.
type LowStockItem struct {
	ProductID int64
	SKU       string
	Name      string
	Unit      string
	OnHand    decimal.Decimal
}
