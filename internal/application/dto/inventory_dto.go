package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
)

// CreateMovementRequest is the flat body of POST /api/stock/movements.
// Which optional fields are allowed depends on Type.
type CreateMovementRequest struct {
	ProductID   int64            `json:"product_id" validate:"required,gt=0"`
	Type        string           `json:"type" validate:"required,oneof=RECEIVE ISSUE CONSUME ADJUST"`
	Quantity    decimal.Decimal  `json:"quantity" swaggertype:"string"`
	Unit        string           `json:"unit" validate:"omitempty,max=16"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty" swaggertype:"string"`
	WorkOrderID *int64           `json:"work_order_id,omitempty" validate:"omitempty,gt=0"`
	CostCenter  string           `json:"cost_center,omitempty" validate:"omitempty,max=50"`
	CostElement string           `json:"cost_element,omitempty" validate:"omitempty,max=50"`
	Note        string           `json:"note,omitempty" validate:"omitempty,max=500"`
}

// MovementResponse is one ledger row as returned by the API.
type MovementResponse struct {
	ID               int64            `json:"id"`
	ProductID        int64            `json:"product_id"`
	Type             string           `json:"type"`
	WorkOrderID      *int64           `json:"work_order_id,omitempty"`
	CostCenter       *string          `json:"cost_center,omitempty"`
	CostElement      *string          `json:"cost_element,omitempty"`
	RefType          *string          `json:"ref_type,omitempty"`
	QtyInput         decimal.Decimal  `json:"qty_input" swaggertype:"string"`
	UnitInput        string           `json:"unit_input"`
	MultiplierToBase decimal.Decimal  `json:"multiplier_to_base" swaggertype:"string"`
	QtyBase          decimal.Decimal  `json:"qty_base" swaggertype:"string"`
	UnitCostInput    *decimal.Decimal `json:"unit_cost_input,omitempty" swaggertype:"string"`
	UnitCostBase     decimal.Decimal  `json:"unit_cost_base" swaggertype:"string"`
	ValueTotal       decimal.Decimal  `json:"value_total" swaggertype:"string"`
	Quantity         decimal.Decimal  `json:"quantity" swaggertype:"string"`
	BalanceAfter     decimal.Decimal  `json:"balance_after" swaggertype:"string"`
	PerformedBy      string           `json:"performed_by"`
	PerformedAt      time.Time        `json:"performed_at"`
	Note             *string          `json:"note,omitempty"`
	ReversalOfID     *int64           `json:"reversal_of_id,omitempty"`
	ReversedAt       *time.Time       `json:"reversed_at,omitempty"`
	ReversedBy       *string          `json:"reversed_by,omitempty"`
	CanUndo          *bool            `json:"can_undo,omitempty"`
}

// MovementFromEntity maps a ledger row to its response shape.
func MovementFromEntity(m *entity.StockMovement) MovementResponse {
	out := MovementResponse{
		ID:               m.ID,
		ProductID:        m.ProductID,
		Type:             string(m.Type),
		WorkOrderID:      m.WorkOrderID,
		CostCenter:       m.CostCenter,
		CostElement:      m.CostElement,
		RefType:          m.RefType,
		QtyInput:         m.QtyInput,
		UnitInput:        m.UnitInput,
		MultiplierToBase: m.MultiplierToBase,
		QtyBase:          m.QtyBase,
		UnitCostBase:     m.UnitCostBase,
		ValueTotal:       m.ValueTotal,
		Quantity:         m.Quantity,
		BalanceAfter:     m.BalanceAfter,
		PerformedBy:      m.PerformedBy,
		PerformedAt:      m.PerformedAt,
		Note:             m.Note,
		ReversalOfID:     m.ReversalOfID,
		ReversedAt:       m.ReversedAt,
		ReversedBy:       m.ReversedBy,
	}
	if m.UnitCostInput.Valid {
		c := m.UnitCostInput.Decimal
		out.UnitCostInput = &c
	}
	return out
}

// MovementHistoryResponse is a page of a product's ledger, newest first.
type MovementHistoryResponse struct {
	ProductID int64              `json:"product_id"`
	Items     []MovementResponse `json:"items"`
	Page      PageResponse       `json:"page"`
}

// RecentMovementsResponse lists the latest movements with undo flags for the caller.
type RecentMovementsResponse struct {
	Items []MovementResponse `json:"items"`
}

// BalanceResponse is the balance of one product plus its low-stock flag.
type BalanceResponse struct {
	ProductID         int64           `json:"product_id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	BaseUnit          string          `json:"base_unit"`
	OnHand            decimal.Decimal `json:"on_hand" swaggertype:"string"`
	CostPerBaseUnit   decimal.Decimal `json:"cost_per_base_unit" swaggertype:"string"`
	StockValue        decimal.Decimal `json:"stock_value" swaggertype:"string"`
	IsLowStock        bool            `json:"is_low_stock"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold" swaggertype:"string"`
	LastMovementID    *int64          `json:"last_movement_id,omitempty"`
	LastUpdated       time.Time       `json:"last_updated"`
}

// LowStockItemResponse is one entry of the low-stock summary.
type LowStockItemResponse struct {
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	OnHand    decimal.Decimal `json:"on_hand" swaggertype:"string"`
}

// LowStockSummaryResponse counts products at or under the threshold and lists the lowest ones.
type LowStockSummaryResponse struct {
	Threshold decimal.Decimal        `json:"threshold" swaggertype:"string"`
	Count     int                    `json:"count"`
	Items     []LowStockItemResponse `json:"items"`
}
