package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType is the kind of change a movement applies to the balance.
type MovementType string

const (
	MovementTypeReceive MovementType = "RECEIVE" // stock in, sets the average cost
	MovementTypeIssue   MovementType = "ISSUE"   // stock out against a cost center
	MovementTypeConsume MovementType = "CONSUME" // stock out against a work order
	MovementTypeAdjust  MovementType = "ADJUST"  // signed correction, privileged
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementTypeReceive, MovementTypeIssue, MovementTypeConsume, MovementTypeAdjust:
		return true
	}
	return false
}

// IsOutbound reports whether the movement withdraws stock.
func (t MovementType) IsOutbound() bool {
	return t == MovementTypeIssue || t == MovementTypeConsume
}

// ReverseType returns the type of the compensating movement for t.
// ADJUST has no compensating type.
func (t MovementType) ReverseType() (MovementType, bool) {
	switch t {
	case MovementTypeReceive:
		return MovementTypeIssue, true
	case MovementTypeIssue, MovementTypeConsume:
		return MovementTypeReceive, true
	}
	return "", false
}

// Reference types stored in ref_type.
const (
	RefTypeCostCenter = "COST_CENTER"
	RefTypeWorkOrder  = "WORK_ORDER"
	RefTypeReversal   = "REVERSAL"
)

// StockMovement is an append-only ledger row. Only ReversedAt and ReversedBy change after insert.
type StockMovement struct {
	ID          int64
	ProductID   int64
	Type        MovementType
	WorkOrderID *int64
	CostCenter  *string
	CostElement *string
	RefType     *string

	QtyInput         decimal.Decimal
	UnitInput        string
	MultiplierToBase decimal.Decimal
	QtyBase          decimal.Decimal
	UnitCostInput    decimal.NullDecimal // RECEIVE only
	UnitCostBase     decimal.Decimal
	ValueTotal       decimal.Decimal

	Quantity     decimal.Decimal // signed, base unit
	BalanceAfter decimal.Decimal

	PerformedBy string
	PerformedAt time.Time
	CreatedAt   time.Time
	Note        *string

	ReversalOfID *int64
	ReversedAt   *time.Time
	ReversedBy   *string
}

// IsReversed reports whether a later compensating movement offsets this one.
func (m *StockMovement) IsReversed() bool { return m.ReversedAt != nil }

// IsReversal reports whether this movement compensates an earlier one.
func (m *StockMovement) IsReversal() bool { return m.ReversalOfID != nil }
