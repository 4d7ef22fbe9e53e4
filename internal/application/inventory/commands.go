package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/inventory"
)

// MovementCommand is one of ReceiveCommand, IssueCommand, ConsumeCommand or AdjustCommand.
// Each carries exactly the fields its movement type accepts.
type MovementCommand interface {
	MovementType() entity.MovementType
	Product() int64
	validate() error
}

// ReceiveCommand brings stock in. UnitCost is per input unit.
type ReceiveCommand struct {
	ProductID int64
	Quantity  decimal.Decimal
	Unit      string
	UnitCost  *decimal.Decimal
	Note      string
}

// IssueCommand takes stock out against a cost center and cost element.
type IssueCommand struct {
	ProductID   int64
	Quantity    decimal.Decimal
	Unit        string
	CostCenter  string
	CostElement string
	Note        string
}

// ConsumeCommand takes stock out against an open work order.
type ConsumeCommand struct {
	ProductID   int64
	Quantity    decimal.Decimal
	Unit        string
	WorkOrderID int64
	Note        string
}

// AdjustCommand applies a signed correction in base units.
type AdjustCommand struct {
	ProductID int64
	Delta     decimal.Decimal
	Note      string
}

func (ReceiveCommand) MovementType() entity.MovementType { return entity.MovementTypeReceive }
func (IssueCommand) MovementType() entity.MovementType   { return entity.MovementTypeIssue }
func (ConsumeCommand) MovementType() entity.MovementType { return entity.MovementTypeConsume }
func (AdjustCommand) MovementType() entity.MovementType  { return entity.MovementTypeAdjust }

func (c ReceiveCommand) Product() int64 { return c.ProductID }
func (c IssueCommand) Product() int64   { return c.ProductID }
func (c ConsumeCommand) Product() int64 { return c.ProductID }
func (c AdjustCommand) Product() int64  { return c.ProductID }

func validateCommon(productID int64, qty decimal.Decimal, unit string) error {
	if productID <= 0 {
		return domain.Validationf("product_id is required")
	}
	if !qty.IsPositive() {
		return domain.Validationf("quantity must be greater than zero")
	}
	if err := inventory.CheckScale("quantity", qty); err != nil {
		return err
	}
	if unit == "" {
		return domain.Validationf("unit is required")
	}
	return nil
}

func (c ReceiveCommand) validate() error {
	if err := validateCommon(c.ProductID, c.Quantity, c.Unit); err != nil {
		return err
	}
	if c.UnitCost != nil {
		if c.UnitCost.IsNegative() {
			return domain.Validationf("unit_cost must not be negative")
		}
		if err := inventory.CheckScale("unit_cost", *c.UnitCost); err != nil {
			return err
		}
	}
	return nil
}

func (c IssueCommand) validate() error {
	return validateCommon(c.ProductID, c.Quantity, c.Unit)
}

func (c ConsumeCommand) validate() error {
	return validateCommon(c.ProductID, c.Quantity, c.Unit)
}

func (c AdjustCommand) validate() error {
	if c.ProductID <= 0 {
		return domain.Validationf("product_id is required")
	}
	if c.Delta.IsZero() {
		return domain.Validationf("adjustment delta must not be zero")
	}
	return inventory.CheckScale("quantity", c.Delta)
}

func notePtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
