package inventory

import (
	"context"
	"strings"

	"github.com/SafetyDady/smart-erp-backend/internal/application/dto"
	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/inventory"
)

// CommandFromRequest maps the flat HTTP body onto the typed command of its movement type.
// Fields that do not belong to the type are rejected instead of ignored.
func CommandFromRequest(req dto.CreateMovementRequest) (MovementCommand, error) {
	typ := entity.MovementType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if !typ.Valid() {
		return nil, domain.Validationf("unknown movement type %q", req.Type)
	}
	if typ != entity.MovementTypeConsume && req.WorkOrderID != nil {
		return nil, domain.Validationf("work_order_id is only accepted for CONSUME")
	}
	if typ != entity.MovementTypeIssue && (req.CostCenter != "" || req.CostElement != "") {
		return nil, domain.Validationf("cost_center and cost_element are only accepted for ISSUE")
	}
	if typ != entity.MovementTypeReceive && req.UnitCost != nil {
		return nil, domain.Validationf("unit_cost is only accepted for RECEIVE")
	}
	unit := req.Unit
	if unit == "" {
		unit = inventory.BaseUnit
	}

	switch typ {
	case entity.MovementTypeReceive:
		return ReceiveCommand{ProductID: req.ProductID, Quantity: req.Quantity, Unit: unit, UnitCost: req.UnitCost, Note: req.Note}, nil
	case entity.MovementTypeIssue:
		return IssueCommand{
			ProductID:   req.ProductID,
			Quantity:    req.Quantity,
			Unit:        unit,
			CostCenter:  strings.TrimSpace(req.CostCenter),
			CostElement: strings.TrimSpace(req.CostElement),
			Note:        req.Note,
		}, nil
	case entity.MovementTypeConsume:
		var woID int64
		if req.WorkOrderID != nil {
			woID = *req.WorkOrderID
		}
		return ConsumeCommand{ProductID: req.ProductID, Quantity: req.Quantity, Unit: unit, WorkOrderID: woID, Note: req.Note}, nil
	default:
		if req.Unit != "" && !inventory.IsBaseUnit(req.Unit) {
			return nil, domain.Errorf(domain.ErrUnsupportedOperation, "ADJUST takes a signed quantity in %s", inventory.BaseUnit)
		}
		return AdjustCommand{ProductID: req.ProductID, Delta: req.Quantity, Note: req.Note}, nil
	}
}

// ExecuteFromRequest is ExecuteMovement for the flat request shape used at the HTTP boundary.
func (uc *ExecuteMovementUseCase) ExecuteFromRequest(ctx context.Context, actorID string, req dto.CreateMovementRequest) (*entity.StockMovement, error) {
	cmd, err := CommandFromRequest(req)
	if err != nil {
		return nil, err
	}
	return uc.ExecuteMovement(ctx, actorID, cmd)
}
