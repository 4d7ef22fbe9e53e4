package repository

import (
	"context"

	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
)

// RoleResolver resolves the caller's role.
type RoleResolver interface {
	ResolveRole(ctx context.Context, actorID string) (entity.Role, error)
}

// WorkOrderLookup reads work orders owned by the production module.
// GetWorkOrder returns (nil, nil) when the work order does not exist.
type WorkOrderLookup interface {
	GetWorkOrder(ctx context.Context, id int64) (*entity.WorkOrder, error)
}

// CostAllocationValidator checks cost-center and cost-element master data.
type CostAllocationValidator interface {
	ValidateCostCenter(ctx context.Context, code string) (bool, error)
	ValidateCostElement(ctx context.Context, code string) (bool, error)
}

// MasterDataWriter loads cost centers, cost elements and work orders. Used by seeding only;
// the stock engine never writes master data.
type MasterDataWriter interface {
	UpsertCostCenter(ctx context.Context, code, name string, active bool) error
	UpsertCostElement(ctx context.Context, code, name string, active bool) error
	CreateWorkOrder(ctx context.Context, wo *entity.WorkOrder) error
}
