package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
)

var (
	_ repository.WorkOrderLookup         = (*MasterDataRepo)(nil)
	_ repository.CostAllocationValidator = (*MasterDataRepo)(nil)
	_ repository.MasterDataWriter        = (*MasterDataRepo)(nil)
)

// MasterDataRepo reads work orders and cost allocation codes owned by other modules.
type MasterDataRepo struct {
	q Querier
}

// NewMasterDataRepository builds the adapter. Pass a pool or a tx.
func NewMasterDataRepository(q Querier) *MasterDataRepo {
	return &MasterDataRepo{q: q}
}

// GetWorkOrder returns nil, nil when the work order does not exist.
func (r *MasterDataRepo) GetWorkOrder(ctx context.Context, id int64) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.q.QueryRow(ctx, `
		SELECT id, wo_number, title, status, cost_center, cost_element
		FROM work_orders WHERE id = $1`, id,
	).Scan(&wo.ID, &wo.Number, &wo.Title, &wo.Status, &wo.CostCenter, &wo.CostElement)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translateError("get work order", err)
	}
	return &wo, nil
}

// ValidateCostCenter reports whether code is a known, active cost center.
func (r *MasterDataRepo) ValidateCostCenter(ctx context.Context, code string) (bool, error) {
	return r.active(ctx, "check cost center", `SELECT EXISTS (SELECT 1 FROM cost_centers WHERE code = $1 AND is_active)`, code)
}

// ValidateCostElement reports whether code is a known, active cost element.
func (r *MasterDataRepo) ValidateCostElement(ctx context.Context, code string) (bool, error) {
	return r.active(ctx, "check cost element", `SELECT EXISTS (SELECT 1 FROM cost_elements WHERE code = $1 AND is_active)`, code)
}

func (r *MasterDataRepo) active(ctx context.Context, op, query, code string) (bool, error) {
	var ok bool
	if err := r.q.QueryRow(ctx, query, code).Scan(&ok); err != nil {
		return false, translateError(op, err)
	}
	return ok, nil
}

// UpsertCostCenter creates or updates a cost center. Used by seeding and tests.
func (r *MasterDataRepo) UpsertCostCenter(ctx context.Context, code, name string, active bool) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO cost_centers (code, name, is_active) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, is_active = EXCLUDED.is_active`,
		code, name, active)
	return translateError("upsert cost center", err)
}

// UpsertCostElement creates or updates a cost element. Used by seeding and tests.
func (r *MasterDataRepo) UpsertCostElement(ctx context.Context, code, name string, active bool) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO cost_elements (code, name, is_active) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, is_active = EXCLUDED.is_active`,
		code, name, active)
	return translateError("upsert cost element", err)
}

// CreateWorkOrder inserts a work order and sets its ID.
func (r *MasterDataRepo) CreateWorkOrder(ctx context.Context, wo *entity.WorkOrder) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO work_orders (wo_number, title, status, cost_center, cost_element)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		wo.Number, wo.Title, wo.Status, wo.CostCenter, wo.CostElement,
	).Scan(&wo.ID)
	return translateError("insert work order", err)
}
