package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo implements the append-only ledger on PostgreSQL (works with a pool or a tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository builds the adapter. Pass a pool or a tx.
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, product_id, movement_type, work_order_id, cost_center, cost_element, ref_type,
	qty_input, unit_input, multiplier_to_base, qty_base, unit_cost_input, unit_cost_base, value_total,
	quantity, balance_after, performed_by, performed_at, created_at, note, reversal_of_id, reversed_at, reversed_by`

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var typ string
	err := row.Scan(
		&m.ID, &m.ProductID, &typ, &m.WorkOrderID, &m.CostCenter, &m.CostElement, &m.RefType,
		&m.QtyInput, &m.UnitInput, &m.MultiplierToBase, &m.QtyBase, &m.UnitCostInput, &m.UnitCostBase, &m.ValueTotal,
		&m.Quantity, &m.BalanceAfter, &m.PerformedBy, &m.PerformedAt, &m.CreatedAt, &m.Note,
		&m.ReversalOfID, &m.ReversedAt, &m.ReversedBy,
	)
	if err != nil {
		return nil, err
	}
	m.Type = entity.MovementType(typ)
	return &m, nil
}

func collectMovements(rows pgx.Rows) ([]*entity.StockMovement, error) {
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Create appends the movement and fills ID and CreatedAt from the database.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO stock_movements (
			product_id, movement_type, work_order_id, cost_center, cost_element, ref_type,
			qty_input, unit_input, multiplier_to_base, qty_base, unit_cost_input, unit_cost_base, value_total,
			quantity, balance_after, performed_by, performed_at, note, reversal_of_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at`,
		m.ProductID, string(m.Type), m.WorkOrderID, m.CostCenter, m.CostElement, m.RefType,
		m.QtyInput, m.UnitInput, m.MultiplierToBase, m.QtyBase, m.UnitCostInput, m.UnitCostBase, m.ValueTotal,
		m.Quantity, m.BalanceAfter, m.PerformedBy, m.PerformedAt, m.Note, m.ReversalOfID,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return translateError("insert stock movement", err)
	}
	return nil
}

// GetByID returns nil, nil when the movement does not exist.
func (r *StockMovementRepo) GetByID(ctx context.Context, id int64) (*entity.StockMovement, error) {
	return r.getOne(ctx, "get stock movement", `SELECT `+movementColumns+` FROM stock_movements WHERE id = $1`, id)
}

// GetForUpdate reads the movement and locks its row.
func (r *StockMovementRepo) GetForUpdate(ctx context.Context, id int64) (*entity.StockMovement, error) {
	return r.getOne(ctx, "lock stock movement", `SELECT `+movementColumns+` FROM stock_movements WHERE id = $1 FOR UPDATE`, id)
}

func (r *StockMovementRepo) getOne(ctx context.Context, op, query string, id int64) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translateError(op, err)
	}
	return m, nil
}

// LatestIDByProduct returns the highest movement id of the product, 0 when it has none.
func (r *StockMovementRepo) LatestIDByProduct(ctx context.Context, productID int64) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM stock_movements WHERE product_id = $1`, productID,
	).Scan(&id)
	if err != nil {
		return 0, translateError("latest stock movement", err)
	}
	return id, nil
}

// LatestIDsByProducts maps each product with movements to its highest movement id.
func (r *StockMovementRepo) LatestIDsByProducts(ctx context.Context, productIDs []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT product_id, MAX(id)
		FROM stock_movements
		WHERE product_id = ANY($1)
		GROUP BY product_id`, productIDs)
	if err != nil {
		return nil, translateError("latest stock movements", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pid, id int64
		if err := rows.Scan(&pid, &id); err != nil {
			return nil, fmt.Errorf("scan latest movement: %w", err)
		}
		out[pid] = id
	}
	return out, rows.Err()
}

// CountByProduct returns the number of ledger rows of the product.
func (r *StockMovementRepo) CountByProduct(ctx context.Context, productID int64) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx,
		`SELECT count(*) FROM stock_movements WHERE product_id = $1`, productID,
	).Scan(&n); err != nil {
		return 0, translateError("count stock movements", err)
	}
	return n, nil
}

// ListByProduct pages the product's ledger newest first.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+movementColumns+`
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY performed_at DESC, id DESC
		LIMIT $2 OFFSET $3`, productID, limit, offset)
	if err != nil {
		return nil, translateError("list stock movements", err)
	}
	return collectMovements(rows)
}

// ListRecent returns the newest movements across all products.
func (r *StockMovementRepo) ListRecent(ctx context.Context, limit int) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+movementColumns+`
		FROM stock_movements
		ORDER BY performed_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, translateError("list recent stock movements", err)
	}
	return collectMovements(rows)
}

// MarkReversed sets the reversal marker once. A second call fails with ErrAlreadyReversed.
func (r *StockMovementRepo) MarkReversed(ctx context.Context, id int64, at time.Time, by string) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE stock_movements SET reversed_at = $2, reversed_by = $3
		WHERE id = $1 AND reversed_at IS NULL`, id, at, by)
	if err != nil {
		return translateError("mark stock movement reversed", err)
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m == nil {
		return domain.Errorf(domain.ErrNotFound, "movement %d", id)
	}
	return domain.Errorf(domain.ErrAlreadyReversed, "movement %d", id)
}
