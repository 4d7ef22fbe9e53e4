package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
)

var _ repository.StockBalanceRepository = (*StockBalanceRepo)(nil)

// StockBalanceRepo implements StockBalanceRepository on PostgreSQL (works with a pool or a tx).
type StockBalanceRepo struct {
	q Querier
}

// NewStockBalanceRepository builds the adapter. Pass a pool or a tx.
func NewStockBalanceRepository(q Querier) *StockBalanceRepo {
	return &StockBalanceRepo{q: q}
}

const balanceColumns = `id, product_id, zone_id, on_hand, last_movement_id, last_updated`

func scanBalance(row pgx.Row) (*entity.StockBalance, error) {
	var b entity.StockBalance
	if err := row.Scan(&b.ID, &b.ProductID, &b.ZoneID, &b.OnHand, &b.LastMovementID, &b.LastUpdated); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts the balance row of a product.
func (r *StockBalanceRepo) Create(ctx context.Context, b *entity.StockBalance) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO stock_balances (product_id, zone_id, on_hand, last_movement_id, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		b.ProductID, b.ZoneID, b.OnHand, b.LastMovementID, b.LastUpdated,
	).Scan(&b.ID)
	if err != nil {
		return translateError("insert stock balance", err)
	}
	return nil
}

// GetByProduct returns nil, nil when the product has no balance row.
func (r *StockBalanceRepo) GetByProduct(ctx context.Context, productID int64) (*entity.StockBalance, error) {
	return r.getOne(ctx, "get stock balance", `SELECT `+balanceColumns+` FROM stock_balances WHERE product_id = $1`, productID)
}

// GetForUpdate reads the balance and locks its row (SELECT ... FOR UPDATE).
func (r *StockBalanceRepo) GetForUpdate(ctx context.Context, productID int64) (*entity.StockBalance, error) {
	return r.getOne(ctx, "lock stock balance", `SELECT `+balanceColumns+` FROM stock_balances WHERE product_id = $1 FOR UPDATE`, productID)
}

func (r *StockBalanceRepo) getOne(ctx context.Context, op, query string, productID int64) (*entity.StockBalance, error) {
	b, err := scanBalance(r.q.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translateError(op, err)
	}
	return b, nil
}

// Update writes on_hand and the last movement pointer. The on_hand >= 0 CHECK rejects negatives.
func (r *StockBalanceRepo) Update(ctx context.Context, b *entity.StockBalance) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE stock_balances
		SET on_hand = $2, last_movement_id = $3, last_updated = $4
		WHERE product_id = $1`,
		b.ProductID, b.OnHand, b.LastMovementID, b.LastUpdated,
	)
	if err != nil {
		return translateError("update stock balance", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "stock balance for product %d", b.ProductID)
	}
	return nil
}

// ListLowStock returns up to limit products with on_hand <= threshold, lowest first,
// plus how many products are at or under the threshold in total.
func (r *StockBalanceRepo) ListLowStock(ctx context.Context, threshold decimal.Decimal, limit int) ([]*entity.LowStockItem, int, error) {
	var total int
	if err := r.q.QueryRow(ctx,
		`SELECT count(*) FROM stock_balances WHERE on_hand <= $1`, threshold,
	).Scan(&total); err != nil {
		return nil, 0, translateError("count low stock", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT b.product_id, p.sku, p.name, p.base_unit, b.on_hand
		FROM stock_balances b
		JOIN products p ON p.id = b.product_id
		WHERE b.on_hand <= $1
		ORDER BY b.on_hand ASC, b.product_id ASC
		LIMIT $2`, threshold, limit)
	if err != nil {
		return nil, 0, translateError("list low stock", err)
	}
	defer rows.Close()
	var list []*entity.LowStockItem
	for rows.Next() {
		var it entity.LowStockItem
		if err := rows.Scan(&it.ProductID, &it.SKU, &it.Name, &it.Unit, &it.OnHand); err != nil {
			return nil, 0, fmt.Errorf("scan low stock: %w", err)
		}
		list = append(list, &it)
	}
	return list, total, rows.Err()
}
