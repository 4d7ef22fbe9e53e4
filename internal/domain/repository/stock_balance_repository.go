package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
)

// StockBalanceRepository persists the one balance row each product owns.
type StockBalanceRepository interface {
	Create(ctx context.Context, balance *entity.StockBalance) error
	GetByProduct(ctx context.Context, productID int64) (*entity.StockBalance, error)
	// GetForUpdate locks the balance row (SELECT ... FOR UPDATE).
	GetForUpdate(ctx context.Context, productID int64) (*entity.StockBalance, error)
	Update(ctx context.Context, balance *entity.StockBalance) error
	// ListLowStock returns balances with on_hand <= threshold, lowest first, and the full count.
	ListLowStock(ctx context.Context, threshold decimal.Decimal, limit int) ([]*entity.LowStockItem, int, error)
}
