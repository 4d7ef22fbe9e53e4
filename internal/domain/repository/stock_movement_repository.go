package repository

import (
	"context"
	"time"

	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
)

// StockMovementRepository is the persistence port for the movement ledger.
type StockMovementRepository interface {
	// Create inserts the movement and fills in ID and CreatedAt.
	Create(ctx context.Context, movement *entity.StockMovement) error
	GetByID(ctx context.Context, id int64) (*entity.StockMovement, error)
	GetForUpdate(ctx context.Context, id int64) (*entity.StockMovement, error)
	// LatestIDByProduct returns the highest movement id for the product, 0 when there is none.
	LatestIDByProduct(ctx context.Context, productID int64) (int64, error)
	// LatestIDsByProducts is LatestIDByProduct for many products at once.
	LatestIDsByProducts(ctx context.Context, productIDs []int64) (map[int64]int64, error)
	CountByProduct(ctx context.Context, productID int64) (int, error)
	// ListByProduct pages movements newest first (performed_at DESC, id DESC).
	ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]*entity.StockMovement, error)
	// ListRecent returns the newest movements across all products.
	ListRecent(ctx context.Context, limit int) ([]*entity.StockMovement, error)
	MarkReversed(ctx context.Context, id int64, at time.Time, by string) error
}
