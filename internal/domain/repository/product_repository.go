package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
)

// ProductFilter narrows product listings. Zero values mean "any".
type ProductFilter struct {
	Type     entity.ProductType
	Category string
	Search   string
	Limit    int
	Offset   int
}

// ProductRepository is the persistence port for the product catalog.
// Lookups return (nil, nil) when the product does not exist.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	// GetForUpdate locks the product row (SELECT ... FOR UPDATE) until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	UpdateCost(ctx context.Context, productID int64, costPerBaseUnit decimal.Decimal) error
	List(ctx context.Context, filter ProductFilter) ([]*entity.Product, int, error)
}
