package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
)

// CreateProductRequest body of POST /api/products.
type CreateProductRequest struct {
	Name     string           `json:"name" validate:"required,max=200"`
	SKU      string           `json:"sku" validate:"required,max=64"`
	Type     string           `json:"product_type" validate:"required,oneof=PRODUCT MATERIAL CONSUMABLE"`
	Category string           `json:"category" validate:"omitempty,max=100"`
	Unit     string           `json:"unit" validate:"omitempty,max=16"`
	Cost     decimal.Decimal  `json:"cost" swaggertype:"string"`
	Price    *decimal.Decimal `json:"price,omitempty" swaggertype:"string"`
}

// UpdateProductRequest body of PUT /api/products/:id. Nil fields are left untouched.
type UpdateProductRequest struct {
	Name     *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	SKU      *string          `json:"sku,omitempty" validate:"omitempty,min=1,max=64"`
	Category *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Unit     *string          `json:"unit,omitempty" validate:"omitempty,min=1,max=16"`
	Cost     *decimal.Decimal `json:"cost,omitempty" swaggertype:"string"`
	Price    *decimal.Decimal `json:"price,omitempty" swaggertype:"string"`
}

// ProductResponse product as returned by the API.
type ProductResponse struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	SKU             string           `json:"sku"`
	Type            string           `json:"product_type"`
	Category        string           `json:"category"`
	Unit            string           `json:"unit"`
	BaseUnit        string           `json:"base_unit"`
	Cost            decimal.Decimal  `json:"cost" swaggertype:"string"`
	CostPerBaseUnit decimal.Decimal  `json:"cost_per_base_unit" swaggertype:"string"`
	Price           *decimal.Decimal `json:"price,omitempty" swaggertype:"string"`
	CreatedBy       string           `json:"created_by"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ProductListResponse page of products.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// ProductFromEntity maps a catalog entity to its response.
func ProductFromEntity(p *entity.Product) ProductResponse {
	out := ProductResponse{
		ID:              p.ID,
		Name:            p.Name,
		SKU:             p.SKU,
		Type:            string(p.Type),
		Category:        p.Category,
		Unit:            p.Unit,
		BaseUnit:        p.BaseUnit,
		Cost:            p.Cost,
		CostPerBaseUnit: p.CostPerBaseUnit,
		CreatedBy:       p.CreatedBy,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.Price.Valid {
		price := p.Price.Decimal
		out.Price = &price
	}
	return out
}
