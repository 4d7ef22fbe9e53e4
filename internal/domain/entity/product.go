package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ProductType classifies a stock-keeping item.
type ProductType string

const (
	ProductTypeProduct    ProductType = "PRODUCT"
	ProductTypeMaterial   ProductType = "MATERIAL"
	ProductTypeConsumable ProductType = "CONSUMABLE"
)

// Valid reports whether t is one of the known product types.
func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeProduct, ProductTypeMaterial, ProductTypeConsumable:
		return true
	}
	return false
}

// MinMaterialCost is the lowest display cost accepted for MATERIAL products.
var MinMaterialCost = decimal.NewFromInt(1)

// Product is the catalog record of a stock-keeping item.
// CostPerBaseUnit is the running weighted average and is only changed by RECEIVE movements.
type Product struct {
	ID              int64
	Name            string
	SKU             string // stored normalized, see NormalizeSKU
	Type            ProductType
	Category        string
	Unit            string // display unit
	BaseUnit        string
	Cost            decimal.Decimal // display cost
	CostPerBaseUnit decimal.Decimal
	Price           decimal.NullDecimal
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NormalizeSKU trims and upper-cases a SKU so uniqueness is case-insensitive.
func NormalizeSKU(sku string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(sku))
}

// CostPolicyOK reports whether the display cost satisfies the MATERIAL minimum.
func (p *Product) CostPolicyOK() bool {
	if p.Type != ProductTypeMaterial {
		return true
	}
	return p.Cost.GreaterThanOrEqual(MinMaterialCost)
}
