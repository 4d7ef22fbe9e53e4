package inventory

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
)

// Supported unit symbols. PCS is the base unit of every product.
const (
	UnitPCS   = "PCS"
	UnitDOZEN = "DOZEN"

	BaseUnit = UnitPCS
)

var multipliers = map[string]decimal.Decimal{
	UnitPCS:   decimal.NewFromInt(1),
	UnitDOZEN: decimal.NewFromInt(12),
}

// NormalizeUnit returns the canonical spelling of a unit symbol.
func NormalizeUnit(unit string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(unit))
}

// Multiplier returns how many base units one unit of the given symbol holds.
func Multiplier(unit string) (decimal.Decimal, error) {
	m, ok := multipliers[NormalizeUnit(unit)]
	if !ok {
		return decimal.Zero, domain.Errorf(domain.ErrUnsupportedUnit, "%q", unit)
	}
	return m, nil
}

// IsBaseUnit reports whether unit is the base unit.
func IsBaseUnit(unit string) bool {
	return NormalizeUnit(unit) == BaseUnit
}

// ToBase converts an input quantity to base units and returns the multiplier used.
func ToBase(qty decimal.Decimal, unit string) (qtyBase, multiplier decimal.Decimal, err error) {
	multiplier, err = Multiplier(unit)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return qty.Mul(multiplier), multiplier, nil
}

// CostToBase converts a cost per input unit to a cost per base unit, rounded to Scale.
func CostToBase(cost decimal.Decimal, unit string) (decimal.Decimal, error) {
	m, err := Multiplier(unit)
	if err != nil {
		return decimal.Zero, err
	}
	return cost.DivRound(m, Scale), nil
}
