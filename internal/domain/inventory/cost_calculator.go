package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
)

// Scale is the number of decimal places stored for quantities, costs and values
// (NUMERIC(20, 6) in the database).
const Scale = 6

// RoundAmount rounds half away from zero to Scale places.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// CheckScale rejects values carrying more than Scale decimal places.
func CheckScale(field string, d decimal.Decimal) error {
	if !d.Equal(d.Truncate(Scale)) {
		return domain.Validationf("%s allows at most %d decimal places, got %s", field, Scale, d.String())
	}
	return nil
}

// WeightedAverageCost blends the current average with an incoming receipt:
//
//	new = (onHand*avg + qtyIn*costIn) / (onHand + qtyIn)
//
// With nothing on hand the incoming cost becomes the average.
func WeightedAverageCost(onHand, avg, qtyIn, costIn decimal.Decimal) decimal.Decimal {
	return AverageAfterReceipt(onHand, avg, qtyIn, qtyIn.Mul(costIn))
}

// AverageAfterReceipt is WeightedAverageCost taking the receipt's total value, so a cost
// entered per DOZEN does not go through a rounded per-piece cost first. The result is
// rounded to Scale.
func AverageAfterReceipt(onHand, avg, qtyIn, valueIn decimal.Decimal) decimal.Decimal {
	if !onHand.IsPositive() {
		if !qtyIn.IsPositive() {
			return avg
		}
		return valueIn.DivRound(qtyIn, Scale)
	}
	total := onHand.Add(qtyIn)
	if !total.IsPositive() {
		return avg
	}
	return onHand.Mul(avg).Add(valueIn).DivRound(total, Scale)
}
