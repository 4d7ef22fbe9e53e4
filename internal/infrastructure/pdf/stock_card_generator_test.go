package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafetyDady/smart-erp-backend/internal/application/inventory"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
)

func TestRenderStockCard(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cc, ce := "CC-100", "CE-200"
	issueID := int64(2)
	card := inventory.StockCard{
		Product: &entity.Product{ID: 1, Name: "Hex bolt M8", SKU: "BOLT-M8", Type: entity.ProductTypeMaterial,
			BaseUnit: "PCS", CostPerBaseUnit: decimal.NewFromInt(6)},
		Balance: &entity.StockBalance{ProductID: 1, OnHand: decimal.NewFromInt(24)},
		Movements: []*entity.StockMovement{
			{ID: 1, Type: entity.MovementTypeReceive, QtyInput: decimal.NewFromInt(2), UnitInput: "DOZEN",
				MultiplierToBase: decimal.NewFromInt(12), Quantity: decimal.NewFromInt(24), BalanceAfter: decimal.NewFromInt(24),
				UnitCostBase: decimal.NewFromInt(6), ValueTotal: decimal.NewFromInt(144), PerformedAt: now},
			{ID: 2, Type: entity.MovementTypeIssue, Quantity: decimal.NewFromInt(-10), BalanceAfter: decimal.NewFromInt(14),
				CostCenter: &cc, CostElement: &ce, UnitCostBase: decimal.NewFromInt(6), ValueTotal: decimal.NewFromInt(60),
				PerformedAt: now.Add(time.Hour), ReversedAt: &now},
			{ID: 3, Type: entity.MovementTypeReceive, Quantity: decimal.NewFromInt(10), BalanceAfter: decimal.NewFromInt(24),
				ReversalOfID: &issueID, UnitCostBase: decimal.NewFromInt(6), ValueTotal: decimal.NewFromInt(60),
				PerformedAt: now.Add(2 * time.Hour)},
		},
		GeneratedAt: now,
	}

	doc, err := NewStockCardGenerator("Smart ERP").RenderStockCard(context.Background(), card)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestRenderStockCardNeedsProduct(t *testing.T) {
	_, err := NewStockCardGenerator("x").RenderStockCard(context.Background(), inventory.StockCard{})
	assert.Error(t, err)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1,234,567.50", formatNumber(decimal.RequireFromString("1234567.5"), 2))
	assert.Equal(t, "-1,000.00", formatNumber(decimal.NewFromInt(-1000), 2))
	assert.Equal(t, "999.1235", formatNumber(decimal.RequireFromString("999.12345"), 4))
	assert.Equal(t, "24", formatNumber(decimal.NewFromInt(24), 0))
}

func TestReference(t *testing.T) {
	wo, orig := int64(5), int64(9)
	assert.Equal(t, "reversal of #9 / WO 5", reference(&entity.StockMovement{ReversalOfID: &orig, WorkOrderID: &wo}))
	assert.Equal(t, "2 DOZEN", reference(&entity.StockMovement{QtyInput: decimal.NewFromInt(2), UnitInput: "DOZEN", MultiplierToBase: decimal.NewFromInt(12)}))
}
