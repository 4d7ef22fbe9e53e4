package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
)

// StockCardUseCase renders a product's ledger as a printable stock card.
type StockCardUseCase struct {
	products  repository.ProductRepository
	balances  repository.StockBalanceRepository
	movements repository.StockMovementRepository
	renderer  StockCardRenderer
	maxRows   int
}

// NewStockCardUseCase builds the use case. maxRows bounds how many movements are printed.
func NewStockCardUseCase(
	products repository.ProductRepository,
	balances repository.StockBalanceRepository,
	movements repository.StockMovementRepository,
	renderer StockCardRenderer,
	maxRows int,
) *StockCardUseCase {
	if maxRows <= 0 {
		maxRows = 500
	}
	return &StockCardUseCase{products: products, balances: balances, movements: movements, renderer: renderer, maxRows: maxRows}
}

// ExportStockCard returns the rendered document and a file name for it.
func (uc *StockCardUseCase) ExportStockCard(ctx context.Context, productID int64) ([]byte, string, error) {
	product, err := uc.products.GetByID(ctx, productID)
	if err != nil {
		return nil, "", err
	}
	if product == nil {
		return nil, "", domain.Errorf(domain.ErrNotFound, "product %d", productID)
	}
	balance, err := uc.balances.GetByProduct(ctx, productID)
	if err != nil {
		return nil, "", err
	}
	if balance == nil {
		return nil, "", domain.Errorf(domain.ErrNotFound, "stock balance for product %d", productID)
	}
	newestFirst, err := uc.movements.ListByProduct(ctx, productID, uc.maxRows, 0)
	if err != nil {
		return nil, "", err
	}
	card := StockCard{Product: product, Balance: balance, GeneratedAt: time.Now().UTC()}
	for i := len(newestFirst) - 1; i >= 0; i-- {
		card.Movements = append(card.Movements, newestFirst[i])
	}

	doc, err := uc.renderer.RenderStockCard(ctx, card)
	if err != nil {
		return nil, "", fmt.Errorf("render stock card: %w", err)
	}
	return doc, fmt.Sprintf("stock-card-%s.pdf", product.SKU), nil
}
