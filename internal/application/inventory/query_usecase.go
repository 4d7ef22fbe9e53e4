package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/application/dto"
	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/inventory"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
)

// Paging limits for movement listings.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// QueryConfig low-stock settings. Threshold is inclusive: on_hand <= threshold is low.
type QueryConfig struct {
	LowStockThreshold decimal.Decimal
	LowStockTopN      int
}

// StockQueryUseCase serves read-only projections of balances and the ledger.
type StockQueryUseCase struct {
	snapshot  SnapshotReader
	products  repository.ProductRepository
	balances  repository.StockBalanceRepository
	movements repository.StockMovementRepository
	cfg       QueryConfig
}

// NewStockQueryUseCase builds the query side over pool-backed repositories. snapshot serves
// the reads that must agree with each other.
func NewStockQueryUseCase(
	snapshot SnapshotReader,
	products repository.ProductRepository,
	balances repository.StockBalanceRepository,
	movements repository.StockMovementRepository,
	cfg QueryConfig,
) *StockQueryUseCase {
	if cfg.LowStockTopN <= 0 {
		cfg.LowStockTopN = 5
	}
	return &StockQueryUseCase{snapshot: snapshot, products: products, balances: balances, movements: movements, cfg: cfg}
}

func (uc *StockQueryUseCase) requireProduct(ctx context.Context, productID int64) (*entity.Product, error) {
	p, err := uc.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "product %d", productID)
	}
	return p, nil
}

// GetBalance returns the on-hand quantity of a product with its low-stock flag.
func (uc *StockQueryUseCase) GetBalance(ctx context.Context, productID int64) (*dto.BalanceResponse, error) {
	p, err := uc.requireProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	b, err := uc.balances.GetByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "stock balance for product %d", productID)
	}
	return &dto.BalanceResponse{
		ProductID:         p.ID,
		SKU:               p.SKU,
		Name:              p.Name,
		BaseUnit:          p.BaseUnit,
		OnHand:            b.OnHand,
		CostPerBaseUnit:   p.CostPerBaseUnit,
		StockValue:        inventory.RoundAmount(b.OnHand.Mul(p.CostPerBaseUnit)),
		IsLowStock:        b.OnHand.LessThanOrEqual(uc.cfg.LowStockThreshold),
		LowStockThreshold: uc.cfg.LowStockThreshold,
		LastMovementID:    b.LastMovementID,
		LastUpdated:       b.LastUpdated,
	}, nil
}

// GetMovementHistory pages a product's ledger newest first together with the total count.
// The product check, the count and the page come from one snapshot.
func (uc *StockQueryUseCase) GetMovementHistory(ctx context.Context, productID int64, page dto.PageRequest) (*dto.MovementHistoryResponse, error) {
	page.Normalize(DefaultHistoryLimit, MaxHistoryLimit)

	var (
		total int
		items []*entity.StockMovement
	)
	err := uc.snapshot.View(ctx, func(movRepo repository.StockMovementRepository, _ repository.StockBalanceRepository, productRepo repository.ProductRepository) error {
		p, err := productRepo.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.Errorf(domain.ErrNotFound, "product %d", productID)
		}
		if total, err = movRepo.CountByProduct(ctx, productID); err != nil {
			return fmt.Errorf("count movements: %w", err)
		}
		if items, err = movRepo.ListByProduct(ctx, productID, page.Limit, page.Offset); err != nil {
			return fmt.Errorf("list movements: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &dto.MovementHistoryResponse{
		ProductID: productID,
		Items:     make([]dto.MovementResponse, 0, len(items)),
		Page:      dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for _, m := range items {
		out.Items = append(out.Items, dto.MovementFromEntity(m))
	}
	return out, nil
}

// GetLowStockSummary counts products at or under threshold and lists the topN lowest.
// A nil threshold or non-positive topN falls back to the configured values.
func (uc *StockQueryUseCase) GetLowStockSummary(ctx context.Context, threshold *decimal.Decimal, topN int) (*dto.LowStockSummaryResponse, error) {
	th := uc.cfg.LowStockThreshold
	if threshold != nil {
		if threshold.IsNegative() {
			return nil, domain.Validationf("threshold must not be negative")
		}
		th = *threshold
	}
	if topN <= 0 {
		topN = uc.cfg.LowStockTopN
	}
	items, count, err := uc.balances.ListLowStock(ctx, th, topN)
	if err != nil {
		return nil, err
	}
	out := &dto.LowStockSummaryResponse{Threshold: th, Count: count, Items: make([]dto.LowStockItemResponse, 0, len(items))}
	for _, it := range items {
		out.Items = append(out.Items, dto.LowStockItemResponse{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Unit:      it.Unit,
			OnHand:    it.OnHand,
		})
	}
	return out, nil
}

// ListRecentMovements returns the newest movements across products, each flagged with
// whether actorID could undo it now.
func (uc *StockQueryUseCase) ListRecentMovements(ctx context.Context, actorID string, limit int) (*dto.RecentMovementsResponse, error) {
	page := dto.PageRequest{Limit: limit}
	page.Normalize(DefaultHistoryLimit, MaxHistoryLimit)

	list, err := uc.movements.ListRecent(ctx, page.Limit)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(list))
	ids := make([]int64, 0, len(list))
	for _, m := range list {
		if _, ok := seen[m.ProductID]; !ok {
			seen[m.ProductID] = struct{}{}
			ids = append(ids, m.ProductID)
		}
	}
	latest := map[int64]int64{}
	if len(ids) > 0 {
		if latest, err = uc.movements.LatestIDsByProducts(ctx, ids); err != nil {
			return nil, err
		}
	}

	out := &dto.RecentMovementsResponse{Items: make([]dto.MovementResponse, 0, len(list))}
	for _, m := range list {
		r := dto.MovementFromEntity(m)
		canUndo := checkReversible(m, actorID, latest[m.ProductID]) == nil
		r.CanUndo = &canUndo
		out.Items = append(out.Items, r)
	}
	return out, nil
}
