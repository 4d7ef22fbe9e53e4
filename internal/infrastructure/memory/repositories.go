package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
)

var (
	_ repository.ProductRepository       = (*ProductRepo)(nil)
	_ repository.StockBalanceRepository  = (*BalanceRepo)(nil)
	_ repository.StockMovementRepository = (*MovementRepo)(nil)
)

// ProductRepo in-memory product catalog.
type ProductRepo struct {
	acc accessor
}

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	st, release := r.acc(true)
	defer release()
	for _, other := range st.products {
		if other.SKU == p.SKU {
			return domain.Errorf(domain.ErrDuplicate, "sku %s", p.SKU)
		}
	}
	st.nextProductID++
	p.ID = st.nextProductID
	st.products[p.ID] = *p
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, id int64) (*entity.Product, error) {
	st, release := r.acc(false)
	defer release()
	p, ok := st.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *ProductRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *ProductRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	st, release := r.acc(false)
	defer release()
	sku = entity.NormalizeSKU(sku)
	for _, p := range st.products {
		if p.SKU == sku {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *ProductRepo) Update(_ context.Context, p *entity.Product) error {
	st, release := r.acc(true)
	defer release()
	if _, ok := st.products[p.ID]; !ok {
		return domain.Errorf(domain.ErrNotFound, "product %d", p.ID)
	}
	for id, other := range st.products {
		if id != p.ID && other.SKU == p.SKU {
			return domain.Errorf(domain.ErrDuplicate, "sku %s", p.SKU)
		}
	}
	st.products[p.ID] = *p
	return nil
}

func (r *ProductRepo) UpdateCost(_ context.Context, productID int64, cost decimal.Decimal) error {
	st, release := r.acc(true)
	defer release()
	p, ok := st.products[productID]
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "product %d", productID)
	}
	p.CostPerBaseUnit = cost
	p.UpdatedAt = time.Now().UTC()
	st.products[productID] = p
	return nil
}

func (r *ProductRepo) List(_ context.Context, f repository.ProductFilter) ([]*entity.Product, int, error) {
	st, release := r.acc(false)
	defer release()
	search := strings.ToLower(f.Search)
	var all []*entity.Product
	for _, p := range st.products {
		if f.Type != "" && p.Type != f.Type {
			continue
		}
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		p := p
		all = append(all, &p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return page(all, f.Limit, f.Offset), len(all), nil
}

// BalanceRepo in-memory balance rows.
type BalanceRepo struct {
	acc accessor
}

func (r *BalanceRepo) Create(_ context.Context, b *entity.StockBalance) error {
	st, release := r.acc(true)
	defer release()
	if _, ok := st.products[b.ProductID]; !ok {
		return domain.Errorf(domain.ErrPersistence, "balance references unknown product %d", b.ProductID)
	}
	if _, ok := st.balances[b.ProductID]; ok {
		return domain.Errorf(domain.ErrPersistence, "balance for product %d already exists", b.ProductID)
	}
	st.nextBalanceID++
	b.ID = st.nextBalanceID
	st.balances[b.ProductID] = *b
	return nil
}

func (r *BalanceRepo) GetByProduct(_ context.Context, productID int64) (*entity.StockBalance, error) {
	st, release := r.acc(false)
	defer release()
	b, ok := st.balances[productID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *BalanceRepo) GetForUpdate(ctx context.Context, productID int64) (*entity.StockBalance, error) {
	return r.GetByProduct(ctx, productID)
}

func (r *BalanceRepo) Update(_ context.Context, b *entity.StockBalance) error {
	st, release := r.acc(true)
	defer release()
	if _, ok := st.balances[b.ProductID]; !ok {
		return domain.Errorf(domain.ErrNotFound, "stock balance for product %d", b.ProductID)
	}
	if b.OnHand.IsNegative() {
		return domain.Errorf(domain.ErrPersistence, "on_hand of product %d would be negative", b.ProductID)
	}
	st.balances[b.ProductID] = *b
	return nil
}

func (r *BalanceRepo) ListLowStock(_ context.Context, threshold decimal.Decimal, limit int) ([]*entity.LowStockItem, int, error) {
	st, release := r.acc(false)
	defer release()
	var all []*entity.LowStockItem
	for pid, b := range st.balances {
		if b.OnHand.GreaterThan(threshold) {
			continue
		}
		p := st.products[pid]
		all = append(all, &entity.LowStockItem{ProductID: pid, SKU: p.SKU, Name: p.Name, Unit: p.BaseUnit, OnHand: b.OnHand})
	}
	sort.Slice(all, func(i, j int) bool {
		if c := all[i].OnHand.Cmp(all[j].OnHand); c != 0 {
			return c < 0
		}
		return all[i].ProductID < all[j].ProductID
	})
	return page(all, limit, 0), len(all), nil
}

// MovementRepo in-memory ledger.
type MovementRepo struct {
	acc accessor
	now func() time.Time
}

func (r *MovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	st, release := r.acc(true)
	defer release()
	if m.Quantity.IsZero() {
		return domain.Errorf(domain.ErrPersistence, "movement quantity must not be zero")
	}
	if _, ok := st.products[m.ProductID]; !ok {
		return domain.Errorf(domain.ErrPersistence, "movement references unknown product %d", m.ProductID)
	}
	if m.ReversalOfID != nil {
		for _, other := range st.movements {
			if other.ReversalOfID != nil && *other.ReversalOfID == *m.ReversalOfID {
				return domain.Errorf(domain.ErrPersistence, "movement %d is already reversed", *m.ReversalOfID)
			}
		}
	}
	m.ID = int64(len(st.movements) + 1)
	m.CreatedAt = r.now().UTC()
	st.movements = append(st.movements, *m)
	return nil
}

func (r *MovementRepo) GetByID(_ context.Context, id int64) (*entity.StockMovement, error) {
	st, release := r.acc(false)
	defer release()
	if id <= 0 || id > int64(len(st.movements)) {
		return nil, nil
	}
	m := st.movements[id-1]
	return &m, nil
}

func (r *MovementRepo) GetForUpdate(ctx context.Context, id int64) (*entity.StockMovement, error) {
	return r.GetByID(ctx, id)
}

func (r *MovementRepo) LatestIDByProduct(_ context.Context, productID int64) (int64, error) {
	st, release := r.acc(false)
	defer release()
	for i := len(st.movements) - 1; i >= 0; i-- {
		if st.movements[i].ProductID == productID {
			return st.movements[i].ID, nil
		}
	}
	return 0, nil
}

func (r *MovementRepo) LatestIDsByProducts(_ context.Context, productIDs []int64) (map[int64]int64, error) {
	st, release := r.acc(false)
	defer release()
	want := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	out := make(map[int64]int64, len(productIDs))
	for _, m := range st.movements {
		if want[m.ProductID] {
			out[m.ProductID] = m.ID
		}
	}
	return out, nil
}

func (r *MovementRepo) CountByProduct(_ context.Context, productID int64) (int, error) {
	st, release := r.acc(false)
	defer release()
	n := 0
	for _, m := range st.movements {
		if m.ProductID == productID {
			n++
		}
	}
	return n, nil
}

func (r *MovementRepo) ListByProduct(_ context.Context, productID int64, limit, offset int) ([]*entity.StockMovement, error) {
	st, release := r.acc(false)
	defer release()
	var all []*entity.StockMovement
	for _, m := range st.movements {
		if m.ProductID == productID {
			m := m
			all = append(all, &m)
		}
	}
	sortNewestFirst(all)
	return page(all, limit, offset), nil
}

func (r *MovementRepo) ListRecent(_ context.Context, limit int) ([]*entity.StockMovement, error) {
	st, release := r.acc(false)
	defer release()
	all := make([]*entity.StockMovement, 0, len(st.movements))
	for _, m := range st.movements {
		m := m
		all = append(all, &m)
	}
	sortNewestFirst(all)
	return page(all, limit, 0), nil
}

func (r *MovementRepo) MarkReversed(_ context.Context, id int64, at time.Time, by string) error {
	st, release := r.acc(true)
	defer release()
	if id <= 0 || id > int64(len(st.movements)) {
		return domain.Errorf(domain.ErrNotFound, "movement %d", id)
	}
	m := &st.movements[id-1]
	if m.ReversedAt != nil {
		return domain.Errorf(domain.ErrAlreadyReversed, "movement %d", id)
	}
	m.ReversedAt = &at
	m.ReversedBy = &by
	return nil
}

func sortNewestFirst(list []*entity.StockMovement) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].PerformedAt.Equal(list[j].PerformedAt) {
			return list[i].PerformedAt.After(list[j].PerformedAt)
		}
		return list[i].ID > list[j].ID
	})
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
