// Package memory is an in-process implementation of the stock repositories and the
// transaction runner. A transaction works on a copy of the state and swaps it in on
// success, so a failed callback leaves nothing behind. Used by tests and by the
// API when APP_STORAGE=memory.
package memory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
)

type state struct {
	products      map[int64]entity.Product
	balances      map[int64]entity.StockBalance // keyed by product id
	movements     []entity.StockMovement        // id == index+1
	nextProductID int64
	nextBalanceID int64
}

func newState() *state {
	return &state{
		products: make(map[int64]entity.Product),
		balances: make(map[int64]entity.StockBalance),
	}
}

func (s *state) clone() *state {
	c := &state{
		products:      make(map[int64]entity.Product, len(s.products)),
		balances:      make(map[int64]entity.StockBalance, len(s.balances)),
		movements:     make([]entity.StockMovement, len(s.movements)),
		nextProductID: s.nextProductID,
		nextBalanceID: s.nextBalanceID,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	copy(c.movements, s.movements)
	return c
}

// accessor hands out the state to operate on and the func releasing it.
type accessor func(write bool) (*state, func())

// Store holds the ledger state plus the collaborator master data.
type Store struct {
	writers *semaphore.Weighted // one transaction at a time, queued callers honor ctx
	mu      sync.RWMutex
	st      *state

	refMu        sync.RWMutex
	workOrders   map[int64]entity.WorkOrder
	costCenters  map[string]bool
	costElements map[string]bool

	now func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		writers:      semaphore.NewWeighted(1),
		st:           newState(),
		workOrders:   make(map[int64]entity.WorkOrder),
		costCenters:  make(map[string]bool),
		costElements: make(map[string]bool),
		now:          time.Now,
	}
}

func (s *Store) shared(write bool) (*state, func()) {
	if write {
		s.mu.Lock()
		return s.st, s.mu.Unlock
	}
	s.mu.RLock()
	return s.st, s.mu.RUnlock
}

func txAccessor(st *state) accessor {
	return func(bool) (*state, func()) { return st, func() {} }
}

// Run executes fn against a private copy of the state and commits it when fn succeeds
// and ctx is still live. Transactions are fully serialized; a caller waiting for its
// turn gives up when ctx ends.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	balanceRepo repository.StockBalanceRepository,
	productRepo repository.ProductRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.writers.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.writers.Release(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	acc := txAccessor(work)
	if err := fn(
		&MovementRepo{acc: acc, now: s.now},
		&BalanceRepo{acc: acc},
		&ProductRepo{acc: acc},
	); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

// View runs fn against the committed state. Commits wait until fn returns, so every read
// inside fn sees the same state. fn must not write.
func (s *Store) View(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	balanceRepo repository.StockBalanceRepository,
	productRepo repository.ProductRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc := txAccessor(s.st)
	return fn(&MovementRepo{acc: acc, now: s.now}, &BalanceRepo{acc: acc}, &ProductRepo{acc: acc})
}

// Products returns a repository reading the committed state.
func (s *Store) Products() *ProductRepo { return &ProductRepo{acc: s.shared} }

// Balances returns a repository reading the committed state.
func (s *Store) Balances() *BalanceRepo { return &BalanceRepo{acc: s.shared} }

// Movements returns a repository reading the committed state.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{acc: s.shared, now: s.now} }

// AddWorkOrder registers or replaces a work order.
func (s *Store) AddWorkOrder(wo entity.WorkOrder) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	s.workOrders[wo.ID] = wo
}

// AddCostCenter registers a cost-center code.
func (s *Store) AddCostCenter(code string, active bool) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	s.costCenters[code] = active
}

// AddCostElement registers a cost-element code.
func (s *Store) AddCostElement(code string, active bool) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	s.costElements[code] = active
}

// GetWorkOrder implements repository.WorkOrderLookup.
func (s *Store) GetWorkOrder(_ context.Context, id int64) (*entity.WorkOrder, error) {
	s.refMu.RLock()
	defer s.refMu.RUnlock()
	wo, ok := s.workOrders[id]
	if !ok {
		return nil, nil
	}
	return &wo, nil
}

// ValidateCostCenter implements repository.CostAllocationValidator.
func (s *Store) ValidateCostCenter(_ context.Context, code string) (bool, error) {
	s.refMu.RLock()
	defer s.refMu.RUnlock()
	return s.costCenters[code], nil
}

// ValidateCostElement implements repository.CostAllocationValidator.
func (s *Store) ValidateCostElement(_ context.Context, code string) (bool, error) {
	s.refMu.RLock()
	defer s.refMu.RUnlock()
	return s.costElements[code], nil
}

// UpsertCostCenter implements repository.MasterDataWriter. Names are not kept.
func (s *Store) UpsertCostCenter(_ context.Context, code, _ string, active bool) error {
	s.AddCostCenter(code, active)
	return nil
}

// UpsertCostElement implements repository.MasterDataWriter.
func (s *Store) UpsertCostElement(_ context.Context, code, _ string, active bool) error {
	s.AddCostElement(code, active)
	return nil
}

// CreateWorkOrder implements repository.MasterDataWriter and assigns the next free id.
func (s *Store) CreateWorkOrder(_ context.Context, wo *entity.WorkOrder) error {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	var maxID int64
	for _, existing := range s.workOrders {
		if existing.Number == wo.Number {
			return domain.Errorf(domain.ErrDuplicate, "work order %s", wo.Number)
		}
		maxID = max(maxID, existing.ID)
	}
	wo.ID = maxID + 1
	s.workOrders[wo.ID] = *wo
	return nil
}

var (
	_ repository.WorkOrderLookup         = (*Store)(nil)
	_ repository.CostAllocationValidator = (*Store)(nil)
	_ repository.MasterDataWriter        = (*Store)(nil)
)
