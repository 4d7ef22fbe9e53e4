package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
)

func seedProduct(t *testing.T, s *Store, sku string) *entity.Product {
	t.Helper()
	p := &entity.Product{Name: sku, SKU: sku, Type: entity.ProductTypeProduct, BaseUnit: "PCS", Unit: "PCS"}
	err := s.Run(context.Background(), func(_ repository.StockMovementRepository, b repository.StockBalanceRepository, pr repository.ProductRepository) error {
		if err := pr.Create(context.Background(), p); err != nil {
			return err
		}
		return b.Create(context.Background(), &entity.StockBalance{ProductID: p.ID})
	})
	require.NoError(t, err)
	return p
}

func TestRunRollsBackOnError(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, "A-1")
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Run(ctx, func(m repository.StockMovementRepository, b repository.StockBalanceRepository, _ repository.ProductRepository) error {
		mov := &entity.StockMovement{ProductID: p.ID, Type: entity.MovementTypeReceive, Quantity: decimal.NewFromInt(5)}
		require.NoError(t, m.Create(ctx, mov))
		bal, _ := b.GetForUpdate(ctx, p.ID)
		bal.Apply(mov.ID, mov.Quantity, time.Now())
		require.NoError(t, b.Update(ctx, bal))
		return boom
	})
	require.ErrorIs(t, err, boom)

	bal, err := s.Balances().GetByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, bal.OnHand.IsZero())
	n, err := s.Movements().CountByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunRespectsCancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.Run(ctx, func(repository.StockMovementRepository, repository.StockBalanceRepository, repository.ProductRepository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestConstraintsMirrorSchema(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, "A-1")
	ctx := context.Background()

	err := s.Run(ctx, func(_ repository.StockMovementRepository, _ repository.StockBalanceRepository, pr repository.ProductRepository) error {
		return pr.Create(ctx, &entity.Product{SKU: "A-1"})
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	err = s.Run(ctx, func(_ repository.StockMovementRepository, b repository.StockBalanceRepository, _ repository.ProductRepository) error {
		return b.Update(ctx, &entity.StockBalance{ProductID: p.ID, OnHand: decimal.NewFromInt(-1)})
	})
	assert.ErrorIs(t, err, domain.ErrPersistence)

	err = s.Run(ctx, func(m repository.StockMovementRepository, _ repository.StockBalanceRepository, _ repository.ProductRepository) error {
		return m.Create(ctx, &entity.StockMovement{ProductID: p.ID, Quantity: decimal.Zero})
	})
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestListLowStockOrdersAscending(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for i, qty := range []int64{30, 4, 0, 10} {
		p := seedProduct(t, s, string(rune('A'+i)))
		err := s.Run(ctx, func(_ repository.StockMovementRepository, b repository.StockBalanceRepository, _ repository.ProductRepository) error {
			bal, _ := b.GetForUpdate(ctx, p.ID)
			bal.OnHand = decimal.NewFromInt(qty)
			return b.Update(ctx, bal)
		})
		require.NoError(t, err)
	}

	items, count, err := s.Balances().ListLowStock(ctx, decimal.NewFromInt(10), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, items, 2)
	assert.Equal(t, "C", items[0].SKU)
	assert.Equal(t, "B", items[1].SKU)
}

func addMovement(ctx context.Context, s *Store, productID int64) error {
	return s.Run(ctx, func(m repository.StockMovementRepository, _ repository.StockBalanceRepository, _ repository.ProductRepository) error {
		return m.Create(ctx, &entity.StockMovement{ProductID: productID, Type: entity.MovementTypeReceive, Quantity: decimal.NewFromInt(1)})
	})
}

func TestRunStopsWaitingWhenContextEnds(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, "A-1")

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background(), func(repository.StockMovementRepository, repository.StockBalanceRepository, repository.ProductRepository) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := addMovement(ctx, s, p.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, addMovement(context.Background(), s, p.ID))
}

func TestViewReadsOneState(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, "A-1")
	ctx := context.Background()
	require.NoError(t, addMovement(ctx, s, p.ID))

	committed := make(chan error, 1)
	err := s.View(ctx, func(m repository.StockMovementRepository, _ repository.StockBalanceRepository, _ repository.ProductRepository) error {
		before, err := m.CountByProduct(ctx, p.ID)
		require.NoError(t, err)

		go func() { committed <- addMovement(ctx, s, p.ID) }()
		select {
		case <-committed:
			t.Fatal("a commit landed inside the view")
		case <-time.After(30 * time.Millisecond):
		}

		after, err := m.CountByProduct(ctx, p.ID)
		require.NoError(t, err)
		list, err := m.ListByProduct(ctx, p.ID, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assert.Len(t, list, after)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, <-committed)
	n, err := s.Movements().CountByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
