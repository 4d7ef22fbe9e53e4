package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
)

// TxRunner runs fn inside one database transaction with repositories bound to it.
// fn returning an error rolls everything back.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		balanceRepo repository.StockBalanceRepository,
		productRepo repository.ProductRepository,
	) error) error
}

// SnapshotReader runs read-only work against one consistent view of the ledger, so a
// count and a page read inside fn agree with each other.
type SnapshotReader interface {
	View(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		balanceRepo repository.StockBalanceRepository,
		productRepo repository.ProductRepository,
	) error) error
}

// Event types published after a movement commits.
const (
	EventMovementCommitted = "stock.movement.committed"
	EventMovementReversed  = "stock.movement.reversed"
)

// MovementEvent is the payload published for committed movements.
type MovementEvent struct {
	MovementID   int64           `json:"movement_id"`
	ProductID    int64           `json:"product_id"`
	Type         string          `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	ValueTotal   decimal.Decimal `json:"value_total"`
	ReversalOfID *int64          `json:"reversal_of_id,omitempty"`
	PerformedBy  string          `json:"performed_by"`
	PerformedAt  time.Time       `json:"performed_at"`
}

// EventPublisher delivers movement events. It is called after commit and its errors are only logged.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, event MovementEvent) error
}

func newMovementEvent(m *entity.StockMovement) MovementEvent {
	return MovementEvent{
		MovementID:   m.ID,
		ProductID:    m.ProductID,
		Type:         string(m.Type),
		Quantity:     m.Quantity,
		BalanceAfter: m.BalanceAfter,
		ValueTotal:   m.ValueTotal,
		ReversalOfID: m.ReversalOfID,
		PerformedBy:  m.PerformedBy,
		PerformedAt:  m.PerformedAt,
	}
}

// StockCard is the data rendered into a product's stock card document.
type StockCard struct {
	Product     *entity.Product
	Balance     *entity.StockBalance
	Movements   []*entity.StockMovement // oldest first
	GeneratedAt time.Time
}

// StockCardRenderer turns a stock card into a printable document.
type StockCardRenderer interface {
	RenderStockCard(ctx context.Context, card StockCard) ([]byte, error)
}
