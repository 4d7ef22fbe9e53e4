package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/inventory"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
	"github.com/SafetyDady/smart-erp-backend/pkg/logger"
)

// ReverseMovementUseCase offsets the latest movement of a product with a compensating
// movement. The original row keeps its quantity, cost and balance_after; only its
// reversal stamp is filled in.
type ReverseMovementUseCase struct {
	txRunner  TxRunner
	movements repository.StockMovementRepository
	publisher EventPublisher
	timeout   time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// NewReverseMovementUseCase builds the use case. movements is used for reads outside a transaction.
func NewReverseMovementUseCase(
	txRunner TxRunner,
	movements repository.StockMovementRepository,
	publisher EventPublisher,
	timeout time.Duration,
	log *logger.Logger,
) *ReverseMovementUseCase {
	return &ReverseMovementUseCase{
		txRunner:  txRunner,
		movements: movements,
		publisher: publisher,
		timeout:   timeout,
		log:       log,
		now:       time.Now,
	}
}

// checkReversible applies the undo rules to a movement given the latest movement id of its product.
func checkReversible(mov *entity.StockMovement, actorID string, latestID int64) error {
	if mov.IsReversed() {
		return domain.Errorf(domain.ErrAlreadyReversed, "movement %d", mov.ID)
	}
	if mov.IsReversal() {
		return domain.Validationf("movement %d is a reversal and cannot be reversed", mov.ID)
	}
	if mov.PerformedBy != actorID {
		return domain.Errorf(domain.ErrForbidden, "only the actor who posted movement %d can reverse it", mov.ID)
	}
	if mov.ID != latestID {
		return domain.Errorf(domain.ErrNotLatestMovement, "movement %d, latest is %d", mov.ID, latestID)
	}
	if _, ok := mov.Type.ReverseType(); !ok {
		return domain.Errorf(domain.ErrUnsupportedOperation, "%s movements cannot be reversed", mov.Type)
	}
	return nil
}

// CanUndo reports whether actorID may reverse the movement right now.
func (uc *ReverseMovementUseCase) CanUndo(ctx context.Context, movementID int64, actorID string) (bool, error) {
	mov, err := uc.movements.GetByID(ctx, movementID)
	if err != nil {
		return false, err
	}
	if mov == nil {
		return false, domain.Errorf(domain.ErrNotFound, "movement %d", movementID)
	}
	latest, err := uc.movements.LatestIDByProduct(ctx, mov.ProductID)
	if err != nil {
		return false, err
	}
	return checkReversible(mov, actorID, latest) == nil, nil
}

// ReverseMovement commits the compensating movement for movementID and returns it.
func (uc *ReverseMovementUseCase) ReverseMovement(ctx context.Context, movementID int64, actorID string) (*entity.StockMovement, error) {
	if actorID == "" {
		return nil, domain.ErrUnauthorized
	}
	if movementID <= 0 {
		return nil, domain.Validationf("movement id is required")
	}
	target, err := uc.movements.GetByID(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "movement %d", movementID)
	}

	ctx, cancel := withTimeout(ctx, uc.timeout)
	defer cancel()

	var comp *entity.StockMovement
	err = uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		balanceRepo repository.StockBalanceRepository,
		productRepo repository.ProductRepository,
	) error {
		p, err := lockPosting(ctx, productRepo, balanceRepo, target.ProductID)
		if err != nil {
			return err
		}
		p.actorID = actorID
		p.at = uc.now().UTC()

		// re-read under the product lock; nothing can append or reverse concurrently now
		orig, err := movRepo.GetForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		if orig == nil {
			return domain.Errorf(domain.ErrNotFound, "movement %d", movementID)
		}
		latest, err := movRepo.LatestIDByProduct(ctx, orig.ProductID)
		if err != nil {
			return err
		}
		if err := checkReversible(orig, actorID, latest); err != nil {
			return err
		}

		comp = compensating(p, orig)
		if err := appendMovement(ctx, movRepo, balanceRepo, p, comp); err != nil {
			return err
		}
		return movRepo.MarkReversed(ctx, orig.ID, p.at, actorID)
	})
	if err != nil {
		err = classifyTxError(err)
		uc.log.Debug().Err(err).Int64("movement_id", movementID).Str("actor_id", actorID).Msg("reversal rolled back")
		return nil, err
	}

	uc.log.Info().
		Int64("movement_id", comp.ID).
		Int64("reversal_of_id", movementID).
		Int64("product_id", comp.ProductID).
		Str("type", string(comp.Type)).
		Str("balance_after", comp.BalanceAfter.String()).
		Msg("stock movement reversed")
	publishAfterCommit(ctx, uc.publisher, uc.log, EventMovementReversed, comp)
	return comp, nil
}

// compensating builds the offsetting row: base unit, original cost and value, negated quantity.
func compensating(p *posting, orig *entity.StockMovement) *entity.StockMovement {
	typ, _ := orig.Type.ReverseType()
	qty := orig.Quantity.Abs()
	origID := orig.ID
	note := fmt.Sprintf("reversal of movement %d", orig.ID)
	return &entity.StockMovement{
		ProductID:        orig.ProductID,
		Type:             typ,
		WorkOrderID:      orig.WorkOrderID,
		CostCenter:       orig.CostCenter,
		CostElement:      orig.CostElement,
		RefType:          strPtr(entity.RefTypeReversal),
		QtyInput:         qty,
		UnitInput:        inventory.BaseUnit,
		MultiplierToBase: decimal.NewFromInt(1),
		QtyBase:          qty,
		UnitCostBase:     orig.UnitCostBase,
		ValueTotal:       orig.ValueTotal,
		Quantity:         orig.Quantity.Neg(),
		PerformedBy:      p.actorID,
		PerformedAt:      p.at,
		Note:             &note,
		ReversalOfID:     &origID,
	}
}
