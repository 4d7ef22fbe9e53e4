package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/inventory"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
	"github.com/SafetyDady/smart-erp-backend/pkg/logger"
)

// EngineConfig holds the runtime switches of the movement engine.
type EngineConfig struct {
	AdjustEnabled bool          // ADJUST is rejected unless set
	TxTimeout     time.Duration // upper bound for one movement transaction, 0 = none
}

// ExecuteMovementUseCase turns a movement command into one ledger row plus the matching
// balance update, inside a single transaction with the product and balance rows locked.
type ExecuteMovementUseCase struct {
	txRunner   TxRunner
	roles      repository.RoleResolver
	workOrders repository.WorkOrderLookup
	costs      repository.CostAllocationValidator
	publisher  EventPublisher
	cfg        EngineConfig
	log        *logger.Logger
	now        func() time.Time
}

// NewExecuteMovementUseCase builds the engine. publisher may be nil.
func NewExecuteMovementUseCase(
	txRunner TxRunner,
	roles repository.RoleResolver,
	workOrders repository.WorkOrderLookup,
	costs repository.CostAllocationValidator,
	publisher EventPublisher,
	cfg EngineConfig,
	log *logger.Logger,
) *ExecuteMovementUseCase {
	return &ExecuteMovementUseCase{
		txRunner:   txRunner,
		roles:      roles,
		workOrders: workOrders,
		costs:      costs,
		publisher:  publisher,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// posting is the locked state a single movement is computed against.
type posting struct {
	product *entity.Product
	balance *entity.StockBalance
	actorID string
	at      time.Time
}

// ExecuteMovement validates cmd, applies it and returns the committed movement.
func (uc *ExecuteMovementUseCase) ExecuteMovement(ctx context.Context, actorID string, cmd MovementCommand) (*entity.StockMovement, error) {
	if cmd == nil {
		return nil, domain.Validationf("movement command is required")
	}
	if actorID == "" {
		return nil, domain.ErrUnauthorized
	}
	role, err := uc.roles.ResolveRole(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !role.CanPostMovements() {
		return nil, domain.Errorf(domain.ErrForbidden, "role %s cannot post stock movements", role)
	}
	if cmd.MovementType() == entity.MovementTypeAdjust {
		if !uc.cfg.AdjustEnabled {
			return nil, domain.Errorf(domain.ErrUnsupportedOperation, "ADJUST movements are disabled")
		}
		if !role.CanAdjust() {
			return nil, domain.Errorf(domain.ErrForbidden, "ADJUST requires the %s role", entity.RoleOwner)
		}
	}
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, uc.cfg.TxTimeout)
	defer cancel()

	var mov *entity.StockMovement
	err = uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		balanceRepo repository.StockBalanceRepository,
		productRepo repository.ProductRepository,
	) error {
		p, err := lockPosting(ctx, productRepo, balanceRepo, cmd.Product())
		if err != nil {
			return err
		}
		p.actorID = actorID
		p.at = uc.now().UTC()

		var newCost *decimal.Decimal
		switch c := cmd.(type) {
		case ReceiveCommand:
			mov, newCost, err = uc.receive(p, c)
		case IssueCommand:
			mov, err = uc.issue(ctx, p, c)
		case ConsumeCommand:
			mov, err = uc.consume(ctx, p, c)
		case AdjustCommand:
			mov, err = uc.adjust(p, c)
		default:
			err = domain.Validationf("unsupported movement command %T", cmd)
		}
		if err != nil {
			return err
		}
		if err := appendMovement(ctx, movRepo, balanceRepo, p, mov); err != nil {
			return err
		}
		if newCost != nil {
			if err := productRepo.UpdateCost(ctx, p.product.ID, *newCost); err != nil {
				return err
			}
			p.product.CostPerBaseUnit = *newCost
		}
		return nil
	})
	if err != nil {
		err = classifyTxError(err)
		uc.log.Debug().Err(err).
			Int64("product_id", cmd.Product()).
			Str("type", string(cmd.MovementType())).
			Str("actor_id", actorID).
			Msg("stock movement rolled back")
		return nil, err
	}

	uc.log.Info().
		Int64("movement_id", mov.ID).
		Int64("product_id", mov.ProductID).
		Str("type", string(mov.Type)).
		Str("qty_base", mov.QtyBase.String()).
		Str("balance_after", mov.BalanceAfter.String()).
		Msg("stock movement committed")
	publishAfterCommit(ctx, uc.publisher, uc.log, EventMovementCommitted, mov)
	return mov, nil
}

// lockPosting locks the product row first and the balance row second. Every writer
// (engine, reversal, catalog update) takes the locks in this order.
func lockPosting(
	ctx context.Context,
	productRepo repository.ProductRepository,
	balanceRepo repository.StockBalanceRepository,
	productID int64,
) (*posting, error) {
	product, err := productRepo.GetForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "product %d", productID)
	}
	balance, err := balanceRepo.GetForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "stock balance for product %d", productID)
	}
	return &posting{product: product, balance: balance}, nil
}

func (uc *ExecuteMovementUseCase) receive(p *posting, c ReceiveCommand) (*entity.StockMovement, *decimal.Decimal, error) {
	qtyBase, mult, err := inventory.ToBase(c.Quantity, c.Unit)
	if err != nil {
		return nil, nil, err
	}
	if c.UnitCost == nil {
		return nil, nil, domain.Validationf("unit_cost is required for RECEIVE")
	}
	unitCostBase, err := inventory.CostToBase(*c.UnitCost, c.Unit)
	if err != nil {
		return nil, nil, err
	}
	// value of the receipt as entered, not rebuilt from the rounded per-piece cost
	value := inventory.RoundAmount(c.Quantity.Mul(*c.UnitCost))
	newCost := inventory.AverageAfterReceipt(p.balance.OnHand, p.product.CostPerBaseUnit, qtyBase, value)

	mov := newMovement(p, entity.MovementTypeReceive, c.Quantity, c.Unit, mult, qtyBase, unitCostBase, c.Note)
	mov.UnitCostInput = decimal.NewNullDecimal(*c.UnitCost)
	mov.ValueTotal = value
	mov.Quantity = qtyBase
	return mov, &newCost, nil
}

func (uc *ExecuteMovementUseCase) issue(ctx context.Context, p *posting, c IssueCommand) (*entity.StockMovement, error) {
	if err := requireBaseUnit(entity.MovementTypeIssue, c.Unit); err != nil {
		return nil, err
	}
	if c.CostCenter == "" || c.CostElement == "" {
		return nil, domain.Validationf("ISSUE requires cost_center and cost_element")
	}
	ok, err := uc.costs.ValidateCostCenter(ctx, c.CostCenter)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Validationf("unknown or inactive cost center %q", c.CostCenter)
	}
	ok, err = uc.costs.ValidateCostElement(ctx, c.CostElement)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Validationf("unknown or inactive cost element %q", c.CostElement)
	}
	if err := ensureAvailable(p, c.Quantity); err != nil {
		return nil, err
	}

	mov := newMovement(p, entity.MovementTypeIssue, c.Quantity, inventory.BaseUnit, decimal.NewFromInt(1), c.Quantity, p.product.CostPerBaseUnit, c.Note)
	mov.Quantity = c.Quantity.Neg()
	mov.CostCenter = strPtr(c.CostCenter)
	mov.CostElement = strPtr(c.CostElement)
	mov.RefType = strPtr(entity.RefTypeCostCenter)
	return mov, nil
}

func (uc *ExecuteMovementUseCase) consume(ctx context.Context, p *posting, c ConsumeCommand) (*entity.StockMovement, error) {
	if err := requireBaseUnit(entity.MovementTypeConsume, c.Unit); err != nil {
		return nil, err
	}
	if c.WorkOrderID <= 0 {
		return nil, domain.Validationf("CONSUME requires work_order_id")
	}
	wo, err := uc.workOrders.GetWorkOrder(ctx, c.WorkOrderID)
	if err != nil {
		return nil, err
	}
	if wo == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "work order %d", c.WorkOrderID)
	}
	if !wo.IsOpen() {
		return nil, domain.Validationf("work order %s is %s, expected %s", wo.Number, wo.Status, entity.WorkOrderStatusOpen)
	}
	if p.product.Type != entity.ProductTypeConsumable {
		return nil, domain.Validationf("CONSUME is only allowed for %s products, product %d is %s",
			entity.ProductTypeConsumable, p.product.ID, p.product.Type)
	}
	if wo.CostElement == nil || *wo.CostElement == "" {
		return nil, domain.Validationf("work order %s has no cost element", wo.Number)
	}
	if err := ensureAvailable(p, c.Quantity); err != nil {
		return nil, err
	}

	mov := newMovement(p, entity.MovementTypeConsume, c.Quantity, inventory.BaseUnit, decimal.NewFromInt(1), c.Quantity, p.product.CostPerBaseUnit, c.Note)
	mov.Quantity = c.Quantity.Neg()
	woID := wo.ID
	mov.WorkOrderID = &woID
	mov.CostCenter = wo.CostCenter
	mov.CostElement = wo.CostElement
	mov.RefType = strPtr(entity.RefTypeWorkOrder)
	return mov, nil
}

func (uc *ExecuteMovementUseCase) adjust(p *posting, c AdjustCommand) (*entity.StockMovement, error) {
	qty := c.Delta.Abs()
	if c.Delta.IsNegative() {
		if err := ensureAvailable(p, qty); err != nil {
			return nil, err
		}
	}
	mov := newMovement(p, entity.MovementTypeAdjust, qty, inventory.BaseUnit, decimal.NewFromInt(1), qty, p.product.CostPerBaseUnit, c.Note)
	mov.Quantity = c.Delta
	return mov, nil
}

func newMovement(
	p *posting,
	typ entity.MovementType,
	qtyInput decimal.Decimal,
	unitInput string,
	mult, qtyBase, unitCostBase decimal.Decimal,
	note string,
) *entity.StockMovement {
	return &entity.StockMovement{
		ProductID:        p.product.ID,
		Type:             typ,
		QtyInput:         qtyInput,
		UnitInput:        inventory.NormalizeUnit(unitInput),
		MultiplierToBase: mult,
		QtyBase:          qtyBase,
		UnitCostBase:     unitCostBase,
		ValueTotal:       inventory.RoundAmount(qtyBase.Mul(unitCostBase)),
		PerformedBy:      p.actorID,
		PerformedAt:      p.at,
		Note:             notePtr(note),
	}
}

// appendMovement stamps balance_after, inserts the row and moves the balance with it.
func appendMovement(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	balanceRepo repository.StockBalanceRepository,
	p *posting,
	mov *entity.StockMovement,
) error {
	after := p.balance.OnHand.Add(mov.Quantity)
	if after.IsNegative() {
		return &domain.InsufficientStockError{ProductID: p.product.ID, Available: p.balance.OnHand, Requested: mov.Quantity.Abs()}
	}
	mov.BalanceAfter = after
	if err := movRepo.Create(ctx, mov); err != nil {
		return err
	}
	p.balance.Apply(mov.ID, mov.Quantity, p.at)
	return balanceRepo.Update(ctx, p.balance)
}

func requireBaseUnit(typ entity.MovementType, unit string) error {
	if _, err := inventory.Multiplier(unit); err != nil {
		return err
	}
	if !inventory.IsBaseUnit(unit) {
		return domain.Errorf(domain.ErrUnsupportedOperation, "%s accepts only %s, got %s", typ, inventory.BaseUnit, unit)
	}
	return nil
}

func ensureAvailable(p *posting, qtyBase decimal.Decimal) error {
	if p.balance.OnHand.LessThan(qtyBase) {
		return &domain.InsufficientStockError{ProductID: p.product.ID, Available: p.balance.OnHand, Requested: qtyBase}
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// classifyTxError maps an expired deadline to ErrTimeout; everything else is already typed.
func classifyTxError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		return domain.Errorf(domain.ErrTimeout, "%v", err)
	}
	return err
}

func publishAfterCommit(ctx context.Context, pub EventPublisher, log *logger.Logger, eventType string, mov *entity.StockMovement) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := pub.Publish(ctx, eventType, newMovementEvent(mov)); err != nil {
		log.Warn().Err(err).Int64("movement_id", mov.ID).Str("event_type", eventType).Msg("publish movement event")
	}
}

func strPtr(s string) *string { return &s }

// TransferBetweenZones is reserved for zone-aware balances. Balances are tracked per
// product only, so every call is rejected.
func (uc *ExecuteMovementUseCase) TransferBetweenZones(_ context.Context, actorID string, productID, fromZoneID, toZoneID int64, qty decimal.Decimal) error {
	if actorID == "" {
		return domain.ErrUnauthorized
	}
	return domain.Errorf(domain.ErrUnsupportedOperation,
		"transfer of product %d from zone %d to zone %d is not supported", productID, fromZoneID, toZoneID)
}
