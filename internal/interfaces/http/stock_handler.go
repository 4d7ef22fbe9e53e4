package http

import (
	"context"
	"encoding/json"
	"mime"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/application/dto"
	"github.com/SafetyDady/smart-erp-backend/internal/application/inventory"
	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/infrastructure/cache"
	"github.com/SafetyDady/smart-erp-backend/pkg/logger"
)

// HeaderIdempotencyKey makes POST /stock/movements safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

// IdempotencyStore remembers the response of a movement POST per actor and key.
type IdempotencyStore interface {
	Reserve(ctx context.Context, scope, key string) (*cache.StoredResponse, bool, error)
	Complete(ctx context.Context, scope, key string, resp cache.StoredResponse) error
	Release(ctx context.Context, scope, key string) error
}

// StockHandler serves movements, balances and ledger queries (protected).
type StockHandler struct {
	engine    *inventory.ExecuteMovementUseCase
	reversal  *inventory.ReverseMovementUseCase
	query     *inventory.StockQueryUseCase
	stockCard *inventory.StockCardUseCase
	idem      IdempotencyStore // optional
	log       *logger.Logger
}

// NewStockHandler builds the handler. idem may be nil, in which case Idempotency-Key is ignored.
func NewStockHandler(
	engine *inventory.ExecuteMovementUseCase,
	reversal *inventory.ReverseMovementUseCase,
	query *inventory.StockQueryUseCase,
	stockCard *inventory.StockCardUseCase,
	idem IdempotencyStore,
	log *logger.Logger,
) *StockHandler {
	return &StockHandler{engine: engine, reversal: reversal, query: query, stockCard: stockCard, idem: idem, log: log}
}

// CreateMovement godoc
// @Summary      Post a stock movement
// @Description  RECEIVE needs unit_cost; ISSUE needs cost_center and cost_element; CONSUME needs
// @Description  an open work_order_id; ADJUST takes a signed quantity in PCS and is OWNER-only.
// @Description  Send Idempotency-Key to make retries return the first response.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "Client retry key"
// @Param        body  body  dto.CreateMovementRequest  true  "Movement"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/stock/movements [post]
func (h *StockHandler) CreateMovement(c *fiber.Ctx) error {
	var in dto.CreateMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	in.Type = strings.ToUpper(strings.TrimSpace(in.Type))
	if err := validateStruct(in); err != nil {
		return writeError(c, err)
	}
	ctx := c.UserContext()
	userID := GetUserID(c)

	key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
	if key != "" && h.idem != nil {
		stored, fresh, err := h.idem.Reserve(ctx, userID, key)
		if err != nil {
			return writeError(c, err)
		}
		if !fresh {
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(stored.Status).Send(stored.Body)
		}
	} else {
		key = ""
	}

	mov, err := h.engine.ExecuteFromRequest(ctx, userID, in)
	if err != nil {
		if key != "" {
			if rerr := h.idem.Release(ctx, userID, key); rerr != nil {
				h.log.Warn().Err(rerr).Str("idempotency_key", key).Msg("release idempotency key")
			}
		}
		return writeError(c, err)
	}

	body, err := json.Marshal(dto.MovementFromEntity(mov))
	if err != nil {
		return writeError(c, err)
	}
	if key != "" {
		h.storeReplay(ctx, userID, key, cache.StoredResponse{Status: fiber.StatusCreated, Body: body})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusCreated).Send(body)
}

// storeReplay saves the committed response under the key, trying twice. If it still cannot
// be saved the key is released, so a retry is not answered "in progress" until the TTL ends.
func (h *StockHandler) storeReplay(ctx context.Context, userID, key string, resp cache.StoredResponse) {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = h.idem.Complete(ctx, userID, key, resp); err == nil {
			return
		}
	}
	h.log.Warn().Err(err).Str("idempotency_key", key).Msg("store idempotent response, releasing key")
	if rerr := h.idem.Release(ctx, userID, key); rerr != nil {
		h.log.Error().Err(rerr).Str("idempotency_key", key).Msg("release idempotency key")
	}
}

// ReverseMovement godoc
// @Summary      Reverse (undo) a movement
// @Description  Only the latest movement of its product, only by the actor who posted it, only once.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "Movement ID"
// @Success      201  {object}  dto.MovementResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock/movements/{id}/reverse [post]
func (h *StockHandler) ReverseMovement(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	comp, err := h.reversal.ReverseMovement(c.UserContext(), id, GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementFromEntity(comp))
}

// ListRecentMovements godoc
// @Summary      Latest movements across products
// @Description  Each item carries can_undo for the caller.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        limit  query  int  false  "Limit (max 200)"  default(50)
// @Success      200    {object}  dto.RecentMovementsResponse
// @Router       /api/stock/movements [get]
func (h *StockHandler) ListRecentMovements(c *fiber.Ctx) error {
	out, err := h.query.ListRecentMovements(c.UserContext(), GetUserID(c), c.QueryInt("limit", inventory.DefaultHistoryLimit))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetBalance godoc
// @Summary      Stock balance of a product
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "Product ID"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id}/balance [get]
func (h *StockHandler) GetBalance(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	out, err := h.query.GetBalance(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetMovementHistory godoc
// @Summary      Ledger of a product, newest first
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id      path   int  true   "Product ID"
// @Param        limit   query  int  false  "Limit (max 200)"  default(50)
// @Param        offset  query  int  false  "Offset"           default(0)
// @Success      200     {object}  dto.MovementHistoryResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id}/movements [get]
func (h *StockHandler) GetMovementHistory(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit", 0), Offset: c.QueryInt("offset", 0)}
	out, err := h.query.GetMovementHistory(c.UserContext(), id, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ExportStockCard godoc
// @Summary      Stock card PDF of a product
// @Tags         stock
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  int  true  "Product ID"
// @Success      200  {file}  binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/products/{id}/stock-card.pdf [get]
func (h *StockHandler) ExportStockCard(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	doc, name, err := h.stockCard.ExportStockCard(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, attachment(name))
	return c.Send(doc)
}

// attachment builds a Content-Disposition value. The name comes from the SKU, so it is
// quoted or RFC 2231 encoded as needed.
func attachment(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}

// GetLowStockSummary godoc
// @Summary      Products at or under the low-stock threshold
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        threshold  query  string  false  "Override the configured threshold"
// @Param        top        query  int     false  "How many of the lowest products to list"
// @Success      200        {object}  dto.LowStockSummaryResponse
// @Failure      400        {object}  dto.ErrorResponse
// @Failure      403        {object}  dto.ErrorResponse
// @Router       /api/stock/low-stock [get]
func (h *StockHandler) GetLowStockSummary(c *fiber.Ctx) error {
	var threshold *decimal.Decimal
	if raw := strings.TrimSpace(c.Query("threshold")); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return writeError(c, domain.Validationf("threshold %q is not a number", raw))
		}
		threshold = &d
	}
	out, err := h.query.GetLowStockSummary(c.UserContext(), threshold, c.QueryInt("top", 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
