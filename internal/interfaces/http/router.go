package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/SafetyDady/smart-erp-backend/internal/application/inventory"
	"github.com/SafetyDady/smart-erp-backend/internal/application/usecase"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/pkg/logger"
)

// HealthCheck reports whether one backing service is reachable.
type HealthCheck func(ctx context.Context) error

// RouterDeps dependencies for the router.
type RouterDeps struct {
	ProductUC   *usecase.ProductUseCase
	Engine      *inventory.ExecuteMovementUseCase
	Reversal    *inventory.ReverseMovementUseCase
	Query       *inventory.StockQueryUseCase
	StockCard   *inventory.StockCardUseCase
	Idempotency IdempotencyStore // nil disables Idempotency-Key handling
	Checks      map[string]HealthCheck
	JWTSecret   string
	ServiceName string
	Log         *logger.Logger
}

// Router registers the API routes.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", healthHandler(deps.ServiceName, deps.Checks))

	api := app.Group("/api")

	// everything below requires a Bearer token
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	writers := RequireRole(entity.RoleOwner, entity.RoleManager)
	supervisors := RequireRole(entity.RoleOwner, entity.RoleManager)

	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Post("/", writers, productHandler.Create)
	products.Put("/:id", writers, productHandler.Update)

	stock := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.Engine, deps.Reversal, deps.Query, deps.StockCard, deps.Idempotency, deps.Log)
	stock.Get("/movements", stockHandler.ListRecentMovements)
	stock.Post("/movements", writers, stockHandler.CreateMovement)
	stock.Post("/movements/:id/reverse", writers, stockHandler.ReverseMovement)
	stock.Get("/low-stock", supervisors, stockHandler.GetLowStockSummary)
	stock.Get("/products/:id/balance", stockHandler.GetBalance)
	stock.Get("/products/:id/movements", stockHandler.GetMovementHistory)
	stock.Get("/products/:id/stock-card.pdf", stockHandler.ExportStockCard)
}

// healthHandler godoc
// @Summary      Liveness and dependency health
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      503  {object}  map[string]any
// @Router       /health [get]
func healthHandler(service string, checks map[string]HealthCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := fiber.StatusOK
		deps := fiber.Map{}
		for name, check := range checks {
			if err := check(c.UserContext()); err != nil {
				deps[name] = err.Error()
				status = fiber.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}
		state := "ok"
		if status != fiber.StatusOK {
			state = "degraded"
		}
		return c.Status(status).JSON(fiber.Map{"status": state, "service": service, "checks": deps})
	}
}
