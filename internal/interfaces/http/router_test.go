package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafetyDady/smart-erp-backend/internal/application/inventory"
	"github.com/SafetyDady/smart-erp-backend/internal/application/usecase"
	"github.com/SafetyDady/smart-erp-backend/internal/infrastructure/cache"
	"github.com/SafetyDady/smart-erp-backend/internal/infrastructure/memory"
	"github.com/SafetyDady/smart-erp-backend/internal/infrastructure/pdf"
	apphttp "github.com/SafetyDady/smart-erp-backend/internal/interfaces/http"
	"github.com/SafetyDady/smart-erp-backend/pkg/actor"
	"github.com/SafetyDady/smart-erp-backend/pkg/logger"
)

const (
	managerID = "manager-1"
	staffID   = "staff-1"
)

type apiClient struct {
	t   *testing.T
	app *fiber.App
}

func newAPI(t *testing.T, checks map[string]apphttp.HealthCheck) *apiClient {
	t.Helper()
	return newAPIWithIdempotency(t, checks, nil)
}

// newAPIWithIdempotency wires the full stack. A nil idem uses a Redis store on miniredis.
func newAPIWithIdempotency(t *testing.T, checks map[string]apphttp.HealthCheck, idem func(apphttp.IdempotencyStore) apphttp.IdempotencyStore) *apiClient {
	t.Helper()
	store := memory.NewStore()
	store.AddCostCenter("CC-100", true)
	store.AddCostElement("CE-200", true)

	roles := actor.ContextResolver{}
	log := logger.Nop()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var idemStore apphttp.IdempotencyStore = cache.NewIdempotencyStore(rdb, time.Minute)
	if idem != nil {
		idemStore = idem(idemStore)
	}

	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler})
	app.Use(apphttp.RequestID())
	apphttp.Router(app, apphttp.RouterDeps{
		ProductUC: usecase.NewProductUseCase(store.Products(), store, roles, log),
		Engine:    inventory.NewExecuteMovementUseCase(store, roles, store, store, nil, inventory.EngineConfig{}, log),
		Reversal:  inventory.NewReverseMovementUseCase(store, store.Movements(), nil, time.Second, log),
		Query: inventory.NewStockQueryUseCase(store, store.Products(), store.Balances(), store.Movements(), inventory.QueryConfig{
			LowStockThreshold: decimal.NewFromInt(10),
		}),
		StockCard:   inventory.NewStockCardUseCase(store.Products(), store.Balances(), store.Movements(), pdf.NewStockCardGenerator("test"), 0),
		Idempotency: idemStore,
		Checks:      checks,
		JWTSecret:   testJWTSecret,
		ServiceName: "smart-erp-test",
		Log:         log,
	})
	return &apiClient{t: t, app: app}
}

func (a *apiClient) do(method, path, userID, role string, body any, headers ...string) (int, map[string]any, http.Header) {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", bearer(a.t, userID, role))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)

	out := map[string]any{}
	if len(raw) > 0 && resp.Header.Get("Content-Type") != "application/pdf" {
		require.NoError(a.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out, resp.Header
}

func (a *apiClient) createProduct(sku string) int64 {
	a.t.Helper()
	status, body, _ := a.do(http.MethodPost, "/api/products", managerID, "MANAGER", fiber.Map{
		"name": "Item " + sku, "sku": sku, "product_type": "material", "cost": "2",
	})
	require.Equal(a.t, http.StatusCreated, status, body)
	return int64(body["id"].(float64))
}

func TestStockFlowOverHTTP(t *testing.T) {
	api := newAPI(t, nil)
	id := api.createProduct("bolt-m8")

	status, body, _ := api.do(http.MethodPost, "/api/stock/movements", managerID, "MANAGER", fiber.Map{
		"product_id": id, "type": "receive", "quantity": "2", "unit": "DOZEN", "unit_cost": "72",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "24", body["qty_base"])
	assert.Equal(t, "24", body["balance_after"])
	assert.Equal(t, "6", body["unit_cost_base"])
	receiveID := int64(body["id"].(float64))

	status, body, _ = api.do(http.MethodGet, fmt.Sprintf("/api/stock/products/%d/balance", id), staffID, "STAFF", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "24", body["on_hand"])
	assert.Equal(t, "BOLT-M8", body["sku"])
	assert.Equal(t, false, body["is_low_stock"])

	status, body, _ = api.do(http.MethodPost, "/api/stock/movements", managerID, "MANAGER", fiber.Map{
		"product_id": id, "type": "ISSUE", "quantity": "30", "cost_center": "CC-100", "cost_element": "CE-200",
	})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	details := body["details"].(map[string]any)
	assert.Equal(t, "24", details["available"])
	assert.Equal(t, "30", details["requested"])

	status, body, _ = api.do(http.MethodGet, "/api/stock/movements", managerID, "MANAGER", nil)
	require.Equal(t, http.StatusOK, status)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, true, items[0].(map[string]any)["can_undo"])

	status, body, _ = api.do(http.MethodPost, fmt.Sprintf("/api/stock/movements/%d/reverse", receiveID), managerID, "MANAGER", nil)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "ISSUE", body["type"])
	assert.Equal(t, "0", body["balance_after"])
	assert.Equal(t, float64(receiveID), body["reversal_of_id"])

	status, body, _ = api.do(http.MethodPost, fmt.Sprintf("/api/stock/movements/%d/reverse", receiveID), managerID, "MANAGER", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_REVERSED", body["code"])

	status, body, _ = api.do(http.MethodGet, fmt.Sprintf("/api/stock/products/%d/movements?limit=1", id), staffID, "STAFF", nil)
	require.Equal(t, http.StatusOK, status)
	page := body["page"].(map[string]any)
	assert.Equal(t, float64(2), page["total"])
	assert.Len(t, body["items"].([]any), 1)

	status, body, _ = api.do(http.MethodGet, "/api/stock/low-stock", managerID, "MANAGER", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])

	// the low-stock report is for owners and managers
	status, body, _ = api.do(http.MethodGet, "/api/stock/low-stock", staffID, "STAFF", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])

	status, _, _ = api.do(http.MethodGet, "/api/stock/low-stock", "owner-1", "OWNER", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestCreateMovementRoles(t *testing.T) {
	api := newAPI(t, nil)
	id := api.createProduct("nut-m8")

	status, body, _ := api.do(http.MethodPost, "/api/stock/movements", staffID, "STAFF", fiber.Map{
		"product_id": id, "type": "RECEIVE", "quantity": "1", "unit_cost": "1",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])

	status, body, _ = api.do(http.MethodPost, "/api/stock/movements", "owner-1", "OWNER", fiber.Map{
		"product_id": id, "type": "ADJUST", "quantity": "5",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status, "ADJUST is disabled by default")
	assert.Equal(t, "UNSUPPORTED_OPERATION", body["code"])

	status, _, _ = api.do(http.MethodPost, "/api/stock/movements", "", "", fiber.Map{"product_id": id})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCreateMovementValidation(t *testing.T) {
	api := newAPI(t, nil)
	id := api.createProduct("washer")

	status, body, _ := api.do(http.MethodPost, "/api/stock/movements", managerID, "MANAGER", fiber.Map{
		"type": "RECEIVE", "quantity": "1",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["code"])
	assert.Contains(t, body["details"], "product_id")

	status, body, _ = api.do(http.MethodPost, "/api/stock/movements", managerID, "MANAGER", fiber.Map{
		"product_id": id, "type": "RECEIVE", "quantity": "1", "unit": "BOX", "unit_cost": "3",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "UNSUPPORTED_UNIT", body["code"])

	status, body, _ = api.do(http.MethodPost, "/api/stock/movements", managerID, "MANAGER", fiber.Map{
		"product_id": id, "type": "ISSUE", "quantity": "1", "unit_cost": "3",
	})
	assert.Equal(t, http.StatusBadRequest, status, "unit_cost does not belong to ISSUE")
	assert.Equal(t, "VALIDATION", body["code"])

	req := httptest.NewRequest(http.MethodPost, "/api/stock/movements", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, managerID, "MANAGER"))
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateMovementIdempotencyKey(t *testing.T) {
	api := newAPI(t, nil)
	id := api.createProduct("rivet")
	receive := fiber.Map{"product_id": id, "type": "RECEIVE", "quantity": "10", "unit_cost": "1.5"}

	status, first, _ := api.do(http.MethodPost, "/api/stock/movements", managerID, "MANAGER", receive, apphttp.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, status)

	status, second, hdr := api.do(http.MethodPost, "/api/stock/movements", managerID, "MANAGER", receive, apphttp.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "true", hdr.Get("Idempotent-Replayed"))
	assert.Equal(t, first["id"], second["id"])

	_, balance, _ := api.do(http.MethodGet, fmt.Sprintf("/api/stock/products/%d/balance", id), managerID, "MANAGER", nil)
	assert.Equal(t, "10", balance["on_hand"], "the replay must not post twice")

	// a failed request releases its key so the client can retry it
	bad := fiber.Map{"product_id": id, "type": "ISSUE", "quantity": "99", "cost_center": "CC-100", "cost_element": "CE-200"}
	status, _, _ = api.do(http.MethodPost, "/api/stock/movements", managerID, "MANAGER", bad, apphttp.HeaderIdempotencyKey, "k-2")
	assert.Equal(t, http.StatusConflict, status)
	bad["quantity"] = "4"
	status, body, _ := api.do(http.MethodPost, "/api/stock/movements", managerID, "MANAGER", bad, apphttp.HeaderIdempotencyKey, "k-2")
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "6", body["balance_after"])
}

// failingComplete fails the first n Complete calls of the wrapped store.
type failingComplete struct {
	apphttp.IdempotencyStore
	mu       sync.Mutex
	n        int
	released int
}

func (f *failingComplete) Complete(ctx context.Context, scope, key string, resp cache.StoredResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n > 0 {
		f.n--
		return errors.New("redis: connection reset")
	}
	return f.IdempotencyStore.Complete(ctx, scope, key, resp)
}

func (f *failingComplete) Release(ctx context.Context, scope, key string) error {
	f.mu.Lock()
	f.released++
	f.mu.Unlock()
	return f.IdempotencyStore.Release(ctx, scope, key)
}

func TestIdempotencyKeyWhenStoringTheResponseFails(t *testing.T) {
	receive := func(id int64) fiber.Map {
		return fiber.Map{"product_id": id, "type": "RECEIVE", "quantity": "10", "unit_cost": "1"}
	}

	t.Run("second attempt stores the replay", func(t *testing.T) {
		flaky := &failingComplete{n: 1}
		api := newAPIWithIdempotency(t, nil, func(s apphttp.IdempotencyStore) apphttp.IdempotencyStore {
			flaky.IdempotencyStore = s
			return flaky
		})
		id := api.createProduct("nut-a")

		status, first, _ := api.do(http.MethodPost, "/api/stock/movements", managerID, "MANAGER", receive(id), apphttp.HeaderIdempotencyKey, "k-1")
		require.Equal(t, http.StatusCreated, status)
		status, second, hdr := api.do(http.MethodPost, "/api/stock/movements", managerID, "MANAGER", receive(id), apphttp.HeaderIdempotencyKey, "k-1")
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "true", hdr.Get("Idempotent-Replayed"))
		assert.Equal(t, first["id"], second["id"])
		assert.Zero(t, flaky.released)
	})

	t.Run("key is released instead of staying in progress", func(t *testing.T) {
		flaky := &failingComplete{n: 2}
		api := newAPIWithIdempotency(t, nil, func(s apphttp.IdempotencyStore) apphttp.IdempotencyStore {
			flaky.IdempotencyStore = s
			return flaky
		})
		id := api.createProduct("nut-b")

		status, _, _ := api.do(http.MethodPost, "/api/stock/movements", managerID, "MANAGER", receive(id), apphttp.HeaderIdempotencyKey, "k-1")
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, 1, flaky.released)

		status, body, _ := api.do(http.MethodPost, "/api/stock/movements", managerID, "MANAGER", receive(id), apphttp.HeaderIdempotencyKey, "k-1")
		assert.NotEqual(t, http.StatusConflict, status, body)
	})
}

func TestProductEndpoints(t *testing.T) {
	api := newAPI(t, nil)
	id := api.createProduct("gear-01")

	status, body, _ := api.do(http.MethodPost, "/api/products", managerID, "MANAGER", fiber.Map{
		"name": "Other", "sku": "GEAR-01", "product_type": "PRODUCT",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE", body["code"])

	status, _, _ = api.do(http.MethodPost, "/api/products", staffID, "STAFF", fiber.Map{
		"name": "X", "sku": "X-1", "product_type": "PRODUCT",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, body, _ = api.do(http.MethodPost, "/api/products", managerID, "MANAGER", fiber.Map{"sku": "X-2"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["details"], "name")

	status, body, _ = api.do(http.MethodGet, fmt.Sprintf("/api/products/%d", id), staffID, "STAFF", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "GEAR-01", body["sku"])
	assert.Equal(t, "PCS", body["base_unit"])
	assert.Equal(t, "0", body["cost_per_base_unit"])

	status, body, _ = api.do(http.MethodGet, "/api/products/999", staffID, "STAFF", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])

	status, _, _ = api.do(http.MethodGet, "/api/products/abc", staffID, "STAFF", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _, _ = api.do(http.MethodPost, "/api/stock/movements", managerID, "MANAGER", fiber.Map{
		"product_id": id, "type": "RECEIVE", "quantity": "1", "unit_cost": "4",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body, _ = api.do(http.MethodPut, fmt.Sprintf("/api/products/%d", id), managerID, "MANAGER", fiber.Map{"sku": "GEAR-02"})
	assert.Equal(t, http.StatusLocked, status, "SKU is locked after the first movement")
	assert.Equal(t, "LOCKED", body["code"])

	status, body, _ = api.do(http.MethodPut, fmt.Sprintf("/api/products/%d", id), managerID, "MANAGER", fiber.Map{"name": "Gear 01"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Gear 01", body["name"])
	assert.Equal(t, "4", body["cost_per_base_unit"])

	status, body, _ = api.do(http.MethodGet, "/api/products?q=gear&type=material", staffID, "STAFF", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"].([]any), 1)
}

func TestStockCardAndLowStockQuery(t *testing.T) {
	api := newAPI(t, nil)
	id := api.createProduct("pipe")

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/stock/products/%d/stock-card.pdf", id), nil)
	req.Header.Set("Authorization", bearer(t, staffID, "STAFF"))
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "stock-card-PIPE.pdf")
	doc, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))

	status, body, _ := api.do(http.MethodGet, "/api/stock/low-stock?threshold=abc", managerID, "MANAGER", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["code"])

	status, body, _ = api.do(http.MethodGet, "/api/stock/low-stock?threshold=-1", managerID, "MANAGER", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body, _ = api.do(http.MethodGet, "/api/stock/low-stock?threshold=0&top=1", managerID, "MANAGER", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0", body["threshold"])
	assert.Equal(t, float64(1), body["count"], "zero on hand is low at threshold 0")
}

func TestStockCardFileNameIsEscaped(t *testing.T) {
	api := newAPI(t, nil)
	id := api.createProduct(`hose "3/4"`)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/stock/products/%d/stock-card.pdf", id), nil)
	req.Header.Set("Authorization", bearer(t, staffID, "STAFF"))
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	disposition, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	require.NoError(t, err, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, `stock-card-HOSE "3/4".pdf`, params["filename"])
}

func TestHealth(t *testing.T) {
	api := newAPI(t, map[string]apphttp.HealthCheck{
		"postgres": func(context.Context) error { return nil },
	})
	status, body, _ := api.do(http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	api = newAPI(t, map[string]apphttp.HealthCheck{
		"rabbitmq": func(context.Context) error { return errors.New("connection closed") },
	})
	status, body, _ = api.do(http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body["status"])
}

func TestErrorStatusForUnknownRoute(t *testing.T) {
	api := newAPI(t, nil)
	status, body, _ := api.do(http.MethodGet, "/nope", "", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

