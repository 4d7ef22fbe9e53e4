package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafetyDady/smart-erp-backend/internal/application/dto"
	"github.com/SafetyDady/smart-erp-backend/internal/application/usecase"
	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
	"github.com/SafetyDady/smart-erp-backend/internal/infrastructure/memory"
	"github.com/SafetyDady/smart-erp-backend/pkg/actor"
	"github.com/SafetyDady/smart-erp-backend/pkg/logger"
)

func newProductUseCase() (*usecase.ProductUseCase, *memory.Store) {
	store := memory.NewStore()
	roles := actor.StaticResolver{Roles: map[string]entity.Role{
		"owner":   entity.RoleOwner,
		"manager": entity.RoleManager,
		"staff":   entity.RoleStaff,
	}}
	return usecase.NewProductUseCase(store.Products(), store, roles, logger.Nop()), store
}

func strp(s string) *string { return &s }

func TestCreateProduct(t *testing.T) {
	uc, store := newProductUseCase()
	ctx := context.Background()

	p, err := uc.Create(ctx, "manager", dto.CreateProductRequest{
		Name: " Hex bolt M8 ", SKU: " bolt-m8 ", Type: "material", Unit: "dozen", Cost: decimal.NewFromInt(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "BOLT-M8", p.SKU)
	assert.Equal(t, "Hex bolt M8", p.Name)
	assert.Equal(t, "MATERIAL", p.Type)
	assert.Equal(t, "DOZEN", p.Unit)
	assert.Equal(t, "PCS", p.BaseUnit)
	assert.True(t, p.CostPerBaseUnit.IsZero())
	assert.Equal(t, "manager", p.CreatedBy)

	bal, err := store.Balances().GetByProduct(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, bal, "a zero balance is created with the product")
	assert.True(t, bal.OnHand.IsZero())
}

func TestCreateProductRejects(t *testing.T) {
	uc, _ := newProductUseCase()
	ctx := context.Background()
	_, err := uc.Create(ctx, "owner", dto.CreateProductRequest{Name: "A", SKU: "A-1", Type: "PRODUCT"})
	require.NoError(t, err)

	cases := []struct {
		name  string
		actor string
		req   dto.CreateProductRequest
		kind  error
	}{
		{"duplicate sku", "owner", dto.CreateProductRequest{Name: "B", SKU: "a-1", Type: "PRODUCT"}, domain.ErrDuplicate},
		{"staff", "staff", dto.CreateProductRequest{Name: "B", SKU: "B-1", Type: "PRODUCT"}, domain.ErrForbidden},
		{"anonymous", "", dto.CreateProductRequest{Name: "B", SKU: "B-1", Type: "PRODUCT"}, domain.ErrUnauthorized},
		{"bad type", "owner", dto.CreateProductRequest{Name: "B", SKU: "B-1", Type: "SERVICE"}, domain.ErrValidation},
		{"bad unit", "owner", dto.CreateProductRequest{Name: "B", SKU: "B-1", Type: "PRODUCT", Unit: "BOX"}, domain.ErrUnsupportedOperation},
		{"cheap material", "owner", dto.CreateProductRequest{Name: "B", SKU: "B-1", Type: "MATERIAL", Cost: decimal.RequireFromString("0.5")}, domain.ErrValidation},
		{"negative cost", "owner", dto.CreateProductRequest{Name: "B", SKU: "B-1", Type: "PRODUCT", Cost: decimal.NewFromInt(-1)}, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Create(ctx, tc.actor, tc.req)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestSKULockedAfterFirstMovement(t *testing.T) {
	uc, store := newProductUseCase()
	ctx := context.Background()
	p, err := uc.Create(ctx, "owner", dto.CreateProductRequest{Name: "A", SKU: "A-1", Type: "PRODUCT"})
	require.NoError(t, err)

	// before any movement the SKU can still be corrected
	p, err = uc.Update(ctx, "manager", p.ID, dto.UpdateProductRequest{SKU: strp("a-2")})
	require.NoError(t, err)
	assert.Equal(t, "A-2", p.SKU)

	err = store.Run(ctx, func(m repository.StockMovementRepository, _ repository.StockBalanceRepository, _ repository.ProductRepository) error {
		return m.Create(ctx, &entity.StockMovement{ProductID: p.ID, Type: entity.MovementTypeReceive, Quantity: decimal.NewFromInt(1)})
	})
	require.NoError(t, err)

	_, err = uc.Update(ctx, "manager", p.ID, dto.UpdateProductRequest{SKU: strp("A-3")})
	assert.ErrorIs(t, err, domain.ErrLocked)

	// same SKU and other fields remain editable
	p, err = uc.Update(ctx, "manager", p.ID, dto.UpdateProductRequest{SKU: strp("a-2"), Name: strp("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Name)
	assert.Equal(t, "A-2", p.SKU)
}

func TestUpdateProductRejects(t *testing.T) {
	uc, _ := newProductUseCase()
	ctx := context.Background()
	a, err := uc.Create(ctx, "owner", dto.CreateProductRequest{Name: "A", SKU: "A-1", Type: "MATERIAL", Cost: decimal.NewFromInt(5)})
	require.NoError(t, err)
	_, err = uc.Create(ctx, "owner", dto.CreateProductRequest{Name: "B", SKU: "B-1", Type: "PRODUCT"})
	require.NoError(t, err)

	_, err = uc.Update(ctx, "owner", a.ID, dto.UpdateProductRequest{SKU: strp("b-1")})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	zero := decimal.Zero
	_, err = uc.Update(ctx, "owner", a.ID, dto.UpdateProductRequest{Cost: &zero})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.Update(ctx, "owner", 404, dto.UpdateProductRequest{Name: strp("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.Update(ctx, "staff", a.ID, dto.UpdateProductRequest{Name: strp("x")})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := uc.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A-1", got.SKU)
	assert.True(t, decimal.NewFromInt(5).Equal(got.Cost))
}

func TestListProducts(t *testing.T) {
	uc, _ := newProductUseCase()
	ctx := context.Background()
	for _, req := range []dto.CreateProductRequest{
		{Name: "Steel plate", SKU: "ST-1", Type: "MATERIAL", Category: "metal", Cost: decimal.NewFromInt(10)},
		{Name: "Steel rod", SKU: "ST-2", Type: "MATERIAL", Category: "metal", Cost: decimal.NewFromInt(10)},
		{Name: "Gloves", SKU: "GL-1", Type: "CONSUMABLE", Category: "safety"},
	} {
		_, err := uc.Create(ctx, "owner", req)
		require.NoError(t, err)
	}

	res, err := uc.List(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Page.Total)
	assert.Equal(t, 20, res.Page.Limit)

	res, err = uc.List(ctx, repository.ProductFilter{Type: entity.ProductTypeMaterial, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Page.Total)
	assert.Len(t, res.Items, 1)

	res, err = uc.List(ctx, repository.ProductFilter{Search: "glo"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "GL-1", res.Items[0].SKU)

	_, err = uc.List(ctx, repository.ProductFilter{Type: "SERVICE"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
