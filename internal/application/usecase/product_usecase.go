package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/application/dto"
	"github.com/SafetyDady/smart-erp-backend/internal/application/inventory"
	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	domaininv "github.com/SafetyDady/smart-erp-backend/internal/domain/inventory"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
	"github.com/SafetyDady/smart-erp-backend/pkg/logger"
)

// ProductUseCase manages the product catalog. Stock and average cost change only through movements.
type ProductUseCase struct {
	repo     repository.ProductRepository
	txRunner inventory.TxRunner
	roles    repository.RoleResolver
	log      *logger.Logger
	now      func() time.Time
}

// NewProductUseCase builds the use case. repo serves reads outside a transaction.
func NewProductUseCase(
	repo repository.ProductRepository,
	txRunner inventory.TxRunner,
	roles repository.RoleResolver,
	log *logger.Logger,
) *ProductUseCase {
	return &ProductUseCase{repo: repo, txRunner: txRunner, roles: roles, log: log, now: time.Now}
}

func (uc *ProductUseCase) requireCatalogRole(ctx context.Context, actorID string) error {
	if actorID == "" {
		return domain.ErrUnauthorized
	}
	role, err := uc.roles.ResolveRole(ctx, actorID)
	if err != nil {
		return err
	}
	if !role.CanManageCatalog() {
		return domain.Errorf(domain.ErrForbidden, "role %s cannot manage products", role)
	}
	return nil
}

// Create adds a product and its zero balance in one transaction.
func (uc *ProductUseCase) Create(ctx context.Context, actorID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if err := uc.requireCatalogRole(ctx, actorID); err != nil {
		return nil, err
	}
	typ := entity.ProductType(strings.ToUpper(in.Type))
	if !typ.Valid() {
		return nil, domain.Validationf("unknown product type %q", in.Type)
	}
	sku := entity.NormalizeSKU(in.SKU)
	if sku == "" || strings.TrimSpace(in.Name) == "" {
		return nil, domain.Validationf("sku and name are required")
	}
	unit := domaininv.BaseUnit
	if in.Unit != "" {
		if _, err := domaininv.Multiplier(in.Unit); err != nil {
			return nil, err
		}
		unit = domaininv.NormalizeUnit(in.Unit)
	}
	if in.Cost.IsNegative() {
		return nil, domain.Validationf("cost must not be negative")
	}

	now := uc.now().UTC()
	product := &entity.Product{
		Name:            strings.TrimSpace(in.Name),
		SKU:             sku,
		Type:            typ,
		Category:        strings.TrimSpace(in.Category),
		Unit:            unit,
		BaseUnit:        domaininv.BaseUnit,
		Cost:            in.Cost,
		CostPerBaseUnit: decimal.Zero,
		CreatedBy:       actorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.Price != nil {
		product.Price = decimal.NewNullDecimal(*in.Price)
	}
	if !product.CostPolicyOK() {
		return nil, domain.Validationf("MATERIAL products require cost >= %s", entity.MinMaterialCost)
	}

	err := uc.txRunner.Run(ctx, func(
		_ repository.StockMovementRepository,
		balanceRepo repository.StockBalanceRepository,
		productRepo repository.ProductRepository,
	) error {
		existing, err := productRepo.GetBySKU(ctx, sku)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.Errorf(domain.ErrDuplicate, "sku %s already exists", sku)
		}
		if err := productRepo.Create(ctx, product); err != nil {
			return err
		}
		return balanceRepo.Create(ctx, &entity.StockBalance{
			ProductID:   product.ID,
			OnHand:      decimal.Zero,
			LastUpdated: now,
		})
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Int64("product_id", product.ID).Str("sku", product.SKU).Str("actor_id", actorID).Msg("product created")
	out := dto.ProductFromEntity(product)
	return &out, nil
}

// GetByID returns the product or ErrNotFound.
func (uc *ProductUseCase) GetByID(ctx context.Context, id int64) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "product %d", id)
	}
	out := dto.ProductFromEntity(product)
	return &out, nil
}

// Update edits catalog fields. The SKU cannot change once any movement references the product.
func (uc *ProductUseCase) Update(ctx context.Context, actorID string, id int64, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	if err := uc.requireCatalogRole(ctx, actorID); err != nil {
		return nil, err
	}

	var product *entity.Product
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		_ repository.StockBalanceRepository,
		productRepo repository.ProductRepository,
	) error {
		var err error
		// same lock the movement engine takes first, so a SKU check cannot race a new movement
		product, err = productRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.Errorf(domain.ErrNotFound, "product %d", id)
		}

		if in.SKU != nil {
			sku := entity.NormalizeSKU(*in.SKU)
			if sku == "" {
				return domain.Validationf("sku must not be empty")
			}
			if sku != product.SKU {
				latest, err := movRepo.LatestIDByProduct(ctx, id)
				if err != nil {
					return err
				}
				if latest > 0 {
					return domain.Errorf(domain.ErrLocked, "sku of product %d is locked after its first movement", id)
				}
				other, err := productRepo.GetBySKU(ctx, sku)
				if err != nil {
					return err
				}
				if other != nil && other.ID != id {
					return domain.Errorf(domain.ErrDuplicate, "sku %s already exists", sku)
				}
				product.SKU = sku
			}
		}
		if in.Name != nil {
			product.Name = strings.TrimSpace(*in.Name)
		}
		if in.Category != nil {
			product.Category = strings.TrimSpace(*in.Category)
		}
		if in.Unit != nil {
			if _, err := domaininv.Multiplier(*in.Unit); err != nil {
				return err
			}
			product.Unit = domaininv.NormalizeUnit(*in.Unit)
		}
		if in.Cost != nil {
			if in.Cost.IsNegative() {
				return domain.Validationf("cost must not be negative")
			}
			product.Cost = *in.Cost
		}
		if in.Price != nil {
			product.Price = decimal.NewNullDecimal(*in.Price)
		}
		if !product.CostPolicyOK() {
			return domain.Validationf("MATERIAL products require cost >= %s", entity.MinMaterialCost)
		}
		product.UpdatedAt = uc.now().UTC()
		return productRepo.Update(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	out := dto.ProductFromEntity(product)
	return &out, nil
}

// List pages the catalog, optionally filtered by type, category or a name/SKU search.
func (uc *ProductUseCase) List(ctx context.Context, filter repository.ProductFilter) (*dto.ProductListResponse, error) {
	page := dto.PageRequest{Limit: filter.Limit, Offset: filter.Offset}
	page.Normalize(20, 100)
	filter.Limit, filter.Offset = page.Limit, page.Offset
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, domain.Validationf("unknown product type %q", filter.Type)
	}

	list, total, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := &dto.ProductListResponse{
		Items: make([]dto.ProductResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for _, p := range list {
		out.Items = append(out.Items, dto.ProductFromEntity(p))
	}
	return out, nil
}
