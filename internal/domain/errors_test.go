package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
)

func TestInsufficientStockIsConflict(t *testing.T) {
	err := fmt.Errorf("execute: %w", &domain.InsufficientStockError{
		ProductID: 7,
		Available: decimal.NewFromInt(3),
		Requested: decimal.NewFromInt(5),
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.ErrorIs(t, err, domain.ErrConflict)

	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.True(t, ise.Available.Equal(decimal.NewFromInt(3)))
	assert.Contains(t, err.Error(), "requested 5")
}

func TestErrorfKeepsKind(t *testing.T) {
	err := domain.Validationf("quantity must be positive, got %d", -1)

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "validation failed: quantity must be positive, got -1", err.Error())
}

func TestUnsupportedUnitIsUnsupportedOperation(t *testing.T) {
	assert.ErrorIs(t, domain.ErrUnsupportedUnit, domain.ErrUnsupportedOperation)
	assert.ErrorIs(t, domain.ErrPersistence, domain.ErrConflict)
	assert.ErrorIs(t, domain.ErrNotLatestMovement, domain.ErrConflict)
}
