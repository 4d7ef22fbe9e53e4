package actor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
)

func TestContextResolver(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{ID: "u-1", Role: entity.RoleManager})

	role, err := ContextResolver{}.ResolveRole(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleManager, role)

	_, err = ContextResolver{}.ResolveRole(ctx, "u-2")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = ContextResolver{}.ResolveRole(context.Background(), "u-1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestStaticResolver(t *testing.T) {
	r := StaticResolver{Roles: map[string]entity.Role{"owner": entity.RoleOwner}}

	role, err := r.ResolveRole(context.Background(), "owner")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleOwner, role)

	_, err = r.ResolveRole(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	r.Default = entity.RoleStaff
	role, err = r.ResolveRole(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleStaff, role)
}
