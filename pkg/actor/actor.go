// Package actor carries the authenticated caller through a context and resolves its role.
package actor

import (
	"context"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
)

type ctxKey struct{}

// Actor is the caller identity established by the auth layer.
type Actor struct {
	ID   string
	Role entity.Role
}

// WithActor stores the actor in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the actor stored by WithActor.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}

// ContextResolver resolves the role from the verified token claims placed in the context.
type ContextResolver struct{}

// ResolveRole implements repository.RoleResolver.
func (ContextResolver) ResolveRole(ctx context.Context, actorID string) (entity.Role, error) {
	a, ok := FromContext(ctx)
	if !ok || a.ID != actorID {
		return "", domain.Errorf(domain.ErrUnauthorized, "no verified role for actor %q", actorID)
	}
	return a.Role, nil
}

// StaticResolver resolves roles from a fixed map. Unknown actors get Default when set.
type StaticResolver struct {
	Roles   map[string]entity.Role
	Default entity.Role
}

// ResolveRole implements repository.RoleResolver.
func (s StaticResolver) ResolveRole(_ context.Context, actorID string) (entity.Role, error) {
	if r, ok := s.Roles[actorID]; ok {
		return r, nil
	}
	if s.Default != "" {
		return s.Default, nil
	}
	return "", domain.Errorf(domain.ErrForbidden, "actor %q has no role", actorID)
}
