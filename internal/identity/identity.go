// Package identity carries the authenticated principal through a request context.
package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/ssiitsupport/SSI360V2/internal/model"
)

// Principal is the authenticated caller
type Principal struct {
	UserID   uuid.UUID
	Email    string
	Name     string
	TenantID uuid.UUID
}

type principalKey struct{}

// WithPrincipal returns a context carrying p
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx, if any
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Actor names who is acting in ctx for audit attribution
func Actor(ctx context.Context) string {
	if p, ok := FromContext(ctx); ok && p.Email != "" {
		return p.Email
	}
	return model.SystemActor
}
