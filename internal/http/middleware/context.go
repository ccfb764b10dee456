package middleware

import (
	"context"

	"github.com/tenantedu/campus/pkg/domain"
)

type contextKey string

const (
	// tenantKey is the context key for the resolved tenant.
	tenantKey contextKey = "tenant"
	// userKey is the context key for the authenticated user.
	userKey contextKey = "user"
)

// WithTenant returns a context carrying the resolved tenant.
func WithTenant(ctx context.Context, tenant *domain.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, tenant)
}

// GetTenant extracts the resolved tenant from the request context.
func GetTenant(ctx context.Context) (*domain.Tenant, bool) {
	tenant, ok := ctx.Value(tenantKey).(*domain.Tenant)
	return tenant, ok
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser extracts the authenticated user from the request context.
func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey).(*domain.User)
	return user, ok
}
