package domain

import (
	"time"

	"github.com/google/uuid"
)

// TenantStatus represents the activation state of a tenant.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusInactive  TenantStatus = "inactive"
	TenantStatusSuspended TenantStatus = "suspended"
)

// SubscriptionTier represents a tenant's plan.
type SubscriptionTier string

const (
	TierFree         SubscriptionTier = "free"
	TierStarter      SubscriptionTier = "starter"
	TierProfessional SubscriptionTier = "professional"
	TierEnterprise   SubscriptionTier = "enterprise"
)

// ValidTier reports whether t is one of the four known tiers.
func ValidTier(t SubscriptionTier) bool {
	switch t {
	case TierFree, TierStarter, TierProfessional, TierEnterprise:
		return true
	}
	return false
}

// Tenant represents an isolated institutional customer. All data is
// partitioned by tenant ID; the subdomain is always slug + "." + main domain.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	Subdomain string
	Status    TenantStatus
	Tier      SubscriptionTier

	// Usage counters, maintained by the store's conditional increments.
	StudentCount     int
	CourseCount      int
	StorageUsedBytes int64

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// IsActive returns true if tenant-scoped requests may proceed.
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive && t.DeletedAt == nil
}

// Entitlements returns the entitlement snapshot for the tenant's tier.
func (t *Tenant) Entitlements() Entitlements {
	return EntitlementsForTier(t.Tier)
}
