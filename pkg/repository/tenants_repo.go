package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tenantedu/campus/pkg/domain"
)

// TenantsRepository handles tenant persistence, including the usage
// counters that back entitlement enforcement.
type TenantsRepository struct {
	db *sql.DB
}

// NewTenantsRepository creates a new tenants repository.
func NewTenantsRepository(db *sql.DB) *TenantsRepository {
	return &TenantsRepository{db: db}
}

const tenantColumns = `id, name, slug, subdomain, status, subscription_tier,
       student_count, course_count, storage_used_bytes,
       created_at, updated_at, deleted_at`

func scanTenant(row *sql.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.Subdomain, &t.Status, &t.Tier,
		&t.StudentCount, &t.CourseCount, &t.StorageUsedBytes,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTx creates a new tenant within a transaction.
func (r *TenantsRepository) CreateTx(ctx context.Context, q Querier, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, slug, subdomain, status, subscription_tier,
		                     student_count, course_count, storage_used_bytes,
		                     created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := q.ExecContext(ctx, query,
		tenant.ID, tenant.Name, tenant.Slug, tenant.Subdomain,
		tenant.Status, tenant.Tier,
		tenant.StudentCount, tenant.CourseCount, tenant.StorageUsedBytes,
		tenant.CreatedAt, tenant.UpdatedAt,
	)
	if IsUniqueViolation(err) {
		return domain.ErrSlugTaken
	}
	return err
}

// GetByID retrieves a tenant by ID.
func (r *TenantsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1 AND deleted_at IS NULL`
	return scanTenant(r.db.QueryRowContext(ctx, query, id))
}

// GetBySubdomain retrieves a tenant by its exact subdomain string.
func (r *TenantsRepository) GetBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE subdomain = $1 AND deleted_at IS NULL`
	return scanTenant(r.db.QueryRowContext(ctx, query, subdomain))
}

// ExistsBySlug checks if a tenant exists with the given slug.
func (r *TenantsRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM tenants WHERE slug = $1 AND deleted_at IS NULL)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, slug).Scan(&exists)
	return exists, err
}

// UpdateSubscriptionTier changes a tenant's plan.
func (r *TenantsRepository) UpdateSubscriptionTier(ctx context.Context, id uuid.UUID, tier domain.SubscriptionTier) error {
	query := `
		UPDATE tenants
		SET subscription_tier = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, tier)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

// IncrementCourseCountTx bumps the course counter only if it is still
// under limit. limit uses domain.Unlimited for no cap. The conditional
// UPDATE makes check-then-act atomic: two concurrent creations at the
// boundary cannot both pass.
func (r *TenantsRepository) IncrementCourseCountTx(ctx context.Context, q Querier, id uuid.UUID, limit int) error {
	query := `
		UPDATE tenants
		SET course_count = course_count + 1, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND ($2 = -1 OR course_count < $2)
	`
	result, err := q.ExecContext(ctx, query, id, limit)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrCourseLimitReached
	}
	return nil
}

// DecrementCourseCountTx releases one course slot.
func (r *TenantsRepository) DecrementCourseCountTx(ctx context.Context, q Querier, id uuid.UUID) error {
	query := `
		UPDATE tenants
		SET course_count = GREATEST(course_count - 1, 0), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := q.ExecContext(ctx, query, id)
	return err
}

// IncrementStudentCountTx bumps the student counter only if still under limit.
func (r *TenantsRepository) IncrementStudentCountTx(ctx context.Context, q Querier, id uuid.UUID, limit int) error {
	query := `
		UPDATE tenants
		SET student_count = student_count + 1, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND ($2 = -1 OR student_count < $2)
	`
	result, err := q.ExecContext(ctx, query, id, limit)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrStudentLimitReached
	}
	return nil
}

// ReserveStorageTx adds bytes to the storage counter only if the total
// stays within limit.
func (r *TenantsRepository) ReserveStorageTx(ctx context.Context, q Querier, id uuid.UUID, bytes, limit int64) error {
	query := `
		UPDATE tenants
		SET storage_used_bytes = storage_used_bytes + $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND storage_used_bytes + $2 <= $3
	`
	result, err := q.ExecContext(ctx, query, id, bytes, limit)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrStorageLimitReached
	}
	return nil
}

// ReleaseStorageTx subtracts bytes from the storage counter.
func (r *TenantsRepository) ReleaseStorageTx(ctx context.Context, q Querier, id uuid.UUID, bytes int64) error {
	query := `
		UPDATE tenants
		SET storage_used_bytes = GREATEST(storage_used_bytes - $2, 0), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := q.ExecContext(ctx, query, id, bytes)
	return err
}
