package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tenantedu/campus/pkg/domain"
)

// CoursesRepository handles course persistence, tenant-scoped.
type CoursesRepository struct {
	db *sql.DB
}

// NewCoursesRepository creates a new courses repository.
func NewCoursesRepository(db *sql.DB) *CoursesRepository {
	return &CoursesRepository{db: db}
}

const courseColumns = `id, tenant_id, instructor_id, code, title, description,
       delivery, duration_weeks, price, currency, is_published,
       created_at, updated_at, deleted_at`

func scanCourse(row *sql.Row) (*domain.Course, error) {
	var c domain.Course
	err := row.Scan(
		&c.ID, &c.TenantID, &c.InstructorID, &c.Code, &c.Title, &c.Description,
		&c.Delivery, &c.DurationWeeks, &c.Price, &c.Currency, &c.IsPublished,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateTx creates a course within a transaction. Course creation always
// runs in the same transaction as the tenant counter increment.
func (r *CoursesRepository) CreateTx(ctx context.Context, q Querier, course *domain.Course) error {
	query := `
		INSERT INTO courses (id, tenant_id, instructor_id, code, title, description,
		                     delivery, duration_weeks, price, currency, is_published,
		                     created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := q.ExecContext(ctx, query,
		course.ID, course.TenantID, course.InstructorID, course.Code,
		course.Title, course.Description, course.Delivery, course.DurationWeeks,
		course.Price, course.Currency, course.IsPublished,
		course.CreatedAt, course.UpdatedAt,
	)
	if IsUniqueViolation(err) {
		return domain.ErrCourseCodeTaken
	}
	return err
}

// GetByID retrieves a course by ID within a tenant. A course belonging to
// another tenant is indistinguishable from an absent one.
func (r *CoursesRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Course, error) {
	query := `SELECT ` + courseColumns + `
		FROM courses WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	return scanCourse(r.db.QueryRowContext(ctx, query, tenantID, id))
}

// ExistsByCode checks if a course code is taken within a tenant.
func (r *CoursesRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM courses WHERE tenant_id = $1 AND code = $2 AND deleted_at IS NULL)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, tenantID, code).Scan(&exists)
	return exists, err
}

// List returns a tenant's courses. When publishedOnly is set, drafts are
// filtered out (the student view).
func (r *CoursesRepository) List(ctx context.Context, tenantID uuid.UUID, publishedOnly bool, limit, offset int) ([]*domain.Course, error) {
	query := `SELECT ` + courseColumns + `
		FROM courses
		WHERE tenant_id = $1 AND deleted_at IS NULL
		  AND ($2 = FALSE OR is_published = TRUE)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, query, tenantID, publishedOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []*domain.Course
	for rows.Next() {
		var c domain.Course
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.InstructorID, &c.Code, &c.Title, &c.Description,
			&c.Delivery, &c.DurationWeeks, &c.Price, &c.Currency, &c.IsPublished,
			&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
		); err != nil {
			return nil, err
		}
		courses = append(courses, &c)
	}
	return courses, rows.Err()
}

// Update updates a course's mutable fields.
func (r *CoursesRepository) Update(ctx context.Context, course *domain.Course) error {
	query := `
		UPDATE courses
		SET title = $3, description = $4, delivery = $5, duration_weeks = $6,
		    price = $7, currency = $8, is_published = $9, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		course.TenantID, course.ID, course.Title, course.Description,
		course.Delivery, course.DurationWeeks, course.Price, course.Currency,
		course.IsPublished,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}

// SoftDeleteTx soft-deletes a course within a transaction, paired with the
// tenant counter decrement.
func (r *CoursesRepository) SoftDeleteTx(ctx context.Context, q Querier, tenantID, id uuid.UUID) error {
	query := `
		UPDATE courses
		SET deleted_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`
	result, err := q.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}
