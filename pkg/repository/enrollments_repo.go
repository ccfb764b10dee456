package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tenantedu/campus/pkg/domain"
)

// EnrollmentsRepository handles enrollment persistence, tenant-scoped.
type EnrollmentsRepository struct {
	db *sql.DB
}

// NewEnrollmentsRepository creates a new enrollments repository.
func NewEnrollmentsRepository(db *sql.DB) *EnrollmentsRepository {
	return &EnrollmentsRepository{db: db}
}

const enrollmentColumns = `id, tenant_id, user_id, course_id, status, progress,
       enrolled_at, confirmed_at, updated_at`

func scanEnrollment(row *sql.Row) (*domain.Enrollment, error) {
	var e domain.Enrollment
	err := row.Scan(
		&e.ID, &e.TenantID, &e.UserID, &e.CourseID, &e.Status, &e.Progress,
		&e.EnrolledAt, &e.ConfirmedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create creates a new enrollment.
func (r *EnrollmentsRepository) Create(ctx context.Context, e *domain.Enrollment) error {
	query := `
		INSERT INTO enrollments (id, tenant_id, user_id, course_id, status, progress,
		                         enrolled_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.TenantID, e.UserID, e.CourseID, e.Status, e.Progress,
		e.EnrolledAt, e.UpdatedAt,
	)
	if IsUniqueViolation(err) {
		return domain.ErrAlreadyEnrolled
	}
	return err
}

// GetByID retrieves an enrollment by ID within a tenant.
func (r *EnrollmentsRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + `
		FROM enrollments WHERE tenant_id = $1 AND id = $2`
	return scanEnrollment(r.db.QueryRowContext(ctx, query, tenantID, id))
}

// ExistsByUserAndCourse checks for an existing enrollment.
func (r *EnrollmentsRepository) ExistsByUserAndCourse(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(&exists)
	return exists, err
}

// ExistsConfirmed checks for a confirmed enrollment, the prerequisite
// for taking a course's assessments.
func (r *EnrollmentsRepository) ExistsConfirmed(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM enrollments
		WHERE user_id = $1 AND course_id = $2 AND status = 'confirmed')`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(&exists)
	return exists, err
}

// ListByUser returns a user's enrollments, newest first.
func (r *EnrollmentsRepository) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]*domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY enrolled_at DESC`
	return r.list(ctx, query, tenantID, userID)
}

// ListByTenant returns all of a tenant's enrollments, newest first.
func (r *EnrollmentsRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE tenant_id = $1
		ORDER BY enrolled_at DESC
		LIMIT $2 OFFSET $3`
	return r.list(ctx, query, tenantID, limit, offset)
}

func (r *EnrollmentsRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []*domain.Enrollment
	for rows.Next() {
		var e domain.Enrollment
		if err := rows.Scan(
			&e.ID, &e.TenantID, &e.UserID, &e.CourseID, &e.Status, &e.Progress,
			&e.EnrolledAt, &e.ConfirmedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, &e)
	}
	return enrollments, rows.Err()
}

// Confirm marks an enrollment as confirmed.
func (r *EnrollmentsRepository) Confirm(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `
		UPDATE enrollments
		SET status = $3, confirmed_at = NOW(), updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`
	result, err := r.db.ExecContext(ctx, query, tenantID, id, domain.EnrollmentStatusConfirmed)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrEnrollmentNotFound
	}
	return nil
}

// UpdateProgress sets the progress percentage, marking completion at 100.
func (r *EnrollmentsRepository) UpdateProgress(ctx context.Context, tenantID, id uuid.UUID, progress int) error {
	query := `
		UPDATE enrollments
		SET progress = $3,
		    status = CASE WHEN $3 >= 100 THEN 'completed' ELSE status END,
		    updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`
	result, err := r.db.ExecContext(ctx, query, tenantID, id, progress)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrEnrollmentNotFound
	}
	return nil
}
