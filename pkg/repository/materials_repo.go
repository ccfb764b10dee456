package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tenantedu/campus/pkg/domain"
)

// MaterialsRepository handles course material records. Material creation
// always runs in the same transaction as the tenant storage reservation.
type MaterialsRepository struct {
	db *sql.DB
}

// NewMaterialsRepository creates a new materials repository.
func NewMaterialsRepository(db *sql.DB) *MaterialsRepository {
	return &MaterialsRepository{db: db}
}

// CreateTx inserts a material record within a transaction.
func (r *MaterialsRepository) CreateTx(ctx context.Context, q Querier, m *domain.Material) error {
	query := `
		INSERT INTO materials (id, tenant_id, course_id, name, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.ExecContext(ctx, query,
		m.ID, m.TenantID, m.CourseID, m.Name, m.SizeBytes, m.CreatedAt)
	return err
}

// GetByID retrieves a material within a tenant.
func (r *MaterialsRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Material, error) {
	query := `
		SELECT id, tenant_id, course_id, name, size_bytes, created_at
		FROM materials WHERE tenant_id = $1 AND id = $2`
	var m domain.Material
	err := r.db.QueryRowContext(ctx, query, tenantID, id).Scan(
		&m.ID, &m.TenantID, &m.CourseID, &m.Name, &m.SizeBytes, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByCourse returns a course's materials.
func (r *MaterialsRepository) ListByCourse(ctx context.Context, tenantID, courseID uuid.UUID) ([]*domain.Material, error) {
	query := `
		SELECT id, tenant_id, course_id, name, size_bytes, created_at
		FROM materials
		WHERE tenant_id = $1 AND course_id = $2
		ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, tenantID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var materials []*domain.Material
	for rows.Next() {
		var m domain.Material
		if err := rows.Scan(&m.ID, &m.TenantID, &m.CourseID, &m.Name,
			&m.SizeBytes, &m.CreatedAt); err != nil {
			return nil, err
		}
		materials = append(materials, &m)
	}
	return materials, rows.Err()
}

// DeleteTx removes a material within a transaction, paired with the
// tenant storage release.
func (r *MaterialsRepository) DeleteTx(ctx context.Context, q Querier, tenantID, id uuid.UUID) error {
	query := `DELETE FROM materials WHERE tenant_id = $1 AND id = $2`
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
