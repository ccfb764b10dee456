package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tenantedu/campus/pkg/domain"
)

// AssessmentsRepository handles assessment and question persistence,
// tenant-scoped.
type AssessmentsRepository struct {
	db *sql.DB
}

// NewAssessmentsRepository creates a new assessments repository.
func NewAssessmentsRepository(db *sql.DB) *AssessmentsRepository {
	return &AssessmentsRepository{db: db}
}

// Create creates an assessment.
func (r *AssessmentsRepository) Create(ctx context.Context, a *domain.Assessment) error {
	query := `
		INSERT INTO assessments (id, tenant_id, course_id, title, description,
		                         type, total_marks, passing_score, is_published,
		                         created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.TenantID, a.CourseID, a.Title, a.Description,
		a.Type, a.TotalMarks, a.PassingScore, a.IsPublished,
		a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// GetByID retrieves an assessment by ID within a tenant.
func (r *AssessmentsRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Assessment, error) {
	query := `
		SELECT id, tenant_id, course_id, title, description, type,
		       total_marks, passing_score, is_published, created_at, updated_at
		FROM assessments WHERE tenant_id = $1 AND id = $2
	`
	var a domain.Assessment
	err := r.db.QueryRowContext(ctx, query, tenantID, id).Scan(
		&a.ID, &a.TenantID, &a.CourseID, &a.Title, &a.Description, &a.Type,
		&a.TotalMarks, &a.PassingScore, &a.IsPublished, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Publish marks an assessment as published.
func (r *AssessmentsRepository) Publish(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `
		UPDATE assessments SET is_published = TRUE, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`
	result, err := r.db.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAssessmentNotFound
	}
	return nil
}

// AddQuestion appends a question, taking the next order index within the
// assessment.
func (r *AssessmentsRepository) AddQuestion(ctx context.Context, question *domain.Question) error {
	query := `
		INSERT INTO questions (id, assessment_id, type, prompt, options,
		                       correct_answer, marks, order_index, explanation)
		SELECT $1, $2, $3, $4, $5, $6, $7, COALESCE(MAX(order_index), 0) + 1, $8
		FROM questions WHERE assessment_id = $2
		RETURNING order_index
	`
	return r.db.QueryRowContext(ctx, query,
		question.ID, question.AssessmentID, question.Type, question.Prompt,
		pq.Array(question.Options), question.CorrectAnswer, question.Marks,
		question.Explanation,
	).Scan(&question.OrderIndex)
}

// ListQuestions returns an assessment's questions in presentation order.
func (r *AssessmentsRepository) ListQuestions(ctx context.Context, assessmentID uuid.UUID) ([]*domain.Question, error) {
	query := `
		SELECT id, assessment_id, type, prompt, options, correct_answer,
		       marks, order_index, explanation
		FROM questions WHERE assessment_id = $1
		ORDER BY order_index
	`
	rows, err := r.db.QueryContext(ctx, query, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []*domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(
			&q.ID, &q.AssessmentID, &q.Type, &q.Prompt, pq.Array(&q.Options),
			&q.CorrectAnswer, &q.Marks, &q.OrderIndex, &q.Explanation,
		); err != nil {
			return nil, err
		}
		questions = append(questions, &q)
	}
	return questions, rows.Err()
}
