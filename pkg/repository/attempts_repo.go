package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tenantedu/campus/pkg/domain"
)

// AttemptsRepository handles assessment attempts and their responses.
type AttemptsRepository struct {
	db *sql.DB
}

// NewAttemptsRepository creates a new attempts repository.
func NewAttemptsRepository(db *sql.DB) *AttemptsRepository {
	return &AttemptsRepository{db: db}
}

const attemptColumns = `id, tenant_id, assessment_id, user_id, status,
       total_marks, marks_obtained, percentage, started_at, submitted_at`

func scanAttempt(row *sql.Row) (*domain.Attempt, error) {
	var a domain.Attempt
	err := row.Scan(
		&a.ID, &a.TenantID, &a.AssessmentID, &a.UserID, &a.Status,
		&a.TotalMarks, &a.MarksObtained, &a.Percentage, &a.StartedAt, &a.SubmittedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create creates an attempt.
func (r *AttemptsRepository) Create(ctx context.Context, a *domain.Attempt) error {
	query := `
		INSERT INTO attempts (id, tenant_id, assessment_id, user_id, status,
		                      total_marks, marks_obtained, percentage, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.TenantID, a.AssessmentID, a.UserID, a.Status,
		a.TotalMarks, a.MarksObtained, a.Percentage, a.StartedAt,
	)
	return err
}

// GetByID retrieves an attempt by ID within a tenant.
func (r *AttemptsRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Attempt, error) {
	query := `SELECT ` + attemptColumns + `
		FROM attempts WHERE tenant_id = $1 AND id = $2`
	return scanAttempt(r.db.QueryRowContext(ctx, query, tenantID, id))
}

// GetInProgress returns the user's open attempt at an assessment, if any.
func (r *AttemptsRepository) GetInProgress(ctx context.Context, assessmentID, userID uuid.UUID) (*domain.Attempt, error) {
	query := `SELECT ` + attemptColumns + `
		FROM attempts
		WHERE assessment_id = $1 AND user_id = $2 AND status = 'in_progress'`
	return scanAttempt(r.db.QueryRowContext(ctx, query, assessmentID, userID))
}

// CreateResponseTx records one answered question within a transaction,
// paired with the attempt finalization.
func (r *AttemptsRepository) CreateResponseTx(ctx context.Context, q Querier, resp *domain.Response) error {
	query := `
		INSERT INTO responses (id, attempt_id, question_id, answer,
		                       marks_awarded, feedback, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.ExecContext(ctx, query,
		resp.ID, resp.AttemptID, resp.QuestionID, resp.Answer,
		resp.MarksAwarded, resp.Feedback, resp.SubmittedAt,
	)
	return err
}

// FinalizeTx moves an in_progress attempt to its scored state. A second
// submission of the same attempt finds no open row and fails with
// ErrAttemptClosed.
func (r *AttemptsRepository) FinalizeTx(ctx context.Context, q Querier, a *domain.Attempt) error {
	query := `
		UPDATE attempts
		SET status = $3, marks_obtained = $4, percentage = $5, submitted_at = $6
		WHERE tenant_id = $1 AND id = $2 AND status = 'in_progress'
	`
	result, err := q.ExecContext(ctx, query,
		a.TenantID, a.ID, a.Status, a.MarksObtained, a.Percentage, a.SubmittedAt,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAttemptClosed
	}
	return nil
}

// UpdateResponseGradeTx sets an instructor's marks and feedback on one
// response of an attempt.
func (r *AttemptsRepository) UpdateResponseGradeTx(ctx context.Context, q Querier, attemptID, responseID uuid.UUID, marks int, feedback string) error {
	query := `
		UPDATE responses SET marks_awarded = $3, feedback = $4
		WHERE attempt_id = $1 AND id = $2
	`
	result, err := q.ExecContext(ctx, query, attemptID, responseID, marks, feedback)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

// SumMarksTx tallies the marks awarded across an attempt's responses.
func (r *AttemptsRepository) SumMarksTx(ctx context.Context, q Querier, attemptID uuid.UUID) (int, error) {
	query := `SELECT COALESCE(SUM(marks_awarded), 0) FROM responses WHERE attempt_id = $1`
	var total int
	err := q.QueryRowContext(ctx, query, attemptID).Scan(&total)
	return total, err
}

// GradeTx overwrites an attempt's score after instructor grading.
func (r *AttemptsRepository) GradeTx(ctx context.Context, q Querier, a *domain.Attempt) error {
	query := `
		UPDATE attempts
		SET status = $3, marks_obtained = $4, percentage = $5
		WHERE tenant_id = $1 AND id = $2 AND status IN ('submitted', 'graded')
	`
	result, err := q.ExecContext(ctx, query,
		a.TenantID, a.ID, a.Status, a.MarksObtained, a.Percentage,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

// ListResponses returns an attempt's responses in question order.
func (r *AttemptsRepository) ListResponses(ctx context.Context, attemptID uuid.UUID) ([]*domain.Response, error) {
	query := `
		SELECT r.id, r.attempt_id, r.question_id, r.answer,
		       r.marks_awarded, r.feedback, r.submitted_at
		FROM responses r
		JOIN questions q ON q.id = r.question_id
		WHERE r.attempt_id = $1
		ORDER BY q.order_index
	`
	rows, err := r.db.QueryContext(ctx, query, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []*domain.Response
	for rows.Next() {
		var resp domain.Response
		if err := rows.Scan(
			&resp.ID, &resp.AttemptID, &resp.QuestionID, &resp.Answer,
			&resp.MarksAwarded, &resp.Feedback, &resp.SubmittedAt,
		); err != nil {
			return nil, err
		}
		responses = append(responses, &resp)
	}
	return responses, rows.Err()
}
