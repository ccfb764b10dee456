package assessments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tenantedu/campus/internal/http/middleware"
	"github.com/tenantedu/campus/internal/httputil"
	"github.com/tenantedu/campus/pkg/domain"
	"github.com/tenantedu/campus/pkg/repository"
)

// AssessmentStore is the assessment persistence surface the handler
// needs. *repository.AssessmentsRepository satisfies it.
type AssessmentStore interface {
	Create(ctx context.Context, a *domain.Assessment) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Assessment, error)
	Publish(ctx context.Context, tenantID, id uuid.UUID) error
	AddQuestion(ctx context.Context, question *domain.Question) error
	ListQuestions(ctx context.Context, assessmentID uuid.UUID) ([]*domain.Question, error)
}

// AttemptStore is the attempt persistence surface the handler needs.
// *repository.AttemptsRepository satisfies it.
type AttemptStore interface {
	Create(ctx context.Context, a *domain.Attempt) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Attempt, error)
	GetInProgress(ctx context.Context, assessmentID, userID uuid.UUID) (*domain.Attempt, error)
	CreateResponseTx(ctx context.Context, q repository.Querier, resp *domain.Response) error
	FinalizeTx(ctx context.Context, q repository.Querier, a *domain.Attempt) error
	UpdateResponseGradeTx(ctx context.Context, q repository.Querier, attemptID, responseID uuid.UUID, marks int, feedback string) error
	SumMarksTx(ctx context.Context, q repository.Querier, attemptID uuid.UUID) (int, error)
	GradeTx(ctx context.Context, q repository.Querier, a *domain.Attempt) error
	ListResponses(ctx context.Context, attemptID uuid.UUID) ([]*domain.Response, error)
}

// CourseGetter resolves courses for ownership checks.
// *repository.CoursesRepository satisfies it.
type CourseGetter interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Course, error)
}

// EnrollmentChecker gates students on a confirmed enrollment.
// *repository.EnrollmentsRepository satisfies it.
type EnrollmentChecker interface {
	ExistsConfirmed(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
}

// Handler handles assessment, attempt, and grading endpoints.
type Handler struct {
	logger      *slog.Logger
	assessments AssessmentStore
	attempts    AttemptStore
	courses     CourseGetter
	enrollments EnrollmentChecker

	// runTx executes fn transactionally with bounded retry.
	// Overridable in tests.
	runTx func(ctx context.Context, fn func(q repository.Querier) error) error
}

// NewHandler creates a new assessments handler.
func NewHandler(logger *slog.Logger, db *sql.DB, assessments *repository.AssessmentsRepository, attempts *repository.AttemptsRepository, courses *repository.CoursesRepository, enrollments *repository.EnrollmentsRepository) *Handler {
	return &Handler{
		logger:      logger,
		assessments: assessments,
		attempts:    attempts,
		courses:     courses,
		enrollments: enrollments,
		runTx: func(ctx context.Context, fn func(q repository.Querier) error) error {
			return repository.TxRetry(ctx, db, func(tx *sql.Tx) error {
				return fn(tx)
			})
		},
	}
}

// CreateRequest represents an assessment creation request.
type CreateRequest struct {
	CourseID     string `json:"course_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	TotalMarks   int    `json:"total_marks"`
	PassingScore int    `json:"passing_score"`
}

// AssessmentResponse is the JSON shape of an assessment.
type AssessmentResponse struct {
	ID           string `json:"id"`
	CourseID     string `json:"course_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	TotalMarks   int    `json:"total_marks"`
	PassingScore int    `json:"passing_score"`
	IsPublished  bool   `json:"is_published"`
}

func toAssessmentResponse(a *domain.Assessment) AssessmentResponse {
	return AssessmentResponse{
		ID:           a.ID.String(),
		CourseID:     a.CourseID.String(),
		Title:        a.Title,
		Description:  a.Description,
		Type:         string(a.Type),
		TotalMarks:   a.TotalMarks,
		PassingScore: a.PassingScore,
		IsPublished:  a.IsPublished,
	}
}

// Create creates an assessment for a course the caller teaches.
// POST /v1/assessments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Type == "" {
		httputil.Error(w, http.StatusBadRequest, "course_id, title, and type are required")
		return
	}
	if !domain.ValidAssessmentType(domain.AssessmentType(req.Type)) {
		httputil.Error(w, http.StatusBadRequest, "type must be quiz, assignment, exam, or project")
		return
	}
	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "course_id, title, and type are required")
		return
	}

	course, ok := h.ownedCourse(w, r, tenant, user, courseID)
	if !ok {
		return
	}

	totalMarks := req.TotalMarks
	if totalMarks <= 0 {
		totalMarks = 100
	}
	passingScore := req.PassingScore
	if passingScore <= 0 {
		passingScore = 70
	}

	now := time.Now()
	assessment := &domain.Assessment{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		CourseID:     course.ID,
		Title:        req.Title,
		Description:  req.Description,
		Type:         domain.AssessmentType(req.Type),
		TotalMarks:   totalMarks,
		PassingScore: passingScore,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.assessments.Create(r.Context(), assessment); err != nil {
		h.logger.Error("assessment creation failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "assessment creation failed")
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{"assessment": toAssessmentResponse(assessment)})
}

// QuestionResponse is the JSON shape of a question. Answer material is
// included only in the instructor view.
type QuestionResponse struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options,omitempty"`
	Marks         int      `json:"marks"`
	OrderIndex    int      `json:"order_index"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

func toQuestionResponse(q *domain.Question, withAnswers bool) QuestionResponse {
	resp := QuestionResponse{
		ID:         q.ID.String(),
		Type:       string(q.Type),
		Prompt:     q.Prompt,
		Options:    q.Options,
		Marks:      q.Marks,
		OrderIndex: q.OrderIndex,
	}
	if withAnswers {
		resp.CorrectAnswer = q.CorrectAnswer
		resp.Explanation = q.Explanation
	}
	return resp
}

// Get returns an assessment. Students need a confirmed enrollment in the
// course and never see the answer key.
// GET /v1/assessments/{assessmentID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	assessment, ok := h.find(w, r, tenant.ID)
	if !ok {
		return
	}

	if user.Role == domain.RoleStudent {
		if !h.requireEnrollment(w, r, user.ID, assessment.CourseID) {
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]any{"assessment": toAssessmentResponse(assessment)})
		return
	}

	questions, err := h.assessments.ListQuestions(r.Context(), assessment.ID)
	if err != nil {
		h.logger.Error("question list failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "assessment lookup failed")
		return
	}
	qs := make([]QuestionResponse, 0, len(questions))
	for _, q := range questions {
		qs = append(qs, toQuestionResponse(q, true))
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"assessment": toAssessmentResponse(assessment),
		"questions":  qs,
	})
}

// Publish marks an assessment as published.
// POST /v1/assessments/{assessmentID}/publish
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	assessment, ok := h.find(w, r, tenant.ID)
	if !ok {
		return
	}
	if _, ok := h.ownedCourse(w, r, tenant, user, assessment.CourseID); !ok {
		return
	}

	if err := h.assessments.Publish(r.Context(), tenant.ID, assessment.ID); err != nil {
		h.logger.Error("assessment publish failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "assessment publish failed")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "assessment published"})
}

// AddQuestionRequest represents a question to append to an assessment.
type AddQuestionRequest struct {
	Type          string   `json:"type"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Marks         int      `json:"marks"`
	Explanation   string   `json:"explanation"`
}

// AddQuestion appends a question to an assessment the caller teaches.
// POST /v1/assessments/{assessmentID}/questions
func (h *Handler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	assessment, ok := h.find(w, r, tenant.ID)
	if !ok {
		return
	}
	if _, ok := h.ownedCourse(w, r, tenant, user, assessment.CourseID); !ok {
		return
	}

	var req AddQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" || req.Marks < 1 {
		httputil.Error(w, http.StatusBadRequest, "prompt and positive marks are required")
		return
	}
	qType := domain.QuestionType(req.Type)
	if !domain.ValidQuestionType(qType) {
		httputil.Error(w, http.StatusBadRequest, "type must be mcq, tf, short, essay, or code")
		return
	}
	if qType.Objective() && req.CorrectAnswer == "" {
		httputil.Error(w, http.StatusBadRequest, "objective questions require a correct_answer")
		return
	}
	if qType == domain.QuestionMCQ && len(req.Options) < 2 {
		httputil.Error(w, http.StatusBadRequest, "mcq questions require at least two options")
		return
	}

	question := &domain.Question{
		ID:            uuid.New(),
		AssessmentID:  assessment.ID,
		Type:          qType,
		Prompt:        req.Prompt,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Marks:         req.Marks,
		Explanation:   req.Explanation,
	}
	if err := h.assessments.AddQuestion(r.Context(), question); err != nil {
		h.logger.Error("question creation failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "question creation failed")
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{"question": toQuestionResponse(question, true)})
}

// AttemptResponse is the JSON shape of an attempt.
type AttemptResponse struct {
	ID            string `json:"id"`
	AssessmentID  string `json:"assessment_id"`
	Status        string `json:"status"`
	TotalMarks    int    `json:"total_marks"`
	MarksObtained int    `json:"marks_obtained"`
	Percentage    string `json:"percentage"`
	StartedAt     string `json:"started_at"`
}

func toAttemptResponse(a *domain.Attempt) AttemptResponse {
	return AttemptResponse{
		ID:            a.ID.String(),
		AssessmentID:  a.AssessmentID.String(),
		Status:        string(a.Status),
		TotalMarks:    a.TotalMarks,
		MarksObtained: a.MarksObtained,
		Percentage:    a.Percentage.StringFixed(2),
		StartedAt:     a.StartedAt.Format(time.RFC3339),
	}
}

// Start opens an attempt at a published assessment for an enrolled user
// and hands out the questions without the answer key. Starting again
// while an attempt is open returns the open attempt.
// POST /v1/assessments/{assessmentID}/start
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	assessment, ok := h.find(w, r, tenant.ID)
	if !ok {
		return
	}
	if !assessment.IsPublished {
		httputil.Error(w, http.StatusNotFound, "assessment not found")
		return
	}
	if !h.requireEnrollment(w, r, user.ID, assessment.CourseID) {
		return
	}

	attempt, err := h.attempts.GetInProgress(r.Context(), assessment.ID, user.ID)
	if errors.Is(err, domain.ErrAttemptNotFound) {
		attempt = &domain.Attempt{
			ID:           uuid.New(),
			TenantID:     tenant.ID,
			AssessmentID: assessment.ID,
			UserID:       user.ID,
			Status:       domain.AttemptInProgress,
			TotalMarks:   assessment.TotalMarks,
			StartedAt:    time.Now(),
		}
		err = h.attempts.Create(r.Context(), attempt)
	}
	if err != nil {
		h.logger.Error("attempt start failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "attempt start failed")
		return
	}

	questions, err := h.assessments.ListQuestions(r.Context(), assessment.ID)
	if err != nil {
		h.logger.Error("question list failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "attempt start failed")
		return
	}
	qs := make([]QuestionResponse, 0, len(questions))
	for _, q := range questions {
		qs = append(qs, toQuestionResponse(q, false))
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"attempt":   toAttemptResponse(attempt),
		"questions": qs,
	})
}

// SubmitRequest carries a student's answers.
type SubmitRequest struct {
	Responses []struct {
		QuestionID string `json:"question_id"`
		Answer     string `json:"answer"`
	} `json:"responses"`
}

// Submit closes the caller's attempt and tallies the score. Objective
// questions are scored immediately; subjective ones hold full marks
// until graded.
// POST /v1/attempts/{attemptID}/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	attempt, ok := h.findAttempt(w, r, tenant.ID)
	if !ok {
		return
	}
	if attempt.UserID != user.ID {
		httputil.Error(w, http.StatusForbidden, "access denied")
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Responses) == 0 {
		httputil.Error(w, http.StatusBadRequest, "responses are required")
		return
	}

	answers := make(map[uuid.UUID]string, len(req.Responses))
	for _, resp := range req.Responses {
		id, err := uuid.Parse(resp.QuestionID)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid question_id")
			return
		}
		answers[id] = resp.Answer
	}

	questions, err := h.assessments.ListQuestions(r.Context(), attempt.AssessmentID)
	if err != nil {
		h.logger.Error("question list failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "submission failed")
		return
	}

	now := time.Now()
	responses, obtained := domain.ScoreSubmission(attempt.ID, questions, answers, now)
	attempt.Finalize(obtained, domain.AttemptSubmitted, now)

	err = h.runTx(r.Context(), func(q repository.Querier) error {
		if err := h.attempts.FinalizeTx(r.Context(), q, attempt); err != nil {
			return err
		}
		for _, resp := range responses {
			if err := h.attempts.CreateResponseTx(r.Context(), q, resp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAttemptClosed) {
			httputil.Error(w, http.StatusConflict, "attempt already submitted")
			return
		}
		h.logger.Error("submission failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "submission failed")
		return
	}

	assessment, err := h.assessments.GetByID(r.Context(), tenant.ID, attempt.AssessmentID)
	if err != nil {
		h.logger.Error("assessment lookup failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "submission failed")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"result": map[string]any{
			"attempt_id":     attempt.ID.String(),
			"total_marks":    attempt.TotalMarks,
			"marks_obtained": attempt.MarksObtained,
			"percentage":     attempt.Percentage.StringFixed(2),
			"status":         string(attempt.Status),
			"passed":         attempt.Passed(assessment.PassingScore),
		},
	})
}

// GradeRequest carries instructor marks for subjective responses.
type GradeRequest struct {
	Grades []struct {
		ResponseID string `json:"response_id"`
		Marks      int    `json:"marks"`
		Feedback   string `json:"feedback"`
	} `json:"grades"`
}

// Grade overwrites marks on an attempt's responses and re-tallies the
// score, moving the attempt to graded.
// POST /v1/attempts/{attemptID}/grade
func (h *Handler) Grade(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	attempt, ok := h.findAttempt(w, r, tenant.ID)
	if !ok {
		return
	}
	if attempt.Status == domain.AttemptInProgress {
		httputil.Error(w, http.StatusConflict, "attempt not yet submitted")
		return
	}

	assessment, err := h.assessments.GetByID(r.Context(), tenant.ID, attempt.AssessmentID)
	if err != nil {
		h.logger.Error("assessment lookup failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "grading failed")
		return
	}
	if _, ok := h.ownedCourse(w, r, tenant, user, assessment.CourseID); !ok {
		return
	}

	var req GradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Grades) == 0 {
		httputil.Error(w, http.StatusBadRequest, "grades are required")
		return
	}
	for _, g := range req.Grades {
		if g.Marks < 0 {
			httputil.Error(w, http.StatusBadRequest, "marks cannot be negative")
			return
		}
	}

	err = h.runTx(r.Context(), func(q repository.Querier) error {
		for _, g := range req.Grades {
			responseID, err := uuid.Parse(g.ResponseID)
			if err != nil {
				return domain.ErrAttemptNotFound
			}
			if err := h.attempts.UpdateResponseGradeTx(r.Context(), q, attempt.ID, responseID, g.Marks, g.Feedback); err != nil {
				return err
			}
		}
		obtained, err := h.attempts.SumMarksTx(r.Context(), q, attempt.ID)
		if err != nil {
			return err
		}
		attempt.Finalize(obtained, domain.AttemptGraded, time.Now())
		return h.attempts.GradeTx(r.Context(), q, attempt)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAttemptNotFound) {
			httputil.Error(w, http.StatusNotFound, "response not found")
			return
		}
		h.logger.Error("grading failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "grading failed")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"attempt": toAttemptResponse(attempt)})
}

// GetAttempt returns an attempt with its responses. Access: the owning
// user or an instructor and above.
// GET /v1/attempts/{attemptID}
func (h *Handler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	attempt, ok := h.findAttempt(w, r, tenant.ID)
	if !ok {
		return
	}
	if attempt.UserID != user.ID && !domain.InstructorOrAbove.Contains(user.Role) {
		httputil.Error(w, http.StatusForbidden, "access denied")
		return
	}

	responses, err := h.attempts.ListResponses(r.Context(), attempt.ID)
	if err != nil {
		h.logger.Error("response list failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "attempt lookup failed")
		return
	}

	resp := make([]map[string]any, 0, len(responses))
	for _, re := range responses {
		resp = append(resp, map[string]any{
			"id":            re.ID.String(),
			"question_id":   re.QuestionID.String(),
			"answer":        re.Answer,
			"marks_awarded": re.MarksAwarded,
			"feedback":      re.Feedback,
		})
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"attempt":   toAttemptResponse(attempt),
		"responses": resp,
	})
}

// ownedCourse resolves a course and checks the caller may manage its
// assessments: the teaching instructor, or an admin and above.
func (h *Handler) ownedCourse(w http.ResponseWriter, r *http.Request, tenant *domain.Tenant, user *domain.User, courseID uuid.UUID) (*domain.Course, bool) {
	course, err := h.courses.GetByID(r.Context(), tenant.ID, courseID)
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			httputil.Error(w, http.StatusNotFound, "course not found")
		} else {
			h.logger.Error("course lookup failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "course lookup failed")
		}
		return nil, false
	}
	if course.InstructorID != user.ID && !domain.AdminOrAbove.Contains(user.Role) {
		httputil.Error(w, http.StatusForbidden, "access denied")
		return nil, false
	}
	return course, true
}

func (h *Handler) requireEnrollment(w http.ResponseWriter, r *http.Request, userID, courseID uuid.UUID) bool {
	enrolled, err := h.enrollments.ExistsConfirmed(r.Context(), userID, courseID)
	if err != nil {
		h.logger.Error("enrollment check failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "enrollment check failed")
		return false
	}
	if !enrolled {
		httputil.Error(w, http.StatusForbidden, domain.ErrNotEnrolled.Error())
		return false
	}
	return true
}

func (h *Handler) find(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) (*domain.Assessment, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "assessmentID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid assessment id")
		return nil, false
	}
	assessment, err := h.assessments.GetByID(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, domain.ErrAssessmentNotFound) {
			httputil.Error(w, http.StatusNotFound, "assessment not found")
		} else {
			h.logger.Error("assessment lookup failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "assessment lookup failed")
		}
		return nil, false
	}
	return assessment, true
}

func (h *Handler) findAttempt(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) (*domain.Attempt, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "attemptID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid attempt id")
		return nil, false
	}
	attempt, err := h.attempts.GetByID(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, domain.ErrAttemptNotFound) {
			httputil.Error(w, http.StatusNotFound, "attempt not found")
		} else {
			h.logger.Error("attempt lookup failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "attempt lookup failed")
		}
		return nil, false
	}
	return attempt, true
}
