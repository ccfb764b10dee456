package assessments

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tenantedu/campus/internal/http/middleware"
	"github.com/tenantedu/campus/pkg/domain"
	"github.com/tenantedu/campus/pkg/repository"
)

type fakeAssessmentStore struct {
	byID      map[uuid.UUID]*domain.Assessment
	questions []*domain.Question
}

func (s *fakeAssessmentStore) Create(ctx context.Context, a *domain.Assessment) error {
	s.byID[a.ID] = a
	return nil
}

func (s *fakeAssessmentStore) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Assessment, error) {
	a, ok := s.byID[id]
	if !ok || a.TenantID != tenantID {
		return nil, domain.ErrAssessmentNotFound
	}
	return a, nil
}

func (s *fakeAssessmentStore) Publish(ctx context.Context, tenantID, id uuid.UUID) error {
	a, err := s.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	a.IsPublished = true
	return nil
}

func (s *fakeAssessmentStore) AddQuestion(ctx context.Context, question *domain.Question) error {
	question.OrderIndex = len(s.questions) + 1
	s.questions = append(s.questions, question)
	return nil
}

func (s *fakeAssessmentStore) ListQuestions(ctx context.Context, assessmentID uuid.UUID) ([]*domain.Question, error) {
	var out []*domain.Question
	for _, q := range s.questions {
		if q.AssessmentID == assessmentID {
			out = append(out, q)
		}
	}
	return out, nil
}

type fakeAttemptStore struct {
	byID      map[uuid.UUID]*domain.Attempt
	responses []*domain.Response
}

func (s *fakeAttemptStore) Create(ctx context.Context, a *domain.Attempt) error {
	s.byID[a.ID] = a
	return nil
}

func (s *fakeAttemptStore) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Attempt, error) {
	a, ok := s.byID[id]
	if !ok || a.TenantID != tenantID {
		return nil, domain.ErrAttemptNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *fakeAttemptStore) GetInProgress(ctx context.Context, assessmentID, userID uuid.UUID) (*domain.Attempt, error) {
	for _, a := range s.byID {
		if a.AssessmentID == assessmentID && a.UserID == userID && a.Status == domain.AttemptInProgress {
			return a, nil
		}
	}
	return nil, domain.ErrAttemptNotFound
}

func (s *fakeAttemptStore) CreateResponseTx(ctx context.Context, q repository.Querier, resp *domain.Response) error {
	s.responses = append(s.responses, resp)
	return nil
}

func (s *fakeAttemptStore) FinalizeTx(ctx context.Context, q repository.Querier, a *domain.Attempt) error {
	stored, ok := s.byID[a.ID]
	if !ok || stored.Status != domain.AttemptInProgress {
		return domain.ErrAttemptClosed
	}
	*stored = *a
	return nil
}

func (s *fakeAttemptStore) UpdateResponseGradeTx(ctx context.Context, q repository.Querier, attemptID, responseID uuid.UUID, marks int, feedback string) error {
	for _, r := range s.responses {
		if r.ID == responseID && r.AttemptID == attemptID {
			r.MarksAwarded = marks
			r.Feedback = feedback
			return nil
		}
	}
	return domain.ErrAttemptNotFound
}

func (s *fakeAttemptStore) SumMarksTx(ctx context.Context, q repository.Querier, attemptID uuid.UUID) (int, error) {
	var total int
	for _, r := range s.responses {
		if r.AttemptID == attemptID {
			total += r.MarksAwarded
		}
	}
	return total, nil
}

func (s *fakeAttemptStore) GradeTx(ctx context.Context, q repository.Querier, a *domain.Attempt) error {
	stored, ok := s.byID[a.ID]
	if !ok || stored.Status == domain.AttemptInProgress {
		return domain.ErrAttemptNotFound
	}
	*stored = *a
	return nil
}

func (s *fakeAttemptStore) ListResponses(ctx context.Context, attemptID uuid.UUID) ([]*domain.Response, error) {
	var out []*domain.Response
	for _, r := range s.responses {
		if r.AttemptID == attemptID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeCourseGetter struct {
	course *domain.Course
}

func (s *fakeCourseGetter) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Course, error) {
	if s.course == nil || s.course.ID != id || s.course.TenantID != tenantID {
		return nil, domain.ErrCourseNotFound
	}
	return s.course, nil
}

type fakeEnrollmentChecker struct {
	enrolled map[uuid.UUID]bool
}

func (s *fakeEnrollmentChecker) ExistsConfirmed(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	return s.enrolled[userID], nil
}

type testEnv struct {
	h           *Handler
	assessments *fakeAssessmentStore
	attempts    *fakeAttemptStore
	enrollments *fakeEnrollmentChecker
	tenant      *domain.Tenant
	instructor  *domain.User
	student     *domain.User
	course      *domain.Course
	assessment  *domain.Assessment
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tenant := &domain.Tenant{ID: uuid.New(), Status: domain.TenantStatusActive, Tier: domain.TierFree}
	instructor := &domain.User{ID: uuid.New(), TenantID: tenant.ID, Role: domain.RoleInstructor, Status: domain.UserStatusActive}
	student := &domain.User{ID: uuid.New(), TenantID: tenant.ID, Role: domain.RoleStudent, Status: domain.UserStatusActive}
	course := &domain.Course{ID: uuid.New(), TenantID: tenant.ID, InstructorID: instructor.ID, IsPublished: true}
	assessment := &domain.Assessment{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		CourseID:     course.ID,
		Title:        "Midterm",
		Type:         domain.AssessmentQuiz,
		TotalMarks:   10,
		PassingScore: 70,
		IsPublished:  true,
	}

	assessments := &fakeAssessmentStore{byID: map[uuid.UUID]*domain.Assessment{assessment.ID: assessment}}
	attempts := &fakeAttemptStore{byID: map[uuid.UUID]*domain.Attempt{}}
	enrollments := &fakeEnrollmentChecker{enrolled: map[uuid.UUID]bool{student.ID: true}}

	h := &Handler{
		logger:      slog.Default(),
		assessments: assessments,
		attempts:    attempts,
		courses:     &fakeCourseGetter{course: course},
		enrollments: enrollments,
		runTx: func(ctx context.Context, fn func(q repository.Querier) error) error {
			return fn(nil)
		},
	}

	return &testEnv{
		h:           h,
		assessments: assessments,
		attempts:    attempts,
		enrollments: enrollments,
		tenant:      tenant,
		instructor:  instructor,
		student:     student,
		course:      course,
		assessment:  assessment,
	}
}

func (e *testEnv) request(t *testing.T, method, target string, body any, user *domain.User, params map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	ctx := middleware.WithTenant(r.Context(), e.tenant)
	ctx = middleware.WithUser(ctx, user)
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return r.WithContext(ctx)
}

func (e *testEnv) addQuestion(qType domain.QuestionType, correct string, marks int) *domain.Question {
	q := &domain.Question{
		ID:            uuid.New(),
		AssessmentID:  e.assessment.ID,
		Type:          qType,
		Prompt:        "prompt",
		CorrectAnswer: correct,
		Marks:         marks,
	}
	e.assessments.questions = append(e.assessments.questions, q)
	return q
}

func TestStart_RequiresConfirmedEnrollment(t *testing.T) {
	env := newTestEnv(t)
	outsider := &domain.User{ID: uuid.New(), TenantID: env.tenant.ID, Role: domain.RoleStudent, Status: domain.UserStatusActive}
	params := map[string]string{"assessmentID": env.assessment.ID.String()}

	w := httptest.NewRecorder()
	env.h.Start(w, env.request(t, http.MethodPost, "/v1/assessments/x/start", nil, outsider, params))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}

	w = httptest.NewRecorder()
	env.h.Start(w, env.request(t, http.MethodPost, "/v1/assessments/x/start", nil, env.student, params))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestStart_HidesAnswerKey(t *testing.T) {
	env := newTestEnv(t)
	env.addQuestion(domain.QuestionMCQ, "b", 5)
	params := map[string]string{"assessmentID": env.assessment.ID.String()}

	w := httptest.NewRecorder()
	env.h.Start(w, env.request(t, http.MethodPost, "/v1/assessments/x/start", nil, env.student, params))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Questions []map[string]any `json:"questions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Questions) != 1 {
		t.Fatalf("questions = %d, want 1", len(body.Questions))
	}
	if _, leaked := body.Questions[0]["correct_answer"]; leaked {
		t.Error("correct_answer leaked to student view")
	}
}

func TestStart_ReturnsOpenAttempt(t *testing.T) {
	env := newTestEnv(t)
	params := map[string]string{"assessmentID": env.assessment.ID.String()}

	ids := make([]string, 2)
	for i := range ids {
		w := httptest.NewRecorder()
		env.h.Start(w, env.request(t, http.MethodPost, "/v1/assessments/x/start", nil, env.student, params))
		if w.Code != http.StatusOK {
			t.Fatalf("start %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
		var body struct {
			Attempt struct {
				ID string `json:"id"`
			} `json:"attempt"`
		}
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		ids[i] = body.Attempt.ID
	}
	if ids[0] != ids[1] {
		t.Errorf("second start opened a new attempt: %s != %s", ids[0], ids[1])
	}
}

func TestStart_UnpublishedNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.assessment.IsPublished = false
	params := map[string]string{"assessmentID": env.assessment.ID.String()}

	w := httptest.NewRecorder()
	env.h.Start(w, env.request(t, http.MethodPost, "/v1/assessments/x/start", nil, env.student, params))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestSubmit_TalliesScore(t *testing.T) {
	env := newTestEnv(t)
	q1 := env.addQuestion(domain.QuestionMCQ, "a", 5)
	q2 := env.addQuestion(domain.QuestionTrueFalse, "true", 5)

	attempt := &domain.Attempt{
		ID:           uuid.New(),
		TenantID:     env.tenant.ID,
		AssessmentID: env.assessment.ID,
		UserID:       env.student.ID,
		Status:       domain.AttemptInProgress,
		TotalMarks:   10,
		StartedAt:    time.Now(),
	}
	env.attempts.byID[attempt.ID] = attempt
	params := map[string]string{"attemptID": attempt.ID.String()}

	body := map[string]any{"responses": []map[string]string{
		{"question_id": q1.ID.String(), "answer": "a"},
		{"question_id": q2.ID.String(), "answer": "false"},
	}}
	w := httptest.NewRecorder()
	env.h.Submit(w, env.request(t, http.MethodPost, "/v1/attempts/x/submit", body, env.student, params))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Result struct {
			MarksObtained int    `json:"marks_obtained"`
			Percentage    string `json:"percentage"`
			Status        string `json:"status"`
			Passed        bool   `json:"passed"`
		} `json:"result"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Result.MarksObtained != 5 {
		t.Errorf("marks_obtained = %d, want 5", resp.Result.MarksObtained)
	}
	if resp.Result.Percentage != "50.00" {
		t.Errorf("percentage = %q, want %q", resp.Result.Percentage, "50.00")
	}
	if resp.Result.Status != string(domain.AttemptSubmitted) {
		t.Errorf("status = %q, want %q", resp.Result.Status, domain.AttemptSubmitted)
	}
	if resp.Result.Passed {
		t.Error("passed = true, want false at 50% against a 70% threshold")
	}
	if len(env.attempts.responses) != 2 {
		t.Errorf("stored responses = %d, want 2", len(env.attempts.responses))
	}
}

func TestSubmit_ClosedAttemptConflicts(t *testing.T) {
	env := newTestEnv(t)
	q := env.addQuestion(domain.QuestionMCQ, "a", 5)

	attempt := &domain.Attempt{
		ID:           uuid.New(),
		TenantID:     env.tenant.ID,
		AssessmentID: env.assessment.ID,
		UserID:       env.student.ID,
		Status:       domain.AttemptInProgress,
		TotalMarks:   10,
		StartedAt:    time.Now(),
	}
	env.attempts.byID[attempt.ID] = attempt
	params := map[string]string{"attemptID": attempt.ID.String()}
	body := map[string]any{"responses": []map[string]string{
		{"question_id": q.ID.String(), "answer": "a"},
	}}

	w := httptest.NewRecorder()
	env.h.Submit(w, env.request(t, http.MethodPost, "/v1/attempts/x/submit", body, env.student, params))
	if w.Code != http.StatusOK {
		t.Fatalf("first submit: status = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	env.h.Submit(w, env.request(t, http.MethodPost, "/v1/attempts/x/submit", body, env.student, params))
	if w.Code != http.StatusConflict {
		t.Fatalf("second submit: status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestSubmit_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	attempt := &domain.Attempt{
		ID:           uuid.New(),
		TenantID:     env.tenant.ID,
		AssessmentID: env.assessment.ID,
		UserID:       env.student.ID,
		Status:       domain.AttemptInProgress,
		TotalMarks:   10,
	}
	env.attempts.byID[attempt.ID] = attempt
	intruder := &domain.User{ID: uuid.New(), TenantID: env.tenant.ID, Role: domain.RoleStudent, Status: domain.UserStatusActive}
	params := map[string]string{"attemptID": attempt.ID.String()}
	body := map[string]any{"responses": []map[string]string{{"question_id": uuid.NewString(), "answer": "a"}}}

	w := httptest.NewRecorder()
	env.h.Submit(w, env.request(t, http.MethodPost, "/v1/attempts/x/submit", body, intruder, params))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestGrade_RetalliesScore(t *testing.T) {
	env := newTestEnv(t)
	attempt := &domain.Attempt{
		ID:            uuid.New(),
		TenantID:      env.tenant.ID,
		AssessmentID:  env.assessment.ID,
		UserID:        env.student.ID,
		Status:        domain.AttemptSubmitted,
		TotalMarks:    10,
		MarksObtained: 10,
	}
	env.attempts.byID[attempt.ID] = attempt
	essay := &domain.Response{
		ID:           uuid.New(),
		AttemptID:    attempt.ID,
		QuestionID:   uuid.New(),
		Answer:       "an essay",
		MarksAwarded: 10,
	}
	env.attempts.responses = append(env.attempts.responses, essay)

	params := map[string]string{"attemptID": attempt.ID.String()}
	body := map[string]any{"grades": []map[string]any{
		{"response_id": essay.ID.String(), "marks": 4, "feedback": "thin argument"},
	}}

	w := httptest.NewRecorder()
	env.h.Grade(w, env.request(t, http.MethodPost, "/v1/attempts/x/grade", body, env.instructor, params))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	stored := env.attempts.byID[attempt.ID]
	if stored.Status != domain.AttemptGraded {
		t.Errorf("status = %s, want %s", stored.Status, domain.AttemptGraded)
	}
	if stored.MarksObtained != 4 {
		t.Errorf("marks_obtained = %d, want 4", stored.MarksObtained)
	}
	if essay.Feedback != "thin argument" {
		t.Errorf("feedback = %q, want %q", essay.Feedback, "thin argument")
	}
}

func TestCreate_OwnershipRequired(t *testing.T) {
	env := newTestEnv(t)
	otherInstructor := &domain.User{ID: uuid.New(), TenantID: env.tenant.ID, Role: domain.RoleInstructor, Status: domain.UserStatusActive}
	admin := &domain.User{ID: uuid.New(), TenantID: env.tenant.ID, Role: domain.RoleAdmin, Status: domain.UserStatusActive}
	body := map[string]any{"course_id": env.course.ID.String(), "title": "Final", "type": "exam"}

	tests := []struct {
		name       string
		user       *domain.User
		wantStatus int
	}{
		{"teaching instructor", env.instructor, http.StatusCreated},
		{"other instructor", otherInstructor, http.StatusForbidden},
		{"admin overrides ownership", admin, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.h.Create(w, env.request(t, http.MethodPost, "/v1/assessments", body, tt.user, nil))
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestCreate_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"course_id": env.course.ID.String(), "type": "quiz"}},
		{"unknown type", map[string]any{"course_id": env.course.ID.String(), "title": "Quiz", "type": "survey"}},
		{"bad course id", map[string]any{"course_id": "nope", "title": "Quiz", "type": "quiz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.h.Create(w, env.request(t, http.MethodPost, "/v1/assessments", tt.body, env.instructor, nil))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestAddQuestion_Validation(t *testing.T) {
	env := newTestEnv(t)
	params := map[string]string{"assessmentID": env.assessment.ID.String()}

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{
			name:       "valid mcq",
			body:       map[string]any{"type": "mcq", "prompt": "2+2?", "marks": 1, "options": []string{"3", "4"}, "correct_answer": "4"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "mcq without options",
			body:       map[string]any{"type": "mcq", "prompt": "2+2?", "marks": 1, "correct_answer": "4"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "objective without correct answer",
			body:       map[string]any{"type": "tf", "prompt": "sky is blue", "marks": 1},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "essay needs no answer key",
			body:       map[string]any{"type": "essay", "prompt": "discuss", "marks": 10},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "zero marks",
			body:       map[string]any{"type": "short", "prompt": "define", "marks": 0},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.h.AddQuestion(w, env.request(t, http.MethodPost, "/v1/assessments/x/questions", tt.body, env.instructor, params))
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
