package enrollments

import (
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

// Handler handles enrollment endpoints.
type Handler struct {
	logger      *slog.Logger
	enrollments *repository.EnrollmentsRepository
	courses     *repository.CoursesRepository
}

// NewHandler creates a new enrollments handler.
func NewHandler(logger *slog.Logger, enrollments *repository.EnrollmentsRepository, courses *repository.CoursesRepository) *Handler {
	return &Handler{
		logger:      logger,
		enrollments: enrollments,
		courses:     courses,
	}
}

// CreateRequest represents an enrollment request.
type CreateRequest struct {
	CourseID string `json:"course_id"`
}

// EnrollmentResponse is the JSON shape of an enrollment.
type EnrollmentResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	CourseID   string `json:"course_id"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	EnrolledAt string `json:"enrolled_at"`
}

func toEnrollmentResponse(e *domain.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:         e.ID.String(),
		UserID:     e.UserID.String(),
		CourseID:   e.CourseID.String(),
		Status:     string(e.Status),
		Progress:   e.Progress,
		EnrolledAt: e.EnrolledAt.Format(time.RFC3339),
	}
}

// Create enrolls the authenticated user in a published course of their
// tenant.
// POST /v1/enrollments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "course_id is required")
		return
	}

	course, err := h.courses.GetByID(r.Context(), tenant.ID, courseID)
	if err != nil || !course.IsPublished {
		httputil.Error(w, http.StatusNotFound, "course not found or not published")
		return
	}

	exists, err := h.enrollments.ExistsByUserAndCourse(r.Context(), user.ID, course.ID)
	if err != nil {
		h.logger.Error("enrollment check failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "enrollment failed")
		return
	}
	if exists {
		httputil.Error(w, http.StatusConflict, "already enrolled in this course")
		return
	}

	now := time.Now()
	enrollment := &domain.Enrollment{
		ID:         uuid.New(),
		TenantID:   tenant.ID,
		UserID:     user.ID,
		CourseID:   course.ID,
		Status:     domain.EnrollmentStatusPending,
		EnrolledAt: now,
		UpdatedAt:  now,
	}

	if err := h.enrollments.Create(r.Context(), enrollment); err != nil {
		if errors.Is(err, domain.ErrAlreadyEnrolled) {
			httputil.Error(w, http.StatusConflict, "already enrolled in this course")
			return
		}
		h.logger.Error("enrollment creation failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "enrollment failed")
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]any{"enrollment": toEnrollmentResponse(enrollment)})
}

// List returns the caller's enrollments, or all tenant enrollments for
// instructors and above.
// GET /v1/enrollments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var (
		list []*domain.Enrollment
		err  error
	)
	if domain.InstructorOrAbove.Contains(user.Role) {
		list, err = h.enrollments.ListByTenant(r.Context(), tenant.ID, 100, 0)
	} else {
		list, err = h.enrollments.ListByUser(r.Context(), tenant.ID, user.ID)
	}
	if err != nil {
		h.logger.Error("enrollment list failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "enrollment list failed")
		return
	}

	resp := make([]EnrollmentResponse, 0, len(list))
	for _, e := range list {
		resp = append(resp, toEnrollmentResponse(e))
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"enrollments": resp})
}

// Get returns one enrollment. Access: the owning student, the course's
// instructor, or an admin.
// GET /v1/enrollments/{enrollmentID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	enrollment, ok := h.find(w, r, tenant.ID)
	if !ok {
		return
	}

	course, err := h.courses.GetByID(r.Context(), tenant.ID, enrollment.CourseID)
	if err != nil {
		h.logger.Error("course lookup failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "enrollment lookup failed")
		return
	}

	if !enrollment.CanView(user, course.InstructorID) {
		httputil.Error(w, http.StatusForbidden, "access denied")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"enrollment": toEnrollmentResponse(enrollment)})
}

// Confirm marks an enrollment as confirmed, after payment or approval.
// POST /v1/enrollments/{enrollmentID}/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	enrollment, ok := h.find(w, r, tenant.ID)
	if !ok {
		return
	}

	if err := h.enrollments.Confirm(r.Context(), tenant.ID, enrollment.ID); err != nil {
		h.logger.Error("enrollment confirmation failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "enrollment confirmation failed")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "enrollment confirmed"})
}

// ProgressRequest represents a progress update.
type ProgressRequest struct {
	Progress int `json:"progress"`
}

// UpdateProgress sets the owning student's progress on an enrollment.
// PATCH /v1/enrollments/{enrollmentID}/progress
func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	enrollment, ok := h.find(w, r, tenant.ID)
	if !ok {
		return
	}
	if enrollment.UserID != user.ID {
		httputil.Error(w, http.StatusForbidden, "access denied")
		return
	}

	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Progress < 0 || req.Progress > 100 {
		httputil.Error(w, http.StatusBadRequest, "progress must be between 0 and 100")
		return
	}

	if err := h.enrollments.UpdateProgress(r.Context(), tenant.ID, enrollment.ID, req.Progress); err != nil {
		h.logger.Error("progress update failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "progress update failed")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "progress updated"})
}

func (h *Handler) find(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) (*domain.Enrollment, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "enrollmentID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid enrollment id")
		return nil, false
	}
	enrollment, err := h.enrollments.GetByID(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, domain.ErrEnrollmentNotFound) {
			httputil.Error(w, http.StatusNotFound, "enrollment not found")
		} else {
			h.logger.Error("enrollment lookup failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "enrollment lookup failed")
		}
		return nil, false
	}
	return enrollment, true
}
