package courses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tenantedu/campus/internal/http/middleware"
	"github.com/tenantedu/campus/internal/httputil"
	"github.com/tenantedu/campus/pkg/domain"
	"github.com/tenantedu/campus/pkg/repository"
)

// CourseStore is the course persistence surface the handler needs.
// *repository.CoursesRepository satisfies it.
type CourseStore interface {
	CreateTx(ctx context.Context, q repository.Querier, course *domain.Course) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Course, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
	List(ctx context.Context, tenantID uuid.UUID, publishedOnly bool, limit, offset int) ([]*domain.Course, error)
	Update(ctx context.Context, course *domain.Course) error
	SoftDeleteTx(ctx context.Context, q repository.Querier, tenantID, id uuid.UUID) error
}

// MaterialStore is the material persistence surface the handler needs.
// *repository.MaterialsRepository satisfies it.
type MaterialStore interface {
	CreateTx(ctx context.Context, q repository.Querier, m *domain.Material) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Material, error)
	ListByCourse(ctx context.Context, tenantID, courseID uuid.UUID) ([]*domain.Material, error)
	DeleteTx(ctx context.Context, q repository.Querier, tenantID, id uuid.UUID) error
}

// QuotaStore is the tenant counter surface backing plan enforcement.
// *repository.TenantsRepository satisfies it.
type QuotaStore interface {
	IncrementCourseCountTx(ctx context.Context, q repository.Querier, id uuid.UUID, limit int) error
	DecrementCourseCountTx(ctx context.Context, q repository.Querier, id uuid.UUID) error
	ReserveStorageTx(ctx context.Context, q repository.Querier, id uuid.UUID, bytes, limit int64) error
	ReleaseStorageTx(ctx context.Context, q repository.Querier, id uuid.UUID, bytes int64) error
}

// Handler handles course and course-material endpoints.
type Handler struct {
	logger    *slog.Logger
	courses   CourseStore
	materials MaterialStore
	tenants   QuotaStore

	// runTx executes fn transactionally with bounded retry.
	// Overridable in tests.
	runTx func(ctx context.Context, fn func(q repository.Querier) error) error
}

// NewHandler creates a new courses handler.
func NewHandler(logger *slog.Logger, db *sql.DB, courses *repository.CoursesRepository, materials *repository.MaterialsRepository, tenants *repository.TenantsRepository) *Handler {
	return &Handler{
		logger:    logger,
		courses:   courses,
		materials: materials,
		tenants:   tenants,
		runTx: func(ctx context.Context, fn func(q repository.Querier) error) error {
			return repository.TxRetry(ctx, db, func(tx *sql.Tx) error {
				return fn(tx)
			})
		},
	}
}

// CreateRequest represents a course creation request.
type CreateRequest struct {
	Code          string `json:"code"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Delivery      string `json:"delivery"`
	DurationWeeks int    `json:"duration_weeks"`
	Price         string `json:"price"`
	Currency      string `json:"currency"`
}

// CourseResponse is the JSON shape of a course.
type CourseResponse struct {
	ID            string `json:"id"`
	InstructorID  string `json:"instructor_id"`
	Code          string `json:"code"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Delivery      string `json:"delivery"`
	DurationWeeks int    `json:"duration_weeks"`
	Price         string `json:"price"`
	Currency      string `json:"currency"`
	IsPublished   bool   `json:"is_published"`
}

func toCourseResponse(c *domain.Course) CourseResponse {
	return CourseResponse{
		ID:            c.ID.String(),
		InstructorID:  c.InstructorID.String(),
		Code:          c.Code,
		Title:         c.Title,
		Description:   c.Description,
		Delivery:      string(c.Delivery),
		DurationWeeks: c.DurationWeeks,
		Price:         c.Price.String(),
		Currency:      c.Currency,
		IsPublished:   c.IsPublished,
	}
}

// Create creates a course. The plan's course quota is consumed in the
// same transaction as the insert, so two concurrent creations at the
// limit boundary yield exactly one success.
// POST /v1/courses
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" || req.Title == "" || req.Delivery == "" {
		httputil.Error(w, http.StatusBadRequest, "code, title, and delivery are required")
		return
	}
	if !domain.ValidDelivery(domain.CourseDelivery(req.Delivery)) {
		httputil.Error(w, http.StatusBadRequest, "delivery must be online, offline, or hybrid")
		return
	}

	price := decimal.Zero
	if req.Price != "" {
		var err error
		price, err = decimal.NewFromString(req.Price)
		if err != nil || price.IsNegative() {
			httputil.Error(w, http.StatusBadRequest, "invalid price")
			return
		}
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	exists, err := h.courses.ExistsByCode(r.Context(), tenant.ID, req.Code)
	if err != nil {
		h.logger.Error("course code check failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "course creation failed")
		return
	}
	if exists {
		httputil.Error(w, http.StatusConflict, "course code already exists")
		return
	}

	now := time.Now()
	course := &domain.Course{
		ID:            uuid.New(),
		TenantID:      tenant.ID,
		InstructorID:  user.ID,
		Code:          req.Code,
		Title:         req.Title,
		Description:   req.Description,
		Delivery:      domain.CourseDelivery(req.Delivery),
		DurationWeeks: req.DurationWeeks,
		Price:         price,
		Currency:      currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	limit := tenant.Entitlements().MaxCourses
	err = h.runTx(r.Context(), func(q repository.Querier) error {
		if err := h.tenants.IncrementCourseCountTx(r.Context(), q, tenant.ID, limit); err != nil {
			return err
		}
		return h.courses.CreateTx(r.Context(), q, course)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCourseLimitReached):
			httputil.UpgradeRequired(w, "course limit reached for current plan", string(tenant.Tier))
		case errors.Is(err, domain.ErrCourseCodeTaken):
			httputil.Error(w, http.StatusConflict, "course code already exists")
		default:
			h.logger.Error("course creation failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "course creation failed")
		}
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]any{"course": toCourseResponse(course)})
}

// List returns the tenant's courses. Students see published courses only.
// GET /v1/courses?page=1&per_page=10
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	publishedOnly := user.Role == domain.RoleStudent
	limit, offset := pagination(r)

	courses, err := h.courses.List(r.Context(), tenant.ID, publishedOnly, limit, offset)
	if err != nil {
		h.logger.Error("course list failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "course list failed")
		return
	}

	resp := make([]CourseResponse, 0, len(courses))
	for _, c := range courses {
		resp = append(resp, toCourseResponse(c))
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"courses": resp})
}

// Get returns one course. A course of another tenant is NotFound.
// GET /v1/courses/{courseID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	course, ok := h.findCourse(w, r, tenant)
	if !ok {
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"course": toCourseResponse(course)})
}

// UpdateRequest represents a course update. Absent fields keep their value.
type UpdateRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Delivery      *string `json:"delivery"`
	DurationWeeks *int    `json:"duration_weeks"`
	Price         *string `json:"price"`
}

// Update updates a course's mutable fields.
// PATCH /v1/courses/{courseID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	course, ok := h.findCourse(w, r, tenant)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Delivery != nil {
		if !domain.ValidDelivery(domain.CourseDelivery(*req.Delivery)) {
			httputil.Error(w, http.StatusBadRequest, "delivery must be online, offline, or hybrid")
			return
		}
		course.Delivery = domain.CourseDelivery(*req.Delivery)
	}
	if req.DurationWeeks != nil {
		course.DurationWeeks = *req.DurationWeeks
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil || price.IsNegative() {
			httputil.Error(w, http.StatusBadRequest, "invalid price")
			return
		}
		course.Price = price
	}

	if err := h.courses.Update(r.Context(), course); err != nil {
		h.logger.Error("course update failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "course update failed")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"course": toCourseResponse(course)})
}

// Publish marks a course as published.
// POST /v1/courses/{courseID}/publish
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	course, ok := h.findCourse(w, r, tenant)
	if !ok {
		return
	}

	course.IsPublished = true
	if err := h.courses.Update(r.Context(), course); err != nil {
		h.logger.Error("course publish failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "course publish failed")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"course": toCourseResponse(course)})
}

// Delete soft-deletes a course and releases its quota slot.
// DELETE /v1/courses/{courseID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	course, ok := h.findCourse(w, r, tenant)
	if !ok {
		return
	}

	err := h.runTx(r.Context(), func(q repository.Querier) error {
		if err := h.courses.SoftDeleteTx(r.Context(), q, tenant.ID, course.ID); err != nil {
			return err
		}
		return h.tenants.DecrementCourseCountTx(r.Context(), q, tenant.ID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			httputil.Error(w, http.StatusNotFound, "course not found")
			return
		}
		h.logger.Error("course deletion failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "course deletion failed")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "course deleted"})
}

// AddMaterialRequest registers a material record against a course.
type AddMaterialRequest struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
}

// AddMaterial reserves storage for a material atomically with the record
// insert. File transfer itself is handled by the upload pipeline, not here.
// POST /v1/courses/{courseID}/materials
func (h *Handler) AddMaterial(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	course, ok := h.findCourse(w, r, tenant)
	if !ok {
		return
	}

	var req AddMaterialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.SizeBytes <= 0 {
		httputil.Error(w, http.StatusBadRequest, "name and positive size_bytes are required")
		return
	}

	material := &domain.Material{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		CourseID:  course.ID,
		Name:      req.Name,
		SizeBytes: req.SizeBytes,
		CreatedAt: time.Now(),
	}

	limit := tenant.Entitlements().StorageLimitBytes
	err := h.runTx(r.Context(), func(q repository.Querier) error {
		if err := h.tenants.ReserveStorageTx(r.Context(), q, tenant.ID, req.SizeBytes, limit); err != nil {
			return err
		}
		return h.materials.CreateTx(r.Context(), q, material)
	})
	if err != nil {
		if errors.Is(err, domain.ErrStorageLimitReached) {
			httputil.UpgradeRequired(w, "storage limit reached for current plan", string(tenant.Tier))
			return
		}
		h.logger.Error("material creation failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "material creation failed")
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]any{
		"material": map[string]any{
			"id":         material.ID.String(),
			"course_id":  material.CourseID.String(),
			"name":       material.Name,
			"size_bytes": material.SizeBytes,
		},
	})
}

// ListMaterials returns a course's materials.
// GET /v1/courses/{courseID}/materials
func (h *Handler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	course, ok := h.findCourse(w, r, tenant)
	if !ok {
		return
	}

	materials, err := h.materials.ListByCourse(r.Context(), tenant.ID, course.ID)
	if err != nil {
		h.logger.Error("material list failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "material list failed")
		return
	}

	resp := make([]map[string]any, 0, len(materials))
	for _, m := range materials {
		resp = append(resp, map[string]any{
			"id":         m.ID.String(),
			"course_id":  m.CourseID.String(),
			"name":       m.Name,
			"size_bytes": m.SizeBytes,
		})
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"materials": resp})
}

// DeleteMaterial removes a material record and releases its storage.
// DELETE /v1/courses/{courseID}/materials/{materialID}
func (h *Handler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	materialID, err := uuid.Parse(chi.URLParam(r, "materialID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid material id")
		return
	}

	material, err := h.materials.GetByID(r.Context(), tenant.ID, materialID)
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "material not found")
		return
	}

	err = h.runTx(r.Context(), func(q repository.Querier) error {
		if err := h.materials.DeleteTx(r.Context(), q, tenant.ID, material.ID); err != nil {
			return err
		}
		return h.tenants.ReleaseStorageTx(r.Context(), q, tenant.ID, material.SizeBytes)
	})
	if err != nil {
		h.logger.Error("material deletion failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "material deletion failed")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "material deleted"})
}

func (h *Handler) findCourse(w http.ResponseWriter, r *http.Request, tenant *domain.Tenant) (*domain.Course, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "courseID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid course id")
		return nil, false
	}
	course, err := h.courses.GetByID(r.Context(), tenant.ID, id)
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			httputil.Error(w, http.StatusNotFound, "course not found")
		} else {
			h.logger.Error("course lookup failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "course lookup failed")
		}
		return nil, false
	}
	return course, true
}

func pagination(r *http.Request) (limit, offset int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	return perPage, (page - 1) * perPage
}
