package tenants

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tenantedu/campus/internal/http/middleware"
	"github.com/tenantedu/campus/internal/httputil"
	"github.com/tenantedu/campus/pkg/auth"
	"github.com/tenantedu/campus/pkg/domain"
	"github.com/tenantedu/campus/pkg/repository"
	"github.com/tenantedu/campus/pkg/tenancy"
)

// Handler handles tenant provisioning and lifecycle endpoints.
type Handler struct {
	logger    *slog.Logger
	db        *sql.DB
	tenants   *repository.TenantsRepository
	users     *repository.UsersRepository
	directory *tenancy.Directory
}

// NewHandler creates a new tenants handler.
func NewHandler(logger *slog.Logger, db *sql.DB, tenants *repository.TenantsRepository, users *repository.UsersRepository, directory *tenancy.Directory) *Handler {
	return &Handler{
		logger:    logger,
		db:        db,
		tenants:   tenants,
		users:     users,
		directory: directory,
	}
}

// CreateRequest represents a tenant provisioning request.
type CreateRequest struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Admin struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	} `json:"admin"`
}

// TenantResponse is the JSON shape of a tenant.
type TenantResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Subdomain string `json:"subdomain"`
	Status    string `json:"status"`
	Tier      string `json:"subscription_tier"`
}

func toTenantResponse(t *domain.Tenant) TenantResponse {
	return TenantResponse{
		ID:        t.ID.String(),
		Name:      t.Name,
		Slug:      t.Slug,
		Subdomain: t.Subdomain,
		Status:    string(t.Status),
		Tier:      string(t.Tier),
	}
}

// Create provisions a new tenant with its initial admin user in one
// transaction. This endpoint is on the public allow-list: it is reached
// from the bare main domain, before any tenant exists.
// POST /v1/tenants
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Slug == "" || req.Admin.Email == "" || req.Admin.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "name, slug, and admin credentials are required")
		return
	}
	if !tenancy.ValidSlug(req.Slug) {
		httputil.Error(w, http.StatusBadRequest, "slug can only contain lowercase letters, numbers, and hyphens")
		return
	}

	taken, err := h.tenants.ExistsBySlug(r.Context(), req.Slug)
	if err != nil {
		h.logger.Error("slug check failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "tenant creation failed")
		return
	}
	if taken {
		suggestions, err := tenancy.SuggestSlugs(r.Context(), h.tenants, req.Slug, 5)
		if err != nil {
			suggestions = nil
		}
		httputil.JSON(w, http.StatusConflict, map[string]any{
			"error":       "tenant slug already exists",
			"suggestions": suggestions,
		})
		return
	}

	hash, err := auth.HashPassword(req.Admin.Password)
	if err != nil {
		h.logger.Error("password hashing failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "tenant creation failed")
		return
	}

	now := time.Now()
	tenant := &domain.Tenant{
		ID:        uuid.New(),
		Name:      req.Name,
		Slug:      req.Slug,
		Subdomain: h.directory.Subdomain(req.Slug),
		Status:    domain.TenantStatusActive,
		Tier:      domain.TierFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
	admin := &domain.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Email:        req.Admin.Email,
		PasswordHash: hash,
		FullName:     req.Admin.FullName,
		Role:         domain.RoleAdmin,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = repository.Tx(r.Context(), h.db, func(tx *sql.Tx) error {
		if err := h.tenants.CreateTx(r.Context(), tx, tenant); err != nil {
			return err
		}
		return h.users.CreateTx(r.Context(), tx, admin)
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlugTaken) {
			httputil.Error(w, http.StatusConflict, "tenant slug already exists")
			return
		}
		h.logger.Error("tenant creation failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "tenant creation failed")
		return
	}

	h.logger.Info("tenant provisioned", "tenant_id", tenant.ID, "slug", tenant.Slug)

	httputil.JSON(w, http.StatusCreated, map[string]any{
		"tenant": toTenantResponse(tenant),
	})
}

// SlugCheck reports slug availability with suggestions when taken.
// GET /v1/tenants/slug-check?slug=acme
func (h *Handler) SlugCheck(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	if slug == "" || !tenancy.ValidSlug(slug) {
		httputil.Error(w, http.StatusBadRequest, "valid slug query parameter required")
		return
	}

	taken, err := h.tenants.ExistsBySlug(r.Context(), slug)
	if err != nil {
		h.logger.Error("slug check failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "slug check failed")
		return
	}

	resp := map[string]any{"slug": slug, "available": !taken}
	if taken {
		if suggestions, err := tenancy.SuggestSlugs(r.Context(), h.tenants, slug, 5); err == nil {
			resp["suggestions"] = suggestions
		}
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// Current returns the resolved tenant with its entitlement snapshot.
// GET /v1/tenant
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	ent := tenant.Entitlements()

	httputil.JSON(w, http.StatusOK, map[string]any{
		"tenant": toTenantResponse(tenant),
		"entitlements": map[string]any{
			"max_students":        ent.MaxStudents,
			"max_courses":         ent.MaxCourses,
			"max_instructors":     ent.MaxInstructors,
			"storage_limit_bytes": ent.StorageLimitBytes,
			"features":            ent.Features,
		},
	})
}

// Usage returns the tenant's usage counters alongside its limits.
// GET /v1/tenant/usage
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	// Re-read counters: the context copy may predate recent creations.
	fresh, err := h.tenants.GetByID(r.Context(), tenant.ID)
	if err != nil {
		h.logger.Error("usage lookup failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "usage lookup failed")
		return
	}
	ent := fresh.Entitlements()

	httputil.JSON(w, http.StatusOK, map[string]any{
		"student_count":       fresh.StudentCount,
		"course_count":        fresh.CourseCount,
		"storage_used_bytes":  fresh.StorageUsedBytes,
		"max_students":        ent.MaxStudents,
		"max_courses":         ent.MaxCourses,
		"storage_limit_bytes": ent.StorageLimitBytes,
	})
}

// UpdateSubscriptionRequest represents a plan change.
type UpdateSubscriptionRequest struct {
	Tier string `json:"subscription_tier"`
}

// UpdateSubscription changes the tenant's plan. The new entitlements take
// effect on the next request.
// PUT /v1/tenant/subscription
func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	var req UpdateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tier := domain.SubscriptionTier(req.Tier)
	if !domain.ValidTier(tier) {
		httputil.Error(w, http.StatusBadRequest, "invalid subscription tier")
		return
	}

	if err := h.tenants.UpdateSubscriptionTier(r.Context(), tenant.ID, tier); err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			httputil.Error(w, http.StatusNotFound, "tenant not found")
			return
		}
		h.logger.Error("subscription update failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "subscription update failed")
		return
	}

	h.logger.Info("subscription updated", "tenant_id", tenant.ID, "tier", tier)
	httputil.JSON(w, http.StatusOK, map[string]string{
		"message":           "subscription updated",
		"subscription_tier": string(tier),
	})
}

// UserSummary is the JSON shape of a user in tenant listings.
type UserSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

// ListUsers returns the tenant's users, optionally filtered by role.
// GET /v1/tenant/users?role=student
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	var roleFilter *domain.Role
	if v := r.URL.Query().Get("role"); v != "" {
		role := domain.Role(v)
		if !domain.ValidRole(role) {
			httputil.Error(w, http.StatusBadRequest, "invalid role filter")
			return
		}
		roleFilter = &role
	}

	users, err := h.users.ListByTenant(r.Context(), tenant.ID, roleFilter, 100, 0)
	if err != nil {
		h.logger.Error("user list failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "user list failed")
		return
	}

	resp := make([]UserSummary, 0, len(users))
	for _, u := range users {
		resp = append(resp, UserSummary{
			ID:       u.ID.String(),
			Email:    u.Email,
			FullName: u.FullName,
			Role:     string(u.Role),
			Status:   string(u.Status),
		})
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"users": resp})
}
