package http

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tenantedu/campus/internal/config"
	"github.com/tenantedu/campus/internal/http/features/assessments"
	"github.com/tenantedu/campus/internal/http/features/auth"
	"github.com/tenantedu/campus/internal/http/features/billing"
	"github.com/tenantedu/campus/internal/http/features/courses"
	"github.com/tenantedu/campus/internal/http/features/enrollments"
	"github.com/tenantedu/campus/internal/http/features/tenants"
	"github.com/tenantedu/campus/internal/http/middleware"
	"github.com/tenantedu/campus/internal/httputil"
	authpkg "github.com/tenantedu/campus/pkg/auth"
	"github.com/tenantedu/campus/pkg/domain"
	"github.com/tenantedu/campus/pkg/repository"
	"github.com/tenantedu/campus/pkg/tenancy"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger             *slog.Logger
	DB                 *sql.DB
	Directory          *tenancy.Directory
	AuthService        *authpkg.Service
	TokenService       *authpkg.TokenService
	TenantsRepo        *repository.TenantsRepository
	UsersRepo          *repository.UsersRepository
	CoursesRepo        *repository.CoursesRepository
	MaterialsRepo      *repository.MaterialsRepository
	EnrollmentsRepo    *repository.EnrollmentsRepository
	AssessmentsRepo    *repository.AssessmentsRepository
	AttemptsRepo       *repository.AttemptsRepository
	InvoicesRepo       *repository.InvoicesRepository
	RateLimitConfig    config.RateLimitConfig
	MaxRequestBodySize int64
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware. Tenant resolution and token parsing run
	// on every request; route-level guards decide what each endpoint
	// actually requires.
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBodySize))
	r.Use(middleware.Tenant(cfg.Directory))
	r.Use(middleware.Auth(cfg.TokenService, cfg.UsersRepo))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	// Tenant provisioning is the only write reachable without a tenant
	// context; it runs on the apex domain.
	tenantsHandler := tenants.NewHandler(cfg.Logger, cfg.DB, cfg.TenantsRepo, cfg.UsersRepo, cfg.Directory)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["auth"])
		r.Post("/v1/tenants", tenantsHandler.Create)
	})
	r.Get("/v1/tenants/slug-check", tenantsHandler.SlugCheck)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(middleware.Requirement{Identity: true}))
		r.Get("/v1/tenant", tenantsHandler.Current)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(middleware.Requirement{Roles: domain.AdminOrAbove}))
		r.Get("/v1/tenant/usage", tenantsHandler.Usage)
		r.Get("/v1/tenant/users", tenantsHandler.ListUsers)
		r.Put("/v1/tenant/subscription", tenantsHandler.UpdateSubscription)
	})

	// Register authentication routes
	authHandler := auth.NewHandler(cfg.Logger, cfg.AuthService, cfg.TokenService)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["auth"])
		r.Post("/v1/auth/register", authHandler.Register)
		r.Post("/v1/auth/login", authHandler.Login)
	})
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["reset"])
		r.Post("/v1/auth/reset-request", authHandler.RequestPasswordReset)
		r.Post("/v1/auth/reset", authHandler.ResetPassword)
	})
	r.With(middleware.Guard(middleware.Requirement{Identity: true})).Get("/v1/me", authHandler.Me)

	// Register course and material routes
	coursesHandler := courses.NewHandler(cfg.Logger, cfg.DB, cfg.CoursesRepo, cfg.MaterialsRepo, cfg.TenantsRepo)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(middleware.Requirement{Identity: true}))
		r.Get("/v1/courses", coursesHandler.List)
		r.Get("/v1/courses/{courseID}", coursesHandler.Get)
		r.Get("/v1/courses/{courseID}/materials", coursesHandler.ListMaterials)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(middleware.Requirement{Roles: domain.InstructorOrAbove}))
		r.Post("/v1/courses", coursesHandler.Create)
		r.Patch("/v1/courses/{courseID}", coursesHandler.Update)
		r.Post("/v1/courses/{courseID}/publish", coursesHandler.Publish)
		r.Delete("/v1/courses/{courseID}", coursesHandler.Delete)
		r.Post("/v1/courses/{courseID}/materials", coursesHandler.AddMaterial)
		r.Delete("/v1/courses/{courseID}/materials/{materialID}", coursesHandler.DeleteMaterial)
	})

	// Register enrollment routes
	enrollmentsHandler := enrollments.NewHandler(cfg.Logger, cfg.EnrollmentsRepo, cfg.CoursesRepo)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(middleware.Requirement{Identity: true}))
		r.Post("/v1/enrollments", enrollmentsHandler.Create)
		r.Get("/v1/enrollments", enrollmentsHandler.List)
		r.Get("/v1/enrollments/{enrollmentID}", enrollmentsHandler.Get)
		r.Patch("/v1/enrollments/{enrollmentID}/progress", enrollmentsHandler.UpdateProgress)
	})
	r.With(middleware.Guard(middleware.Requirement{Roles: domain.InstructorOrAbove})).
		Post("/v1/enrollments/{enrollmentID}/confirm", enrollmentsHandler.Confirm)

	// Register assessment routes
	assessmentsHandler := assessments.NewHandler(cfg.Logger, cfg.DB, cfg.AssessmentsRepo, cfg.AttemptsRepo, cfg.CoursesRepo, cfg.EnrollmentsRepo)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(middleware.Requirement{Identity: true}))
		r.Get("/v1/assessments/{assessmentID}", assessmentsHandler.Get)
		r.Post("/v1/assessments/{assessmentID}/start", assessmentsHandler.Start)
		r.Post("/v1/attempts/{attemptID}/submit", assessmentsHandler.Submit)
		r.Get("/v1/attempts/{attemptID}", assessmentsHandler.GetAttempt)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(middleware.Requirement{Roles: domain.InstructorOrAbove}))
		r.Post("/v1/assessments", assessmentsHandler.Create)
		r.Post("/v1/assessments/{assessmentID}/publish", assessmentsHandler.Publish)
		r.Post("/v1/assessments/{assessmentID}/questions", assessmentsHandler.AddQuestion)
		r.Post("/v1/attempts/{attemptID}/grade", assessmentsHandler.Grade)
	})

	// Register billing routes, gated on the payment_integration flag
	billingHandler := billing.NewHandler(cfg.Logger, cfg.InvoicesRepo, cfg.UsersRepo)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(middleware.Requirement{Identity: true, Feature: domain.FeaturePaymentIntegration}))
		r.Get("/v1/invoices", billingHandler.List)
		r.Get("/v1/invoices/{invoiceID}", billingHandler.Get)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(middleware.Requirement{Roles: domain.FinanceOrAbove, Feature: domain.FeaturePaymentIntegration}))
		r.Post("/v1/invoices", billingHandler.Create)
		r.Post("/v1/invoices/{invoiceID}/payments", billingHandler.RecordPayment)
	})

	return r
}
