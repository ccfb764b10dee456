// Package campus provides an embeddable multi-tenant learning platform
// backend with subdomain tenant resolution, JWT authentication, and
// subscription-tier entitlements.
//
// Setup:
//
//  1. Create the schema (tenants, users, courses, materials,
//     enrollments, assessments, questions, attempts, responses,
//     invoices tables)
//  2. Create a Campus instance and mount its router
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/myapp?sslmode=disable")
//
//	app, err := campus.New(campus.Config{
//	    DB:         db,
//	    JWTSecret:  "your-secret-key-at-least-32-chars",
//	    MainDomain: "xyz.com",
//	})
//	if err != nil {
//	    log.Fatal(err) // Will fail if the schema hasn't been created
//	}
//
//	http.ListenAndServe(":8080", app.Router())
package campus

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/tenantedu/campus/internal/config"
	httpserver "github.com/tenantedu/campus/internal/http"
	"github.com/tenantedu/campus/internal/http/middleware"
	"github.com/tenantedu/campus/pkg/auth"
	"github.com/tenantedu/campus/pkg/domain"
	"github.com/tenantedu/campus/pkg/repository"
	"github.com/tenantedu/campus/pkg/tenancy"
)

// Config holds the configuration for an embedded Campus instance.
type Config struct {
	// DB is the database connection (required).
	DB *sql.DB

	// JWTSecret is the secret key for signing tokens (required, min 32 chars).
	JWTSecret string

	// JWTIssuer is the issuer claim in tokens (default: "campus").
	JWTIssuer string

	// MainDomain is the apex domain tenant subdomains hang off (required).
	MainDomain string

	// TokenTTL is the lifetime of login tokens (default: 24 hours).
	TokenTTL time.Duration

	// ResetTokenTTL is the lifetime of password-reset tokens (default: 1 hour).
	ResetTokenTTL time.Duration

	// MaxRequestBodySize caps request bodies in bytes (default: 1 MB).
	MaxRequestBodySize int64

	// RateLimit configures per-endpoint rate limiting (default: enabled).
	RateLimit *config.RateLimitConfig

	// Logger is the structured logger (default: slog JSON to stdout).
	Logger *slog.Logger
}

// Campus is an embedded instance of the platform backend.
type Campus struct {
	config          Config
	db              *sql.DB
	tenantsRepo     *repository.TenantsRepository
	usersRepo       *repository.UsersRepository
	coursesRepo     *repository.CoursesRepository
	materialsRepo   *repository.MaterialsRepository
	enrollmentsRepo *repository.EnrollmentsRepository
	assessmentsRepo *repository.AssessmentsRepository
	attemptsRepo    *repository.AttemptsRepository
	invoicesRepo    *repository.InvoicesRepository
	directory       *tenancy.Directory
	tokenService    *auth.TokenService
	authService     *auth.Service
}

// New creates a new Campus instance with the given configuration.
// Returns an error if required database tables don't exist.
func New(cfg Config) (*Campus, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	// Validate schema exists
	if err := validateSchema(cfg.DB); err != nil {
		return nil, err
	}

	// Initialize repositories
	tenantsRepo := repository.NewTenantsRepository(cfg.DB)
	usersRepo := repository.NewUsersRepository(cfg.DB)
	coursesRepo := repository.NewCoursesRepository(cfg.DB)
	materialsRepo := repository.NewMaterialsRepository(cfg.DB)
	enrollmentsRepo := repository.NewEnrollmentsRepository(cfg.DB)
	assessmentsRepo := repository.NewAssessmentsRepository(cfg.DB)
	attemptsRepo := repository.NewAttemptsRepository(cfg.DB)
	invoicesRepo := repository.NewInvoicesRepository(cfg.DB)

	// Initialize services
	directory := tenancy.NewDirectory(tenantsRepo, cfg.MainDomain)
	tokenService := auth.NewTokenService(auth.TokenConfig{
		Secret:        []byte(cfg.JWTSecret),
		Issuer:        cfg.JWTIssuer,
		TokenTTL:      cfg.TokenTTL,
		ResetTokenTTL: cfg.ResetTokenTTL,
	})
	authService := auth.NewService(cfg.DB, usersRepo, tenantsRepo, tokenService)

	return &Campus{
		config:          cfg,
		db:              cfg.DB,
		tenantsRepo:     tenantsRepo,
		usersRepo:       usersRepo,
		coursesRepo:     coursesRepo,
		materialsRepo:   materialsRepo,
		enrollmentsRepo: enrollmentsRepo,
		assessmentsRepo: assessmentsRepo,
		attemptsRepo:    attemptsRepo,
		invoicesRepo:    invoicesRepo,
		directory:       directory,
		tokenService:    tokenService,
		authService:     authService,
	}, nil
}

// Router returns an http.Handler with all platform routes registered,
// including tenant resolution and authentication middleware.
func (c *Campus) Router() http.Handler {
	return httpserver.NewRouter(httpserver.RouterConfig{
		Logger:             c.config.Logger,
		DB:                 c.db,
		Directory:          c.directory,
		AuthService:        c.authService,
		TokenService:       c.tokenService,
		TenantsRepo:        c.tenantsRepo,
		UsersRepo:          c.usersRepo,
		CoursesRepo:        c.coursesRepo,
		MaterialsRepo:      c.materialsRepo,
		EnrollmentsRepo:    c.enrollmentsRepo,
		AssessmentsRepo:    c.assessmentsRepo,
		AttemptsRepo:       c.attemptsRepo,
		InvoicesRepo:       c.invoicesRepo,
		RateLimitConfig:    *c.config.RateLimit,
		MaxRequestBodySize: c.config.MaxRequestBodySize,
	})
}

// TenantMiddleware returns middleware that resolves the request host to a
// tenant. Use this to put your own routes behind tenant resolution:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(app.TenantMiddleware())
//	    r.Get("/custom", handler)
//	})
func (c *Campus) TenantMiddleware() func(http.Handler) http.Handler {
	return middleware.Tenant(c.directory)
}

// AuthMiddleware returns middleware that validates bearer tokens and
// attaches the authenticated user. It must run after TenantMiddleware.
func (c *Campus) AuthMiddleware() func(http.Handler) http.Handler {
	return middleware.Auth(c.tokenService, c.usersRepo)
}

// GetTenant extracts the resolved tenant from a request.
// Use after TenantMiddleware.
func GetTenant(r *http.Request) (*domain.Tenant, bool) {
	return middleware.GetTenant(r.Context())
}

// GetUser extracts the authenticated user from a request.
// Use after AuthMiddleware.
func GetUser(r *http.Request) (*domain.User, bool) {
	return middleware.GetUser(r.Context())
}

// AuthService returns the authentication service for advanced usage.
func (c *Campus) AuthService() *auth.Service {
	return c.authService
}

// Directory returns the tenant directory for advanced usage.
func (c *Campus) Directory() *tenancy.Directory {
	return c.directory
}

func validateConfig(cfg *Config) error {
	if cfg.DB == nil {
		return errors.New("campus: DB is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("campus: JWTSecret is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("campus: JWTSecret must be at least 32 characters")
	}
	if cfg.MainDomain == "" {
		return errors.New("campus: MainDomain is required")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "campus"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = auth.DefaultTokenTTL
	}
	if cfg.ResetTokenTTL == 0 {
		cfg.ResetTokenTTL = auth.DefaultResetTokenTTL
	}
	if cfg.MaxRequestBodySize == 0 {
		cfg.MaxRequestBodySize = 1 << 20
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = &config.RateLimitConfig{
			Enabled:                true,
			AuthRequestsPerMinute:  10,
			ResetRequestsPerWindow: 3,
			ResetWindowMinutes:     15,
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
}

// validateSchema checks that required database tables exist.
func validateSchema(db *sql.DB) error {
	requiredTables := []string{
		"tenants", "users", "courses", "materials", "enrollments",
		"assessments", "questions", "attempts", "responses", "invoices",
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	`

	for _, table := range requiredTables {
		var name string
		err := db.QueryRow(query, table).Scan(&name)
		if err == sql.ErrNoRows {
			return fmt.Errorf("campus: missing table '%s' - create the schema first", table)
		}
		if err != nil {
			return fmt.Errorf("campus: failed to check schema: %w", err)
		}
	}

	return nil
}
