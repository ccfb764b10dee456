package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tenantedu/campus/internal/config"
	httpserver "github.com/tenantedu/campus/internal/http"
	"github.com/tenantedu/campus/pkg/auth"
	"github.com/tenantedu/campus/pkg/repository"
	"github.com/tenantedu/campus/pkg/tenancy"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Initialize repositories
	tenantsRepo := repository.NewTenantsRepository(db)
	usersRepo := repository.NewUsersRepository(db)
	coursesRepo := repository.NewCoursesRepository(db)
	materialsRepo := repository.NewMaterialsRepository(db)
	enrollmentsRepo := repository.NewEnrollmentsRepository(db)
	assessmentsRepo := repository.NewAssessmentsRepository(db)
	attemptsRepo := repository.NewAttemptsRepository(db)
	invoicesRepo := repository.NewInvoicesRepository(db)

	// Initialize services
	directory := tenancy.NewDirectory(tenantsRepo, cfg.MainDomain)
	tokenService := auth.NewTokenService(auth.TokenConfig{
		Secret:        []byte(cfg.JWTSecret),
		Issuer:        cfg.JWTIssuer,
		TokenTTL:      cfg.TokenTTL,
		ResetTokenTTL: cfg.ResetTokenTTL,
	})
	authService := auth.NewService(db, usersRepo, tenantsRepo, tokenService)

	logger.Info("tenant directory ready", "main_domain", cfg.MainDomain)

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:             logger,
		DB:                 db,
		Directory:          directory,
		AuthService:        authService,
		TokenService:       tokenService,
		TenantsRepo:        tenantsRepo,
		UsersRepo:          usersRepo,
		CoursesRepo:        coursesRepo,
		MaterialsRepo:      materialsRepo,
		EnrollmentsRepo:    enrollmentsRepo,
		AssessmentsRepo:    assessmentsRepo,
		AttemptsRepo:       attemptsRepo,
		InvoicesRepo:       invoicesRepo,
		RateLimitConfig:    cfg.RateLimit,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
