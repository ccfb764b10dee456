package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tenantedu/campus/internal/http/middleware"
	"github.com/tenantedu/campus/internal/httputil"
	"github.com/tenantedu/campus/pkg/auth"
	"github.com/tenantedu/campus/pkg/domain"
)

// Handler handles authentication endpoints.
type Handler struct {
	logger  *slog.Logger
	service *auth.Service
	tokens  *auth.TokenService
}

// NewHandler creates a new auth handler.
func NewHandler(logger *slog.Logger, service *auth.Service, tokens *auth.TokenService) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		tokens:  tokens,
	}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the JSON shape of a user. The password hash never
// leaves the server.
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:       u.ID.String(),
		Email:    u.Email,
		FullName: u.FullName,
		Role:     string(u.Role),
		Status:   string(u.Status),
	}
}

// Register handles user registration within the resolved tenant.
// POST /v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.FullName == "" || req.Role == "" {
		httputil.Error(w, http.StatusBadRequest, "email, password, full_name, and role are required")
		return
	}

	user, err := h.service.Register(r.Context(), tenant.ID, req.Email, req.Password, req.FullName, domain.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists):
			httputil.Error(w, http.StatusConflict, "email already registered")
		case errors.Is(err, domain.ErrInvalidRole):
			httputil.Error(w, http.StatusBadRequest, "invalid role")
		case errors.Is(err, domain.ErrInvalidEmail):
			httputil.Error(w, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, domain.ErrStudentLimitReached):
			httputil.UpgradeRequired(w, "student limit reached for current plan", string(tenant.Tier))
		default:
			h.logger.Error("registration failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message": "user registered successfully",
		"user":    toUserResponse(user),
	})
}

// Login handles user login within the resolved tenant.
// POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.service.Authenticate(r.Context(), tenant.ID, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			// One generic answer for unknown email and wrong password alike.
			httputil.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("authentication failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	token, err := h.tokens.IssueLoginToken(user.ID, tenant.ID)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(h.tokens.TokenTTL().Seconds()),
		"user":       toUserResponse(user),
	})
}

// ResetRequest represents a password-reset initiation request.
type ResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset mints a reset token for an identity.
// POST /v1/auth/reset-request
//
// The response is identical whether or not the identity exists; token
// delivery is a mail concern outside this service.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	if _, err := h.service.InitiatePasswordReset(r.Context(), tenant.ID, req.Email); err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			h.logger.Error("password reset initiation failed", "error", err)
		}
	}

	httputil.JSON(w, http.StatusAccepted, map[string]string{
		"message": "if the account exists, a password reset link has been sent",
	})
}

// ResetConfirmRequest represents a password-reset completion request.
type ResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetPassword completes a password reset.
// POST /v1/auth/reset
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	var req ResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		httputil.Error(w, http.StatusBadRequest, "token and new_password are required")
		return
	}

	if err := h.service.ResetPassword(r.Context(), tenant.ID, req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidToken):
			httputil.Error(w, http.StatusUnauthorized, "invalid or expired reset token")
		case errors.Is(err, domain.ErrUserNotFound):
			httputil.Error(w, http.StatusUnauthorized, "invalid or expired reset token")
		default:
			h.logger.Error("password reset failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "password reset failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// Me returns the authenticated user.
// GET /v1/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	httputil.JSON(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}
