package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/tenantedu/campus/internal/http/middleware"
	"github.com/tenantedu/campus/pkg/domain"
)

func tenantRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	tenant := &domain.Tenant{
		ID:     uuid.New(),
		Slug:   "acme",
		Status: domain.TenantStatusActive,
		Tier:   domain.TierFree,
	}
	return req.WithContext(middleware.WithTenant(req.Context(), tenant))
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "empty body",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "email, password, full_name, and role are required",
		},
		{
			name:           "missing role",
			body:           `{"email":"a@example.com","password":"secret123","full_name":"A User"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "email, password, full_name, and role are required",
		},
		{
			name:           "invalid json",
			body:           `{invalid}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid request body",
		},
	}

	handler := &Handler{}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Validation should have failed before reaching service")
				}
			}()

			handler.Register(rec, tenantRequest(http.MethodPost, "/v1/auth/register", tt.body))

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}

			var response map[string]string
			json.NewDecoder(rec.Body).Decode(&response)
			if response["error"] != tt.expectedError {
				t.Errorf("Error = %q, want %q", response["error"], tt.expectedError)
			}
		})
	}
}

func TestLogin_Validation(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "empty body",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "email and password are required",
		},
		{
			name:           "missing password",
			body:           `{"email":"a@example.com"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "email and password are required",
		},
		{
			name:           "invalid json",
			body:           `{invalid}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid request body",
		},
	}

	handler := &Handler{}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Validation should have failed before reaching service")
				}
			}()

			handler.Login(rec, tenantRequest(http.MethodPost, "/v1/auth/login", tt.body))

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}

			var response map[string]string
			json.NewDecoder(rec.Body).Decode(&response)
			if response["error"] != tt.expectedError {
				t.Errorf("Error = %q, want %q", response["error"], tt.expectedError)
			}
		})
	}
}

func TestResetPassword_Validation(t *testing.T) {
	handler := &Handler{}

	rec := httptest.NewRecorder()
	handler.ResetPassword(rec, tenantRequest(http.MethodPost, "/v1/auth/reset", `{"token":""}`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var response map[string]string
	json.NewDecoder(rec.Body).Decode(&response)
	if response["error"] != "token and new_password are required" {
		t.Errorf("Error = %q", response["error"])
	}
}

func TestMe_ReturnsContextUser(t *testing.T) {
	handler := &Handler{}

	user := &domain.User{
		ID:       uuid.New(),
		Email:    "me@example.com",
		FullName: "Me Myself",
		Role:     domain.RoleStudent,
		Status:   domain.UserStatusActive,
	}

	req := tenantRequest(http.MethodGet, "/v1/me", "")
	req = req.WithContext(middleware.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()

	handler.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}

	var response struct {
		User UserResponse `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.User.ID != user.ID.String() {
		t.Errorf("user.id = %q, want %q", response.User.ID, user.ID)
	}
	if response.User.Email != "me@example.com" {
		t.Errorf("user.email = %q", response.User.Email)
	}
}
