package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tenantedu/campus/pkg/domain"
	"github.com/tenantedu/campus/pkg/repository"
)

// UserStore is the persistence surface the auth service needs.
// *repository.UsersRepository satisfies it.
type UserStore interface {
	CreateTx(ctx context.Context, q repository.Querier, user *domain.User) error
	ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error)
	GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*domain.User, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, tenantID, id uuid.UUID, hash string) error
	UpdateLastLogin(ctx context.Context, tenantID, id uuid.UUID, at time.Time) error
}

// TenantStore is the tenant-counter surface the auth service needs.
// *repository.TenantsRepository satisfies it.
type TenantStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	IncrementStudentCountTx(ctx context.Context, q repository.Querier, id uuid.UUID, limit int) error
}

// Roles assignable through registration. Superadmin is granted only by
// direct administrative action, never self-selected.
var registrableRoles = domain.RoleSet{
	domain.RoleStudent, domain.RoleInstructor, domain.RoleAdmin, domain.RoleFinance,
}

// Service handles tenant-scoped registration, authentication, and
// password reset.
type Service struct {
	db      *sql.DB
	users   UserStore
	tenants TenantStore
	tokens  *TokenService
	now     func() time.Time

	// runTx executes fn transactionally with bounded retry.
	// Overridable in tests.
	runTx func(ctx context.Context, fn func(q repository.Querier) error) error
}

// NewService creates a new auth service.
func NewService(db *sql.DB, users UserStore, tenants TenantStore, tokens *TokenService) *Service {
	return &Service{
		db:      db,
		users:   users,
		tenants: tenants,
		tokens:  tokens,
		now:     time.Now,
		runTx: func(ctx context.Context, fn func(q repository.Querier) error) error {
			return repository.TxRetry(ctx, db, func(tx *sql.Tx) error {
				return fn(tx)
			})
		},
	}
}

// Register creates a new user within a tenant. Registering a student
// consumes the tenant's student quota atomically with the insert.
func (s *Service) Register(ctx context.Context, tenantID uuid.UUID, email, password, fullName string, role domain.Role) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if !registrableRoles.Contains(role) {
		return nil, domain.ErrInvalidRole
	}

	exists, err := s.users.ExistsByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         role,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if role == domain.RoleStudent {
		tenant, err := s.tenants.GetByID(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		limit := tenant.Entitlements().MaxStudents
		err = s.runTx(ctx, func(q repository.Querier) error {
			if err := s.tenants.IncrementStudentCountTx(ctx, q, tenantID, limit); err != nil {
				return err
			}
			return s.users.CreateTx(ctx, q, user)
		})
		if err != nil {
			return nil, err
		}
		return user, nil
	}

	if err := s.users.CreateTx(ctx, s.db, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies a (tenant, email, password) triple. Unknown
// email, inactive account, and wrong password are indistinguishable to
// the caller: all yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, tenantID uuid.UUID, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive() {
		return nil, domain.ErrInvalidCredentials
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	_ = s.users.UpdateLastLogin(ctx, tenantID, user.ID, s.now())

	return user, nil
}

// InitiatePasswordReset mints a reset token for an active identity.
// Callers must not reveal to the requester whether the identity exists.
func (s *Service) InitiatePasswordReset(ctx context.Context, tenantID uuid.UUID, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, tenantID, email)
	if err != nil {
		return "", err
	}
	if !user.IsActive() {
		return "", domain.ErrUserNotFound
	}

	return s.tokens.IssueResetToken(user.ID, tenantID)
}

// ResetPassword sets a new password given a valid reset token. The token
// must carry the password_reset purpose and bind the same tenant; a login
// token is rejected even when otherwise well-formed.
func (s *Service) ResetPassword(ctx context.Context, tenantID uuid.UUID, token, newPassword string) error {
	claims, err := s.tokens.Verify(token, PurposePasswordReset)
	if err != nil {
		return domain.ErrInvalidToken
	}

	userID, claimTenantID, err := claims.SubjectIDs()
	if err != nil {
		return domain.ErrInvalidToken
	}
	if claimTenantID != tenantID {
		return domain.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if !user.IsActive() {
		return domain.ErrUserNotFound
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(ctx, tenantID, user.ID, hash)
}
