package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tenantedu/campus/pkg/domain"
)

// UsersRepository handles user persistence. Every query is scoped by
// tenant ID; there is no cross-tenant lookup.
type UsersRepository struct {
	db *sql.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

const userColumns = `id, tenant_id, email, password_hash, full_name, role, status,
       last_login_at, created_at, updated_at, deleted_at`

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.FullName,
		&u.Role, &u.Status, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateTx creates a new user within a transaction.
func (r *UsersRepository) CreateTx(ctx context.Context, q Querier, user *domain.User) error {
	query := `
		INSERT INTO users (id, tenant_id, email, password_hash, full_name, role, status,
		                   created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := q.ExecContext(ctx, query,
		user.ID, user.TenantID, user.Email, user.PasswordHash,
		user.FullName, user.Role, user.Status,
		user.CreatedAt, user.UpdatedAt,
	)
	if IsUniqueViolation(err) {
		return domain.ErrUserAlreadyExists
	}
	return err
}

// GetByID retrieves a user by ID within a tenant.
func (r *UsersRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, tenantID, id))
}

// GetByEmail retrieves a user by email within a tenant.
func (r *UsersRepository) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users WHERE tenant_id = $1 AND email = $2 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, tenantID, email))
}

// ExistsByEmail checks if a user exists with the given email within a tenant.
func (r *UsersRepository) ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM users WHERE tenant_id = $1 AND email = $2 AND deleted_at IS NULL)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, tenantID, email).Scan(&exists)
	return exists, err
}

// UpdatePasswordHash replaces a user's password hash.
func (r *UsersRepository) UpdatePasswordHash(ctx context.Context, tenantID, id uuid.UUID, hash string) error {
	query := `
		UPDATE users
		SET password_hash = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, tenantID, id, hash)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdateLastLogin stamps the last successful login time.
func (r *UsersRepository) UpdateLastLogin(ctx context.Context, tenantID, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE users
		SET last_login_at = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`
	_, err := r.db.ExecContext(ctx, query, tenantID, id, at)
	return err
}

// ListByTenant returns users of a tenant, optionally filtered by role.
func (r *UsersRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, role *domain.Role, limit, offset int) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE tenant_id = $1 AND deleted_at IS NULL
		  AND ($2::text IS NULL OR role = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	var roleArg any
	if role != nil {
		roleArg = string(*role)
	}
	rows, err := r.db.QueryContext(ctx, query, tenantID, roleArg, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.FullName,
			&u.Role, &u.Status, &u.LastLoginAt,
			&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}
