package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tenantedu/campus/pkg/domain"
)

// InvoicesRepository handles invoice and payment persistence, tenant-scoped.
type InvoicesRepository struct {
	db *sql.DB
}

// NewInvoicesRepository creates a new invoices repository.
func NewInvoicesRepository(db *sql.DB) *InvoicesRepository {
	return &InvoicesRepository{db: db}
}

const invoiceColumns = `id, tenant_id, user_id, number, currency, total, amount_paid,
       status, due_at, created_at, updated_at`

// Create persists an invoice with its line items in one transaction.
func (r *InvoicesRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO invoices (id, tenant_id, user_id, number, currency, total,
			                      amount_paid, status, due_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		_, err := tx.ExecContext(ctx, query,
			inv.ID, inv.TenantID, inv.UserID, inv.Number, inv.Currency,
			inv.Total, inv.AmountPaid, inv.Status, inv.DueAt,
			inv.CreatedAt, inv.UpdatedAt,
		)
		if err != nil {
			return err
		}

		itemQuery := `
			INSERT INTO invoice_items (id, invoice_id, description, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
		`
		for _, item := range inv.Items {
			if _, err := tx.ExecContext(ctx, itemQuery,
				item.ID, item.InvoiceID, item.Description, item.Quantity, item.UnitPrice,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves an invoice with its items within a tenant.
func (r *InvoicesRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices WHERE tenant_id = $1 AND id = $2`

	var inv domain.Invoice
	err := r.db.QueryRowContext(ctx, query, tenantID, id).Scan(
		&inv.ID, &inv.TenantID, &inv.UserID, &inv.Number, &inv.Currency,
		&inv.Total, &inv.AmountPaid, &inv.Status, &inv.DueAt,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}

	itemQuery := `
		SELECT id, invoice_id, description, quantity, unit_price
		FROM invoice_items WHERE invoice_id = $1`
	rows, err := r.db.QueryContext(ctx, itemQuery, inv.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description,
			&item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListByTenant returns a tenant's invoices, newest first. userID narrows
// to a single user's invoices when non-nil.
func (r *InvoicesRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, limit, offset int) ([]*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE tenant_id = $1 AND ($2::uuid IS NULL OR user_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	var userArg any
	if userID != nil {
		userArg = *userID
	}
	rows, err := r.db.QueryContext(ctx, query, tenantID, userArg, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(
			&inv.ID, &inv.TenantID, &inv.UserID, &inv.Number, &inv.Currency,
			&inv.Total, &inv.AmountPaid, &inv.Status, &inv.DueAt,
			&inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		invoices = append(invoices, &inv)
	}
	return invoices, rows.Err()
}

// RecordPayment inserts a payment and updates the invoice's paid balance
// and status in one transaction.
func (r *InvoicesRepository) RecordPayment(ctx context.Context, inv *domain.Invoice, payment *domain.Payment) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO payments (id, invoice_id, amount, method, reference, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err := tx.ExecContext(ctx, query,
			payment.ID, payment.InvoiceID, payment.Amount,
			payment.Method, payment.Reference, payment.CreatedAt,
		)
		if err != nil {
			return err
		}

		updateQuery := `
			UPDATE invoices
			SET amount_paid = $3, status = $4, updated_at = NOW()
			WHERE tenant_id = $1 AND id = $2
		`
		result, err := tx.ExecContext(ctx, updateQuery,
			inv.TenantID, inv.ID, inv.AmountPaid, inv.Status)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrInvoiceNotFound
		}
		return nil
	})
}

// ListPayments returns the payments recorded against an invoice.
func (r *InvoicesRepository) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT id, invoice_id, amount, method, reference, created_at
		FROM payments WHERE invoice_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method,
			&p.Reference, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}
