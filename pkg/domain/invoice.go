package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPartial InvoiceStatus = "partial"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusVoid    InvoiceStatus = "void"
)

// InvoiceItem is a single line on an invoice.
type InvoiceItem struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Amount returns quantity * unit price.
func (i InvoiceItem) Amount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Invoice represents a billing record for a user within a tenant.
type Invoice struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	UserID     uuid.UUID
	Number     string
	Currency   string
	Total      decimal.Decimal
	AmountPaid decimal.Decimal
	Status     InvoiceStatus
	DueAt      *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Items []InvoiceItem
}

// ComputeTotal sums the invoice's line items.
func (inv *Invoice) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range inv.Items {
		total = total.Add(item.Amount())
	}
	return total
}

// ApplyPayment adds amount to the paid balance and re-derives the status.
func (inv *Invoice) ApplyPayment(amount decimal.Decimal) {
	inv.AmountPaid = inv.AmountPaid.Add(amount)
	switch {
	case inv.AmountPaid.GreaterThanOrEqual(inv.Total):
		inv.Status = InvoiceStatusPaid
	case inv.AmountPaid.IsPositive():
		inv.Status = InvoiceStatusPartial
	default:
		inv.Status = InvoiceStatusPending
	}
}

// Payment records a settlement against an invoice.
type Payment struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	Method    string
	Reference string
	CreatedAt time.Time
}
