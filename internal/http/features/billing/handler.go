package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tenantedu/campus/internal/http/middleware"
	"github.com/tenantedu/campus/internal/httputil"
	"github.com/tenantedu/campus/pkg/domain"
	"github.com/tenantedu/campus/pkg/repository"
)

// Handler handles invoice and payment endpoints.
type Handler struct {
	logger   *slog.Logger
	invoices *repository.InvoicesRepository
	users    *repository.UsersRepository
}

// NewHandler creates a new billing handler.
func NewHandler(logger *slog.Logger, invoices *repository.InvoicesRepository, users *repository.UsersRepository) *Handler {
	return &Handler{
		logger:   logger,
		invoices: invoices,
		users:    users,
	}
}

// ItemRequest is one invoice line in a creation request.
type ItemRequest struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// CreateRequest represents an invoice creation request.
type CreateRequest struct {
	UserID   string        `json:"user_id"`
	Currency string        `json:"currency"`
	DueAt    *time.Time    `json:"due_at"`
	Items    []ItemRequest `json:"items"`
}

// InvoiceResponse is the JSON shape of an invoice.
type InvoiceResponse struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Number     string         `json:"number"`
	Currency   string         `json:"currency"`
	Total      string         `json:"total"`
	AmountPaid string         `json:"amount_paid"`
	Status     string         `json:"status"`
	Items      []ItemResponse `json:"items,omitempty"`
}

// ItemResponse is one invoice line in a response.
type ItemResponse struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
}

func toInvoiceResponse(inv *domain.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:         inv.ID.String(),
		UserID:     inv.UserID.String(),
		Number:     inv.Number,
		Currency:   inv.Currency,
		Total:      inv.Total.StringFixed(2),
		AmountPaid: inv.AmountPaid.StringFixed(2),
		Status:     string(inv.Status),
	}
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, ItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Amount:      item.Amount().StringFixed(2),
		})
	}
	return resp
}

// Create creates an invoice for a user of the tenant. The total is the
// sum of the line items; clients never supply totals.
// POST /v1/invoices
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if len(req.Items) == 0 {
		httputil.Error(w, http.StatusBadRequest, "at least one item is required")
		return
	}

	// The billed user must belong to this tenant.
	if _, err := h.users.GetByID(r.Context(), tenant.ID, userID); err != nil {
		httputil.Error(w, http.StatusNotFound, "user not found")
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	now := time.Now()
	inv := &domain.Invoice{
		ID:         uuid.New(),
		TenantID:   tenant.ID,
		UserID:     userID,
		Number:     fmt.Sprintf("INV-%d-%s", now.Year(), uuid.NewString()[:8]),
		Currency:   currency,
		AmountPaid: decimal.Zero,
		Status:     domain.InvoiceStatusPending,
		DueAt:      req.DueAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for _, item := range req.Items {
		unitPrice, err := decimal.NewFromString(item.UnitPrice)
		if err != nil || unitPrice.IsNegative() {
			httputil.Error(w, http.StatusBadRequest, "invalid unit_price")
			return
		}
		if item.Quantity < 1 {
			httputil.Error(w, http.StatusBadRequest, "quantity must be at least 1")
			return
		}
		inv.Items = append(inv.Items, domain.InvoiceItem{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   unitPrice,
		})
	}
	inv.Total = inv.ComputeTotal()

	if err := h.invoices.Create(r.Context(), inv); err != nil {
		h.logger.Error("invoice creation failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "invoice creation failed")
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]any{"invoice": toInvoiceResponse(inv)})
}

// List returns invoices: students see their own, finance and admins all.
// GET /v1/invoices
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var userFilter *uuid.UUID
	if !domain.FinanceOrAbove.Contains(user.Role) {
		userFilter = &user.ID
	}

	invoices, err := h.invoices.ListByTenant(r.Context(), tenant.ID, userFilter, 100, 0)
	if err != nil {
		h.logger.Error("invoice list failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "invoice list failed")
		return
	}

	resp := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		resp = append(resp, toInvoiceResponse(inv))
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"invoices": resp})
}

// Get returns one invoice with its payments. A student may only see
// their own invoice.
// GET /v1/invoices/{invoiceID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())
	user, _ := middleware.GetUser(r.Context())

	inv, ok := h.find(w, r, tenant.ID)
	if !ok {
		return
	}

	if inv.UserID != user.ID && !domain.FinanceOrAbove.Contains(user.Role) {
		httputil.Error(w, http.StatusForbidden, "access denied")
		return
	}

	payments, err := h.invoices.ListPayments(r.Context(), inv.ID)
	if err != nil {
		h.logger.Error("payment list failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "invoice lookup failed")
		return
	}

	paymentResp := make([]map[string]any, 0, len(payments))
	for _, p := range payments {
		paymentResp = append(paymentResp, map[string]any{
			"id":        p.ID.String(),
			"amount":    p.Amount.StringFixed(2),
			"method":    p.Method,
			"reference": p.Reference,
		})
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"invoice":  toInvoiceResponse(inv),
		"payments": paymentResp,
	})
}

// PaymentRequest represents a payment record.
type PaymentRequest struct {
	Amount    string `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

// RecordPayment applies a payment to an invoice and re-derives its status.
// POST /v1/invoices/{invoiceID}/payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	tenant, _ := middleware.GetTenant(r.Context())

	inv, ok := h.find(w, r, tenant.ID)
	if !ok {
		return
	}

	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		httputil.Error(w, http.StatusBadRequest, "amount must be a positive number")
		return
	}

	payment := &domain.Payment{
		ID:        uuid.New(),
		InvoiceID: inv.ID,
		Amount:    amount,
		Method:    req.Method,
		Reference: req.Reference,
		CreatedAt: time.Now(),
	}
	inv.ApplyPayment(amount)

	if err := h.invoices.RecordPayment(r.Context(), inv, payment); err != nil {
		h.logger.Error("payment recording failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "payment recording failed")
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]any{"invoice": toInvoiceResponse(inv)})
}

func (h *Handler) find(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) (*domain.Invoice, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "invoiceID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid invoice id")
		return nil, false
	}
	inv, err := h.invoices.GetByID(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			httputil.Error(w, http.StatusNotFound, "invoice not found")
		} else {
			h.logger.Error("invoice lookup failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "invoice lookup failed")
		}
		return nil, false
	}
	return inv, true
}
