package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billdesk/billdesk/internal/api/middleware"
	"github.com/billdesk/billdesk/internal/api/response"
	"github.com/billdesk/billdesk/internal/api/validation"
	"github.com/billdesk/billdesk/internal/invoice"
	"github.com/billdesk/billdesk/internal/pricing"
	"github.com/billdesk/billdesk/internal/reconciler"
)

// InvoiceService creates invoices and previews invoice numbers.
type InvoiceService interface {
	Create(ctx context.Context, ownerID uuid.UUID, in invoice.CreateInput) (*invoice.Invoice, error)
	NextNumber(ctx context.Context) (string, error)
}

// PaymentChecker looks up an on-chain payment for a single invoice.
type PaymentChecker interface {
	CheckInvoice(ctx context.Context, inv *invoice.Invoice) (*reconciler.Match, error)
}

type invoiceItemRequest struct {
	Credits int64            `json:"credits"`
	Price   *decimal.Decimal `json:"price"`
}

// createInvoiceRequest is the request body for POST /invoices.
type createInvoiceRequest struct {
	Items         []invoiceItemRequest `json:"items"`
	WalletAddress string               `json:"walletAddress"`
	CustomerNote  string               `json:"customerNote"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type invoiceItemResponse struct {
	ID        string `json:"id"`
	Credits   int64  `json:"credits"`
	Price     string `json:"price"`
	SortOrder int    `json:"sortOrder"`
}

type invoiceResponse struct {
	ID            string                `json:"id"`
	Number        string                `json:"invoiceNumber"`
	CustomerNote  string                `json:"customerNote"`
	TotalCredits  int64                 `json:"totalCredits"`
	TotalAmount   string                `json:"totalAmount"`
	WalletAddress string                `json:"walletAddress"`
	Status        string                `json:"status"`
	TransactionID *string               `json:"transactionId"`
	PaidAt        *string               `json:"paidAt"`
	CreatedAt     string                `json:"createdAt"`
	UpdatedAt     string                `json:"updatedAt"`
	Items         []invoiceItemResponse `json:"items,omitempty"`
}

type monthlyStatResponse struct {
	Month  string `json:"month"`
	Amount string `json:"amount"`
	Count  int    `json:"count"`
}

type statsResponse struct {
	TotalAmount    string                `json:"totalAmount"`
	TotalCredits   int64                 `json:"totalCredits"`
	InvoiceCount   int                   `json:"invoiceCount"`
	PaidCount      int                   `json:"paidCount"`
	PendingCount   int                   `json:"pendingCount"`
	CancelledCount int                   `json:"cancelledCount"`
	Monthly        []monthlyStatResponse `json:"monthly"`
}

type checkPaymentResponse struct {
	Paid          bool            `json:"paid"`
	TransactionID *string         `json:"transactionId"`
	Invoice       invoiceResponse `json:"invoice"`
}

func toInvoiceResponse(inv *invoice.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:            inv.ID.String(),
		Number:        inv.Number,
		CustomerNote:  inv.CustomerNote,
		TotalCredits:  inv.TotalCredits,
		TotalAmount:   money(inv.TotalAmount),
		WalletAddress: inv.WalletAddress,
		Status:        inv.Status,
		TransactionID: inv.TransactionID,
		CreatedAt:     formatTime(inv.CreatedAt),
		UpdatedAt:     formatTime(inv.UpdatedAt),
	}
	if inv.PaidAt != nil {
		paid := formatTime(*inv.PaidAt)
		resp.PaidAt = &paid
	}
	for _, it := range inv.Items {
		resp.Items = append(resp.Items, invoiceItemResponse{
			ID:        it.ID.String(),
			Credits:   it.Credits,
			Price:     money(it.Price),
			SortOrder: it.SortOrder,
		})
	}
	return resp
}

// InvoiceHandler handles invoice endpoints.
type InvoiceHandler struct {
	repo    invoice.Repository
	service InvoiceService
	checker PaymentChecker
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(repo invoice.Repository, service InvoiceService, checker PaymentChecker) *InvoiceHandler {
	return &InvoiceHandler{repo: repo, service: service, checker: checker}
}

// Create handles POST /invoices.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req createInvoiceRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}

	items := make([]validation.InvoiceItem, 0, len(req.Items))
	inputs := make([]invoice.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, validation.InvoiceItem{Credits: it.Credits, Price: it.Price})
		inputs = append(inputs, invoice.ItemInput{Credits: it.Credits, Price: it.Price})
	}

	fieldErrors := validation.ValidateCreateInvoiceRequest(validation.CreateInvoiceRequest{
		Items:         items,
		WalletAddress: req.WalletAddress,
		CustomerNote:  req.CustomerNote,
	})
	if len(fieldErrors) > 0 {
		response.ValidationFailed(w, fieldErrors, requestID)
		return
	}

	inv, err := h.service.Create(r.Context(), ownerID(r), invoice.CreateInput{
		Items:         inputs,
		WalletAddress: req.WalletAddress,
		CustomerNote:  req.CustomerNote,
	})
	if err != nil {
		switch {
		case errors.Is(err, pricing.ErrNoPricingData):
			response.Err(w, http.StatusUnprocessableEntity, "NO_PRICING_DATA", "No price tiers are configured; give every item a price", requestID)
		case errors.Is(err, pricing.ErrInvalidCredits):
			response.Err(w, http.StatusBadRequest, "INVALID_CREDITS", "credits must be a positive integer", requestID)
		case errors.Is(err, invoice.ErrWalletRequired):
			response.Err(w, http.StatusUnprocessableEntity, "WALLET_REQUIRED", "No wallet address given and none configured in settings", requestID)
		case errors.Is(err, invoice.ErrNoItems):
			response.ValidationFailed(w, []validation.FieldError{{Field: "items", Message: err.Error()}}, requestID)
		case errors.Is(err, invoice.ErrDuplicateNumber):
			response.Err(w, http.StatusConflict, "DUPLICATE_NUMBER", "Could not allocate a free invoice number; retry the request", requestID)
		default:
			slog.Error("failed to create invoice", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create invoice", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, toInvoiceResponse(inv), requestID)
}

// List handles GET /invoices.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()

	filter := invoice.ListFilter{
		OwnerID: ownerID(r),
		Page:    1,
		Limit:   20,
	}

	if v := strings.TrimSpace(q.Get("search")); v != "" {
		filter.Search = &v
	}
	if v := q.Get("status"); v != "" {
		if errs := validation.ValidateStatus("status", v); len(errs) > 0 {
			response.ValidationFailed(w, errs, requestID)
			return
		}
		filter.Status = &v
	}
	if v := q.Get("from"); v != "" {
		from, err := parseDate(v, false)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_PARAM", "from must be a date (YYYY-MM-DD) or RFC 3339 timestamp", requestID)
			return
		}
		filter.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := parseDate(v, true)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_PARAM", "to must be a date (YYYY-MM-DD) or RFC 3339 timestamp", requestID)
			return
		}
		filter.To = &to
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			response.Err(w, http.StatusBadRequest, "INVALID_PARAM", "page must be a positive integer", requestID)
			return
		}
		filter.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 100 {
			response.Err(w, http.StatusBadRequest, "INVALID_PARAM", "limit must be an integer between 1 and 100", requestID)
			return
		}
		filter.Limit = limit
	}

	result, err := h.repo.List(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list invoices", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list invoices", requestID)
		return
	}

	items := make([]invoiceResponse, 0, len(result.Invoices))
	for i := range result.Invoices {
		items = append(items, toInvoiceResponse(&result.Invoices[i]))
	}
	response.SuccessList(w, http.StatusOK, items, result.Total, result.Page, result.Limit, requestID)
}

// parseDate accepts YYYY-MM-DD or RFC 3339. A bare date used as an upper
// bound covers the whole day.
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// NextNumber handles GET /invoices/next-number.
func (h *InvoiceHandler) NextNumber(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	number, err := h.service.NextNumber(r.Context())
	if err != nil {
		slog.Error("failed to generate invoice number", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate invoice number", requestID)
		return
	}

	response.Success(w, http.StatusOK, map[string]string{"invoiceNumber": number}, requestID)
}

// Stats handles GET /invoices/stats.
func (h *InvoiceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	s, err := h.repo.Stats(r.Context(), ownerID(r))
	if err != nil {
		slog.Error("failed to compute invoice stats", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute invoice stats", requestID)
		return
	}

	resp := statsResponse{
		TotalAmount:    money(s.TotalAmount),
		TotalCredits:   s.TotalCredits,
		InvoiceCount:   s.InvoiceCount,
		PaidCount:      s.PaidCount,
		PendingCount:   s.PendingCount,
		CancelledCount: s.CancelledCount,
		Monthly:        make([]monthlyStatResponse, 0, len(s.Monthly)),
	}
	for _, m := range s.Monthly {
		resp.Monthly = append(resp.Monthly, monthlyStatResponse{
			Month:  m.Month,
			Amount: money(m.Amount),
			Count:  m.Count,
		})
	}

	response.Success(w, http.StatusOK, resp, requestID)
}

// GetByNumber handles GET /invoices/by-number/{number}. The leading '#' may
// be omitted or percent-encoded.
func (h *InvoiceHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	number, err := url.PathUnescape(chi.URLParam(r, "number"))
	if err != nil || number == "" {
		response.Err(w, http.StatusBadRequest, "INVALID_PARAM", "number must be an invoice number", requestID)
		return
	}
	if !strings.HasPrefix(number, "#") {
		number = "#" + number
	}

	inv, err := h.repo.GetByNumber(r.Context(), ownerID(r), number)
	if err != nil {
		h.writeLookupError(w, err, "number", number, requestID)
		return
	}

	response.Success(w, http.StatusOK, toInvoiceResponse(inv), requestID)
}

// GetByID handles GET /invoices/{id}.
func (h *InvoiceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	inv, err := h.repo.GetByID(r.Context(), ownerID(r), id)
	if err != nil {
		h.writeLookupError(w, err, "id", id, requestID)
		return
	}

	response.Success(w, http.StatusOK, toInvoiceResponse(inv), requestID)
}

func (h *InvoiceHandler) writeLookupError(w http.ResponseWriter, err error, key string, value any, requestID string) {
	if errors.Is(err, invoice.ErrInvoiceNotFound) {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Invoice not found", requestID)
		return
	}
	slog.Error("failed to get invoice", "error", err, key, value)
	response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get invoice", requestID)
}

// UpdateStatus handles PATCH /invoices/{id}/status.
func (h *InvoiceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	var req updateStatusRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if errs := validation.ValidateStatus("status", req.Status); len(errs) > 0 {
		response.ValidationFailed(w, errs, requestID)
		return
	}

	inv, err := h.repo.UpdateStatus(r.Context(), ownerID(r), id, req.Status)
	if err != nil {
		if errors.Is(err, invoice.ErrInvoiceNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Invoice not found", requestID)
			return
		}
		slog.Error("failed to update invoice status", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update invoice status", requestID)
		return
	}

	response.Success(w, http.StatusOK, toInvoiceResponse(inv), requestID)
}

// CheckPayment handles POST /invoices/{id}/check-payment.
func (h *InvoiceHandler) CheckPayment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	inv, err := h.repo.GetByID(r.Context(), ownerID(r), id)
	if err != nil {
		h.writeLookupError(w, err, "id", id, requestID)
		return
	}

	if inv.Status != invoice.StatusPending {
		response.Success(w, http.StatusOK, checkPaymentResponse{
			Paid:          inv.Status == invoice.StatusPaid,
			TransactionID: inv.TransactionID,
			Invoice:       toInvoiceResponse(inv),
		}, requestID)
		return
	}

	match, err := h.checker.CheckInvoice(r.Context(), inv)
	if err != nil {
		switch {
		case errors.Is(err, invoice.ErrWalletRequired):
			response.Err(w, http.StatusUnprocessableEntity, "WALLET_REQUIRED", "Invoice has no wallet address", requestID)
		case errors.Is(err, reconciler.ErrProvider):
			slog.Warn("payment provider request failed", "error", err, "invoice", inv.Number)
			response.Err(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Payment provider is unavailable", requestID)
		default:
			slog.Error("failed to check invoice payment", "error", err, "invoice", inv.Number)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check payment", requestID)
		}
		return
	}

	if match == nil {
		response.Success(w, http.StatusOK, checkPaymentResponse{Invoice: toInvoiceResponse(inv)}, requestID)
		return
	}

	txID := match.Transfer.TransactionID
	response.Success(w, http.StatusOK, checkPaymentResponse{
		Paid:          true,
		TransactionID: &txID,
		Invoice:       toInvoiceResponse(match.Invoice),
	}, requestID)
}

// Delete handles DELETE /invoices/{id}.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), ownerID(r), id); err != nil {
		if errors.Is(err, invoice.ErrInvoiceNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Invoice not found", requestID)
			return
		}
		slog.Error("failed to delete invoice", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete invoice", requestID)
		return
	}

	response.NoContent(w)
}
