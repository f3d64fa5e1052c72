package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billdesk/billdesk/internal/api/middleware"
	"github.com/billdesk/billdesk/internal/api/response"
	"github.com/billdesk/billdesk/internal/api/validation"
	"github.com/billdesk/billdesk/internal/pricing"
	"github.com/billdesk/billdesk/internal/tier"
)

// Quoter prices a credits amount against an owner's tiers.
type Quoter interface {
	Quote(ctx context.Context, ownerID uuid.UUID, credits int64) (pricing.Quote, error)
}

// tierRequest is the request body for POST /tiers and one row of POST /tiers/bulk.
type tierRequest struct {
	Credits    int64            `json:"credits"`
	MinNumbers int              `json:"minNumbers"`
	MaxNumbers int              `json:"maxNumbers"`
	UnitPrice  *decimal.Decimal `json:"unitPrice"`
	Price      *decimal.Decimal `json:"price"`
	SortOrder  int              `json:"sortOrder"`
}

type bulkTierRequest struct {
	Tiers []tierRequest `json:"tiers"`
}

// updateTierRequest is the request body for PATCH /tiers/{id}.
type updateTierRequest struct {
	Credits    *int64           `json:"credits"`
	MinNumbers *int             `json:"minNumbers"`
	MaxNumbers *int             `json:"maxNumbers"`
	UnitPrice  *decimal.Decimal `json:"unitPrice"`
	Price      *decimal.Decimal `json:"price"`
	SortOrder  *int             `json:"sortOrder"`
}

type tierResponse struct {
	ID         string `json:"id"`
	Credits    int64  `json:"credits"`
	MinNumbers int    `json:"minNumbers"`
	MaxNumbers int    `json:"maxNumbers"`
	UnitPrice  string `json:"unitPrice"`
	Price      string `json:"price"`
	SortOrder  int    `json:"sortOrder"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

type bulkTierResponse struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

type quoteResponse struct {
	Credits   int64  `json:"credits"`
	Price     string `json:"price"`
	UnitPrice string `json:"unitPrice"`
	IsExact   bool   `json:"isExact"`
	Basis     string `json:"basis"`
}

func toTierResponse(t *tier.Tier) tierResponse {
	return tierResponse{
		ID:         t.ID.String(),
		Credits:    t.Credits,
		MinNumbers: t.MinNumbers,
		MaxNumbers: t.MaxNumbers,
		UnitPrice:  t.UnitPrice.StringFixed(6),
		Price:      money(t.Price),
		SortOrder:  t.SortOrder,
		CreatedAt:  formatTime(t.CreatedAt),
		UpdatedAt:  formatTime(t.UpdatedAt),
	}
}

func (req tierRequest) validationRequest() validation.CreateTierRequest {
	return validation.CreateTierRequest{
		Credits:    req.Credits,
		MinNumbers: req.MinNumbers,
		MaxNumbers: req.MaxNumbers,
		UnitPrice:  req.UnitPrice,
		Price:      req.Price,
	}
}

// toTier builds a row from a validated request. A missing unit price is
// derived from the package price.
func (req tierRequest) toTier(owner uuid.UUID) (tier.Tier, error) {
	t := tier.Tier{
		OwnerID:    owner,
		Credits:    req.Credits,
		MinNumbers: req.MinNumbers,
		MaxNumbers: req.MaxNumbers,
		Price:      *req.Price,
		SortOrder:  req.SortOrder,
	}
	if req.UnitPrice != nil {
		t.UnitPrice = *req.UnitPrice
		return t, nil
	}
	unit, err := pricing.UnitPriceFor(t.Price, t.Credits)
	if err != nil {
		return tier.Tier{}, err
	}
	t.UnitPrice = unit
	return t, nil
}

// TierHandler handles price tier endpoints.
type TierHandler struct {
	repo   tier.Repository
	quoter Quoter
}

// NewTierHandler creates a new TierHandler.
func NewTierHandler(repo tier.Repository, quoter Quoter) *TierHandler {
	return &TierHandler{repo: repo, quoter: quoter}
}

// Create handles POST /tiers.
func (h *TierHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req tierRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}

	if fieldErrors := validation.ValidateCreateTierRequest(req.validationRequest()); len(fieldErrors) > 0 {
		response.ValidationFailed(w, fieldErrors, requestID)
		return
	}

	t, err := req.toTier(ownerID(r))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_CREDITS", err.Error(), requestID)
		return
	}

	if err := h.repo.Create(r.Context(), &t); err != nil {
		if errors.Is(err, tier.ErrDuplicateCredits) {
			response.Err(w, http.StatusConflict, "DUPLICATE_CREDITS", fmt.Sprintf("A tier for %d credits already exists", t.Credits), requestID)
			return
		}
		slog.Error("failed to create tier", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create tier", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toTierResponse(&t), requestID)
}

// Bulk handles POST /tiers/bulk. Rows whose credits already exist are skipped.
func (h *TierHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req bulkTierRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}

	rows := make([]validation.CreateTierRequest, 0, len(req.Tiers))
	for _, t := range req.Tiers {
		rows = append(rows, t.validationRequest())
	}
	if fieldErrors := validation.ValidateBulkTierRequest(rows); len(fieldErrors) > 0 {
		response.ValidationFailed(w, fieldErrors, requestID)
		return
	}

	owner := ownerID(r)
	tiers := make([]tier.Tier, 0, len(req.Tiers))
	for i, row := range req.Tiers {
		t, err := row.toTier(owner)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_CREDITS", err.Error(), requestID)
			return
		}
		if row.SortOrder == 0 {
			t.SortOrder = i
		}
		tiers = append(tiers, t)
	}

	h.bulkCreate(w, r, owner, tiers, requestID)
}

// ImportDefaults handles POST /tiers/defaults, seeding the standard package table.
func (h *TierHandler) ImportDefaults(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	owner := ownerID(r)
	h.bulkCreate(w, r, owner, tier.FromDefaults(owner), requestID)
}

func (h *TierHandler) bulkCreate(w http.ResponseWriter, r *http.Request, owner uuid.UUID, tiers []tier.Tier, requestID string) {
	inserted, err := h.repo.BulkCreate(r.Context(), owner, tiers)
	if err != nil {
		slog.Error("failed to import tiers", "error", err, "rows", len(tiers))
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to import tiers", requestID)
		return
	}

	response.Success(w, http.StatusCreated, bulkTierResponse{
		Inserted: inserted,
		Skipped:  len(tiers) - inserted,
	}, requestID)
}

// List handles GET /tiers.
func (h *TierHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	tiers, err := h.repo.List(r.Context(), ownerID(r))
	if err != nil {
		slog.Error("failed to list tiers", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list tiers", requestID)
		return
	}

	items := make([]tierResponse, 0, len(tiers))
	for i := range tiers {
		items = append(items, toTierResponse(&tiers[i]))
	}
	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// Quote handles GET /tiers/quote?credits=N.
func (h *TierHandler) Quote(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	credits, err := strconv.ParseInt(r.URL.Query().Get("credits"), 10, 64)
	if err != nil || credits <= 0 {
		response.Err(w, http.StatusBadRequest, "INVALID_CREDITS", "credits must be a positive integer", requestID)
		return
	}

	q, err := h.quoter.Quote(r.Context(), ownerID(r), credits)
	if err != nil {
		switch {
		case errors.Is(err, pricing.ErrNoPricingData):
			response.Err(w, http.StatusUnprocessableEntity, "NO_PRICING_DATA", "No price tiers are configured", requestID)
		case errors.Is(err, pricing.ErrInvalidCredits):
			response.Err(w, http.StatusBadRequest, "INVALID_CREDITS", "credits must be a positive integer", requestID)
		default:
			slog.Error("failed to quote", "error", err, "credits", credits)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute price", requestID)
		}
		return
	}

	response.Success(w, http.StatusOK, quoteResponse{
		Credits:   credits,
		Price:     money(q.Price),
		UnitPrice: q.UnitPrice.StringFixed(6),
		IsExact:   q.IsExact,
		Basis:     string(q.Basis),
	}, requestID)
}

// GetByID handles GET /tiers/{id}.
func (h *TierHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	t, err := h.repo.GetByID(r.Context(), ownerID(r), id)
	if err != nil {
		if errors.Is(err, tier.ErrTierNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Tier not found", requestID)
			return
		}
		slog.Error("failed to get tier", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get tier", requestID)
		return
	}

	response.Success(w, http.StatusOK, toTierResponse(t), requestID)
}

// Update handles PATCH /tiers/{id}.
func (h *TierHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	var req updateTierRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}

	fieldErrors := validation.ValidateUpdateTierRequest(validation.UpdateTierRequest{
		Credits:    req.Credits,
		MinNumbers: req.MinNumbers,
		MaxNumbers: req.MaxNumbers,
		UnitPrice:  req.UnitPrice,
		Price:      req.Price,
		SortOrder:  req.SortOrder,
	})
	if len(fieldErrors) > 0 {
		response.ValidationFailed(w, fieldErrors, requestID)
		return
	}

	t, err := h.repo.Update(r.Context(), ownerID(r), id, tier.UpdateFields{
		Credits:    req.Credits,
		MinNumbers: req.MinNumbers,
		MaxNumbers: req.MaxNumbers,
		UnitPrice:  req.UnitPrice,
		Price:      req.Price,
		SortOrder:  req.SortOrder,
	})
	if err != nil {
		switch {
		case errors.Is(err, tier.ErrTierNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Tier not found", requestID)
		case errors.Is(err, tier.ErrDuplicateCredits):
			response.Err(w, http.StatusConflict, "DUPLICATE_CREDITS", "A tier with these credits already exists", requestID)
		default:
			slog.Error("failed to update tier", "error", err, "id", id)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update tier", requestID)
		}
		return
	}

	response.Success(w, http.StatusOK, toTierResponse(t), requestID)
}

// Delete handles DELETE /tiers/{id}.
func (h *TierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), ownerID(r), id); err != nil {
		if errors.Is(err, tier.ErrTierNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Tier not found", requestID)
			return
		}
		slog.Error("failed to delete tier", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete tier", requestID)
		return
	}

	response.NoContent(w)
}
