package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/billdesk/billdesk/internal/api/middleware"
	"github.com/billdesk/billdesk/internal/api/response"
	"github.com/billdesk/billdesk/internal/api/validation"
	"github.com/billdesk/billdesk/internal/provider"
	"github.com/billdesk/billdesk/internal/settings"
)

const (
	defaultTransferLimit = 20
	maxTransferLimit     = 200
)

// TransferLister lists incoming transfers for a wallet.
type TransferLister interface {
	IncomingTransfers(ctx context.Context, q provider.TransferQuery) ([]provider.Transfer, error)
}

type transferResponse struct {
	TransactionID string `json:"transactionId"`
	From          string `json:"from"`
	To            string `json:"to"`
	Amount        string `json:"amount"`
	RawValue      string `json:"rawValue"`
	Timestamp     string `json:"timestamp"`
}

// PaymentHandler exposes recent on-chain transfers.
type PaymentHandler struct {
	transfers TransferLister
	settings  settings.Repository
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(transfers TransferLister, settingsRepo settings.Repository) *PaymentHandler {
	return &PaymentHandler{transfers: transfers, settings: settingsRepo}
}

// Transfers handles GET /payments/transfers. Without an address the owner's
// configured wallet is used.
func (h *PaymentHandler) Transfers(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()

	limit := defaultTransferLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxTransferLimit {
			response.Err(w, http.StatusBadRequest, "INVALID_PARAM", "limit must be an integer between 1 and 200", requestID)
			return
		}
		limit = n
	}

	address := strings.TrimSpace(q.Get("address"))
	if address == "" {
		s, err := h.settings.Get(r.Context(), ownerID(r))
		if err != nil && !errors.Is(err, settings.ErrSettingsNotFound) {
			slog.Error("failed to load settings", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list transfers", requestID)
			return
		}
		if s != nil {
			address = s.WalletAddress
		}
	}
	if address == "" {
		response.Err(w, http.StatusUnprocessableEntity, "WALLET_REQUIRED", "No address given and no wallet configured in settings", requestID)
		return
	}
	if !validation.TronAddressRegex.MatchString(address) {
		response.ValidationFailed(w, []validation.FieldError{{Field: "address", Message: "address must be a Tron address"}}, requestID)
		return
	}

	transfers, err := h.transfers.IncomingTransfers(r.Context(), provider.TransferQuery{
		Address: address,
		Limit:   limit,
	})
	if err != nil {
		slog.Warn("payment provider request failed", "error", err, "address", address)
		response.Err(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Payment provider is unavailable", requestID)
		return
	}

	items := make([]transferResponse, 0, len(transfers))
	for _, tr := range transfers {
		items = append(items, transferResponse{
			TransactionID: tr.TransactionID,
			From:          tr.From,
			To:            tr.To,
			Amount:        tr.Amount.String(),
			RawValue:      tr.RawValue,
			Timestamp:     formatTime(tr.Timestamp),
		})
	}
	response.SuccessList(w, http.StatusOK, items, len(items), 1, limit, requestID)
}
