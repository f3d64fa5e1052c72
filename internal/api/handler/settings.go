package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/billdesk/billdesk/internal/api/middleware"
	"github.com/billdesk/billdesk/internal/api/response"
	"github.com/billdesk/billdesk/internal/api/validation"
	"github.com/billdesk/billdesk/internal/settings"
)

type updateSettingsRequest struct {
	WalletAddress *string `json:"walletAddress"`
	CompanyName   *string `json:"companyName"`
}

type settingsResponse struct {
	WalletAddress string  `json:"walletAddress"`
	CompanyName   string  `json:"companyName"`
	UpdatedAt     *string `json:"updatedAt"`
}

func toSettingsResponse(s *settings.Settings) settingsResponse {
	resp := settingsResponse{
		WalletAddress: s.WalletAddress,
		CompanyName:   s.CompanyName,
	}
	if !s.UpdatedAt.IsZero() {
		updated := formatTime(s.UpdatedAt)
		resp.UpdatedAt = &updated
	}
	return resp
}

// SettingsHandler handles the per-user settings endpoints.
type SettingsHandler struct {
	repo           settings.Repository
	defaultCompany string
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(repo settings.Repository, defaultCompany string) *SettingsHandler {
	return &SettingsHandler{repo: repo, defaultCompany: defaultCompany}
}

// Get handles GET /settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	s, err := settings.Load(r.Context(), h.repo, ownerID(r), h.defaultCompany)
	if err != nil {
		slog.Error("failed to load settings", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load settings", requestID)
		return
	}

	response.Success(w, http.StatusOK, toSettingsResponse(s), requestID)
}

// Update handles PUT /settings. Omitted fields keep their stored value.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req updateSettingsRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}

	fieldErrors := validation.ValidateUpdateSettingsRequest(validation.UpdateSettingsRequest{
		WalletAddress: req.WalletAddress,
		CompanyName:   req.CompanyName,
	})
	if len(fieldErrors) > 0 {
		response.ValidationFailed(w, fieldErrors, requestID)
		return
	}

	s, err := settings.Load(r.Context(), h.repo, ownerID(r), h.defaultCompany)
	if err != nil {
		slog.Error("failed to load settings", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update settings", requestID)
		return
	}

	if req.WalletAddress != nil {
		s.WalletAddress = strings.TrimSpace(*req.WalletAddress)
	}
	if req.CompanyName != nil {
		if name := strings.TrimSpace(*req.CompanyName); name != "" {
			s.CompanyName = name
		} else {
			s.CompanyName = h.defaultCompany
		}
	}

	if err := h.repo.Upsert(r.Context(), s); err != nil {
		slog.Error("failed to save settings", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update settings", requestID)
		return
	}

	response.Success(w, http.StatusOK, toSettingsResponse(s), requestID)
}
