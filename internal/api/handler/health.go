package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/billdesk/billdesk/internal/api/middleware"
	"github.com/billdesk/billdesk/internal/api/response"
	"github.com/billdesk/billdesk/internal/provider"
)

// healthTimeout bounds each dependency check.
const healthTimeout = 3 * time.Second

// DBPinger checks database reachability. *pgxpool.Pool satisfies it.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ConnectivityChecker reports whether the payment provider is reachable.
type ConnectivityChecker interface {
	CheckConnectivity(ctx context.Context) provider.ConnectivityStatus
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	pinger  DBPinger
	checker ConnectivityChecker
	version string
}

// NewHealthHandler creates a new HealthHandler. Either dependency may be nil,
// in which case it is reported as disconnected.
func NewHealthHandler(pinger DBPinger, checker ConnectivityChecker, version string) *HealthHandler {
	return &HealthHandler{
		pinger:  pinger,
		checker: checker,
		version: version,
	}
}

type databaseStatus struct {
	Connected bool `json:"connected"`
}

type tronGridStatus struct {
	Connected   bool   `json:"connected"`
	LatestBlock *int64 `json:"latestBlock"`
}

type healthData struct {
	Status   string         `json:"status"`
	Version  string         `json:"version"`
	Database databaseStatus `json:"database"`
	TronGrid tronGridStatus `json:"trongrid"`
}

// ServeHTTP handles the health check request. A missing database makes the
// service unhealthy (503); an unreachable TronGrid only degrades it.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	dbOK := false
	if h.pinger != nil {
		if err := h.pinger.Ping(ctx); err != nil {
			slog.Warn("health: database ping failed", "error", err)
		} else {
			dbOK = true
		}
	}

	var tron provider.ConnectivityStatus
	if h.checker != nil {
		tron = h.checker.CheckConnectivity(ctx)
	}

	data := healthData{
		Status:   "healthy",
		Version:  h.version,
		Database: databaseStatus{Connected: dbOK},
		TronGrid: tronGridStatus{Connected: tron.Connected},
	}
	if tron.Connected {
		block := tron.LatestBlock
		data.TronGrid.LatestBlock = &block
	}

	status := http.StatusOK
	switch {
	case !dbOK:
		data.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	case !tron.Connected:
		data.Status = "degraded"
	}

	response.Success(w, status, data, requestID)
}
