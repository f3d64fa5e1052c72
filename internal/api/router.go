package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/billdesk/billdesk/internal/api/handler"
	"github.com/billdesk/billdesk/internal/api/middleware"
	"github.com/billdesk/billdesk/internal/auth"
	"github.com/billdesk/billdesk/internal/invoice"
	"github.com/billdesk/billdesk/internal/metrics"
	"github.com/billdesk/billdesk/internal/provider"
	"github.com/billdesk/billdesk/internal/settings"
	"github.com/billdesk/billdesk/internal/tier"
)

// RouterDeps holds all dependencies needed by the router. Resource routes
// are only mounted when Authenticator is set.
type RouterDeps struct {
	DBPinger    handler.DBPinger
	Provider    provider.Provider
	Version     string
	OpenAPISpec []byte
	Metrics     *metrics.Metrics

	Authenticator  middleware.Authenticator
	Users          handler.UserCreator
	UserRepo       auth.UserRepository
	TierRepo       tier.Repository
	InvoiceRepo    invoice.Repository
	SettingsRepo   settings.Repository
	Quoter         handler.Quoter
	Invoices       handler.InvoiceService
	PaymentChecker handler.PaymentChecker
	DefaultCompany string
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics(deps.Metrics))

	var checker handler.ConnectivityChecker
	if deps.Provider != nil {
		checker = deps.Provider
	}
	r.Get("/health", handler.NewHealthHandler(deps.DBPinger, checker, deps.Version).ServeHTTP)

	if len(deps.OpenAPISpec) > 0 {
		r.Get("/openapi.json", handler.NewOpenAPIHandler(deps.OpenAPISpec, deps.Version).ServeHTTP)
	}

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	if deps.Authenticator == nil {
		return r
	}

	tierHandler := handler.NewTierHandler(deps.TierRepo, deps.Quoter)
	invoiceHandler := handler.NewInvoiceHandler(deps.InvoiceRepo, deps.Invoices, deps.PaymentChecker)
	paymentHandler := handler.NewPaymentHandler(deps.Provider, deps.SettingsRepo)
	settingsHandler := handler.NewSettingsHandler(deps.SettingsRepo, deps.DefaultCompany)
	userHandler := handler.NewUserHandler(deps.Users, deps.UserRepo)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Authenticator))

		r.Route("/tiers", func(r chi.Router) {
			r.Get("/", tierHandler.List)
			r.Post("/", tierHandler.Create)
			r.Post("/bulk", tierHandler.Bulk)
			r.Post("/defaults", tierHandler.ImportDefaults)
			r.Get("/quote", tierHandler.Quote)
			r.Get("/{id}", tierHandler.GetByID)
			r.Patch("/{id}", tierHandler.Update)
			r.Delete("/{id}", tierHandler.Delete)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", invoiceHandler.List)
			r.Post("/", invoiceHandler.Create)
			r.Get("/next-number", invoiceHandler.NextNumber)
			r.Get("/stats", invoiceHandler.Stats)
			r.Get("/by-number/{number}", invoiceHandler.GetByNumber)
			r.Get("/{id}", invoiceHandler.GetByID)
			r.Delete("/{id}", invoiceHandler.Delete)
			r.Patch("/{id}/status", invoiceHandler.UpdateStatus)
			r.Post("/{id}/check-payment", invoiceHandler.CheckPayment)
		})

		r.Get("/payments/transfers", paymentHandler.Transfers)

		r.Get("/settings", settingsHandler.Get)
		r.Put("/settings", settingsHandler.Update)

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)
			r.Delete("/{id}", userHandler.Delete)
		})
	})

	return r
}
