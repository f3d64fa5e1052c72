package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/billdesk/billdesk/internal/api/middleware"
	"github.com/billdesk/billdesk/internal/auth"
	"github.com/billdesk/billdesk/internal/invoice"
	"github.com/billdesk/billdesk/internal/pricing"
	"github.com/billdesk/billdesk/internal/provider"
	"github.com/billdesk/billdesk/internal/reconciler"
	"github.com/billdesk/billdesk/internal/settings"
	"github.com/billdesk/billdesk/internal/tier"
)

const testWallet = "TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf"

var testOwner = &auth.Identity{UserID: uuid.New(), UserName: "alice", Role: auth.RoleOperator}

// makeChiRequest builds a request authenticated as testOwner with the given
// chi URL params.
func makeChiRequest(method, path string, body []byte, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	ctx := middleware.WithIdentity(req.Context(), testOwner)
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	return req.WithContext(ctx), httptest.NewRecorder()
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "failed to parse response body")
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := parseEnvelope(t, w)
	errObj, ok := env["error"].(map[string]any)
	require.True(t, ok, "expected error object, got %s", w.Body.String())
	return errObj["code"].(string)
}

func dataObject(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	env := parseEnvelope(t, w)
	data, ok := env["data"].(map[string]any)
	require.True(t, ok, "expected data object, got %s", w.Body.String())
	return data
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// --- tier.Repository ---

type mockTierRepo struct {
	createFn     func(ctx context.Context, t *tier.Tier) error
	getByIDFn    func(ctx context.Context, ownerID, id uuid.UUID) (*tier.Tier, error)
	listFn       func(ctx context.Context, ownerID uuid.UUID) ([]tier.Tier, error)
	updateFn     func(ctx context.Context, ownerID, id uuid.UUID, fields tier.UpdateFields) (*tier.Tier, error)
	deleteFn     func(ctx context.Context, ownerID, id uuid.UUID) error
	bulkCreateFn func(ctx context.Context, ownerID uuid.UUID, tiers []tier.Tier) (int, error)
}

func (m *mockTierRepo) Create(ctx context.Context, t *tier.Tier) error {
	return m.createFn(ctx, t)
}

func (m *mockTierRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*tier.Tier, error) {
	return m.getByIDFn(ctx, ownerID, id)
}

func (m *mockTierRepo) List(ctx context.Context, ownerID uuid.UUID) ([]tier.Tier, error) {
	return m.listFn(ctx, ownerID)
}

func (m *mockTierRepo) Update(ctx context.Context, ownerID, id uuid.UUID, fields tier.UpdateFields) (*tier.Tier, error) {
	return m.updateFn(ctx, ownerID, id, fields)
}

func (m *mockTierRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return m.deleteFn(ctx, ownerID, id)
}

func (m *mockTierRepo) BulkCreate(ctx context.Context, ownerID uuid.UUID, tiers []tier.Tier) (int, error) {
	return m.bulkCreateFn(ctx, ownerID, tiers)
}

// --- handler.Quoter ---

type mockQuoter struct {
	quoteFn func(ctx context.Context, ownerID uuid.UUID, credits int64) (pricing.Quote, error)
}

func (m *mockQuoter) Quote(ctx context.Context, ownerID uuid.UUID, credits int64) (pricing.Quote, error) {
	return m.quoteFn(ctx, ownerID, credits)
}

// --- invoice.Repository ---

type mockInvoiceRepo struct {
	createFn       func(ctx context.Context, inv *invoice.Invoice) error
	getByIDFn      func(ctx context.Context, ownerID, id uuid.UUID) (*invoice.Invoice, error)
	getByNumberFn  func(ctx context.Context, ownerID uuid.UUID, number string) (*invoice.Invoice, error)
	listFn         func(ctx context.Context, filter invoice.ListFilter) (*invoice.ListResult, error)
	updateStatusFn func(ctx context.Context, ownerID, id uuid.UUID, status string) (*invoice.Invoice, error)
	markPaidFn     func(ctx context.Context, id uuid.UUID, p invoice.Payment) (*invoice.Invoice, error)
	listPendingFn  func(ctx context.Context, f invoice.PendingFilter) ([]invoice.Invoice, error)
	deleteFn       func(ctx context.Context, ownerID, id uuid.UUID) error
	numberExistsFn func(ctx context.Context, number string) (bool, error)
	statsFn        func(ctx context.Context, ownerID uuid.UUID) (*invoice.Stats, error)
}

func (m *mockInvoiceRepo) Create(ctx context.Context, inv *invoice.Invoice) error {
	return m.createFn(ctx, inv)
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*invoice.Invoice, error) {
	return m.getByIDFn(ctx, ownerID, id)
}

func (m *mockInvoiceRepo) GetByNumber(ctx context.Context, ownerID uuid.UUID, number string) (*invoice.Invoice, error) {
	return m.getByNumberFn(ctx, ownerID, number)
}

func (m *mockInvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) (*invoice.ListResult, error) {
	return m.listFn(ctx, filter)
}

func (m *mockInvoiceRepo) UpdateStatus(ctx context.Context, ownerID, id uuid.UUID, status string) (*invoice.Invoice, error) {
	return m.updateStatusFn(ctx, ownerID, id, status)
}

func (m *mockInvoiceRepo) MarkPaid(ctx context.Context, id uuid.UUID, p invoice.Payment) (*invoice.Invoice, error) {
	return m.markPaidFn(ctx, id, p)
}

func (m *mockInvoiceRepo) ListPending(ctx context.Context, f invoice.PendingFilter) ([]invoice.Invoice, error) {
	return m.listPendingFn(ctx, f)
}

func (m *mockInvoiceRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return m.deleteFn(ctx, ownerID, id)
}

func (m *mockInvoiceRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	return m.numberExistsFn(ctx, number)
}

func (m *mockInvoiceRepo) Stats(ctx context.Context, ownerID uuid.UUID) (*invoice.Stats, error) {
	return m.statsFn(ctx, ownerID)
}

// --- handler.InvoiceService ---

type mockInvoiceService struct {
	createFn     func(ctx context.Context, ownerID uuid.UUID, in invoice.CreateInput) (*invoice.Invoice, error)
	nextNumberFn func(ctx context.Context) (string, error)
}

func (m *mockInvoiceService) Create(ctx context.Context, ownerID uuid.UUID, in invoice.CreateInput) (*invoice.Invoice, error) {
	return m.createFn(ctx, ownerID, in)
}

func (m *mockInvoiceService) NextNumber(ctx context.Context) (string, error) {
	return m.nextNumberFn(ctx)
}

// --- handler.PaymentChecker ---

type mockPaymentChecker struct {
	checkFn func(ctx context.Context, inv *invoice.Invoice) (*reconciler.Match, error)
}

func (m *mockPaymentChecker) CheckInvoice(ctx context.Context, inv *invoice.Invoice) (*reconciler.Match, error) {
	return m.checkFn(ctx, inv)
}

// --- settings.Repository ---

type mockSettingsRepo struct {
	getFn    func(ctx context.Context, ownerID uuid.UUID) (*settings.Settings, error)
	upsertFn func(ctx context.Context, s *settings.Settings) error
}

func (m *mockSettingsRepo) Get(ctx context.Context, ownerID uuid.UUID) (*settings.Settings, error) {
	return m.getFn(ctx, ownerID)
}

func (m *mockSettingsRepo) Upsert(ctx context.Context, s *settings.Settings) error {
	return m.upsertFn(ctx, s)
}

// --- provider.Provider ---

type mockProvider struct {
	transfersFn func(ctx context.Context, q provider.TransferQuery) ([]provider.Transfer, error)
	status      provider.ConnectivityStatus
}

func (m *mockProvider) IncomingTransfers(ctx context.Context, q provider.TransferQuery) ([]provider.Transfer, error) {
	return m.transfersFn(ctx, q)
}

func (m *mockProvider) CheckConnectivity(_ context.Context) provider.ConnectivityStatus {
	return m.status
}

// --- auth ---

type mockUserRepo struct {
	listFn   func(ctx context.Context) ([]auth.User, error)
	revokeFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockUserRepo) Create(_ context.Context, _ *auth.User) error { return nil }

func (m *mockUserRepo) GetByID(_ context.Context, _ uuid.UUID) (*auth.User, error) {
	return nil, auth.ErrUserNotFound
}

func (m *mockUserRepo) FindByPrefix(_ context.Context, _ string) ([]auth.User, error) {
	return nil, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]auth.User, error) {
	return m.listFn(ctx)
}

func (m *mockUserRepo) Revoke(ctx context.Context, id uuid.UUID) error {
	return m.revokeFn(ctx, id)
}

func (m *mockUserRepo) CountAll(_ context.Context) (int, error) { return 0, nil }

type mockUserCreator struct {
	createFn func(ctx context.Context, name, role string) (*auth.User, string, error)
}

func (m *mockUserCreator) CreateUser(ctx context.Context, name, role string) (*auth.User, string, error) {
	return m.createFn(ctx, name, role)
}
