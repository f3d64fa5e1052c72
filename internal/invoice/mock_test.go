package invoice_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/billdesk/billdesk/internal/invoice"
	"github.com/billdesk/billdesk/internal/settings"
	"github.com/billdesk/billdesk/internal/tier"
)

// --- Mock Invoice Repository ---

type mockInvoiceRepo struct {
	createFn       func(ctx context.Context, inv *invoice.Invoice) error
	numberExistsFn func(ctx context.Context, number string) (bool, error)
}

func (m *mockInvoiceRepo) Create(ctx context.Context, inv *invoice.Invoice) error {
	if m.createFn != nil {
		return m.createFn(ctx, inv)
	}
	inv.ID = uuid.New()
	inv.CreatedAt = time.Now().UTC()
	inv.UpdatedAt = inv.CreatedAt
	return nil
}

func (m *mockInvoiceRepo) GetByID(_ context.Context, _, _ uuid.UUID) (*invoice.Invoice, error) {
	return nil, invoice.ErrInvoiceNotFound
}

func (m *mockInvoiceRepo) GetByNumber(_ context.Context, _ uuid.UUID, _ string) (*invoice.Invoice, error) {
	return nil, invoice.ErrInvoiceNotFound
}

func (m *mockInvoiceRepo) List(_ context.Context, _ invoice.ListFilter) (*invoice.ListResult, error) {
	return &invoice.ListResult{Invoices: []invoice.Invoice{}, Page: 1, Limit: 20}, nil
}

func (m *mockInvoiceRepo) UpdateStatus(_ context.Context, _, _ uuid.UUID, _ string) (*invoice.Invoice, error) {
	return nil, invoice.ErrInvoiceNotFound
}

func (m *mockInvoiceRepo) MarkPaid(_ context.Context, _ uuid.UUID, _ invoice.Payment) (*invoice.Invoice, error) {
	return nil, invoice.ErrInvoiceNotFound
}

func (m *mockInvoiceRepo) ListPending(_ context.Context, _ invoice.PendingFilter) ([]invoice.Invoice, error) {
	return nil, nil
}

func (m *mockInvoiceRepo) Delete(_ context.Context, _, _ uuid.UUID) error {
	return invoice.ErrInvoiceNotFound
}

func (m *mockInvoiceRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	if m.numberExistsFn != nil {
		return m.numberExistsFn(ctx, number)
	}
	return false, nil
}

func (m *mockInvoiceRepo) Stats(_ context.Context, _ uuid.UUID) (*invoice.Stats, error) {
	return &invoice.Stats{}, nil
}

// --- Mock Tier Repository ---

type mockTierRepo struct {
	listFn func(ctx context.Context, ownerID uuid.UUID) ([]tier.Tier, error)
	calls  int
}

func (m *mockTierRepo) Create(_ context.Context, _ *tier.Tier) error { return nil }

func (m *mockTierRepo) GetByID(_ context.Context, _, _ uuid.UUID) (*tier.Tier, error) {
	return nil, tier.ErrTierNotFound
}

func (m *mockTierRepo) List(ctx context.Context, ownerID uuid.UUID) ([]tier.Tier, error) {
	m.calls++
	if m.listFn != nil {
		return m.listFn(ctx, ownerID)
	}
	return []tier.Tier{}, nil
}

func (m *mockTierRepo) Update(_ context.Context, _, _ uuid.UUID, _ tier.UpdateFields) (*tier.Tier, error) {
	return nil, tier.ErrTierNotFound
}

func (m *mockTierRepo) Delete(_ context.Context, _, _ uuid.UUID) error { return nil }

func (m *mockTierRepo) BulkCreate(_ context.Context, _ uuid.UUID, tiers []tier.Tier) (int, error) {
	return len(tiers), nil
}

// --- Mock Settings Repository ---

type mockSettingsRepo struct {
	getFn func(ctx context.Context, ownerID uuid.UUID) (*settings.Settings, error)
}

func (m *mockSettingsRepo) Get(ctx context.Context, ownerID uuid.UUID) (*settings.Settings, error) {
	if m.getFn != nil {
		return m.getFn(ctx, ownerID)
	}
	return nil, settings.ErrSettingsNotFound
}

func (m *mockSettingsRepo) Upsert(_ context.Context, _ *settings.Settings) error { return nil }
