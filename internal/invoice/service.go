package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billdesk/billdesk/internal/metrics"
	"github.com/billdesk/billdesk/internal/pricing"
	"github.com/billdesk/billdesk/internal/settings"
	"github.com/billdesk/billdesk/internal/tier"
)

// ErrNoItems is returned when an invoice is created without items.
var ErrNoItems = errors.New("invoice must contain at least one item")

// ErrWalletRequired is returned when no wallet address was given and none is configured.
var ErrWalletRequired = errors.New("wallet address is required")

const (
	// amountPlaces is the precision of stored invoice amounts.
	amountPlaces = 2

	// createAttempts bounds retries when an invoice number is taken at insert time.
	createAttempts = 3
)

// ItemInput is a requested line item. A nil Price is filled in from the
// owner's price tiers.
type ItemInput struct {
	Credits int64
	Price   *decimal.Decimal
}

// CreateInput holds the fields needed to create an invoice.
type CreateInput struct {
	Items         []ItemInput
	WalletAddress string
	CustomerNote  string
}

// Service implements invoice creation and price quoting on top of the
// invoice, tier and settings stores.
type Service struct {
	repo     Repository
	tiers    tier.Repository
	settings settings.Repository
	numbers  *NumberGenerator
	metrics  *metrics.Metrics
}

// NewService creates a new invoice Service. m may be nil.
func NewService(repo Repository, tiers tier.Repository, settingsRepo settings.Repository, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		tiers:    tiers,
		settings: settingsRepo,
		numbers:  NewNumberGenerator(repo),
		metrics:  m,
	}
}

// WithNumberGenerator replaces the invoice number generator.
func (s *Service) WithNumberGenerator(g *NumberGenerator) *Service {
	s.numbers = g
	return s
}

// NextNumber previews the next invoice number.
func (s *Service) NextNumber(ctx context.Context) (string, error) {
	return s.numbers.Next(ctx)
}

// Quote prices credits against the owner's current tiers.
func (s *Service) Quote(ctx context.Context, ownerID uuid.UUID, credits int64) (pricing.Quote, error) {
	snapshot, err := s.snapshot(ctx, ownerID)
	if err != nil {
		return pricing.Quote{}, err
	}
	return s.quote(snapshot, credits)
}

func (s *Service) snapshot(ctx context.Context, ownerID uuid.UUID) ([]pricing.Tier, error) {
	tiers, err := s.tiers.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing tiers: %w", err)
	}
	return tier.Snapshot(tiers), nil
}

func (s *Service) quote(snapshot []pricing.Tier, credits int64) (pricing.Quote, error) {
	q, err := pricing.Interpolate(snapshot, credits)
	if err != nil {
		return pricing.Quote{}, err
	}
	s.metrics.ObserveQuote(string(q.Basis))
	return q, nil
}

// Create validates the input, prices unpriced items, computes totals and
// stores a pending invoice.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*Invoice, error) {
	if len(in.Items) == 0 {
		return nil, ErrNoItems
	}

	wallet := strings.TrimSpace(in.WalletAddress)
	if wallet == "" {
		cfg, err := s.settings.Get(ctx, ownerID)
		if err != nil && !errors.Is(err, settings.ErrSettingsNotFound) {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
		if cfg != nil {
			wallet = cfg.WalletAddress
		}
	}
	if wallet == "" {
		return nil, ErrWalletRequired
	}

	var snapshot []pricing.Tier
	loaded := false

	items := make([]Item, 0, len(in.Items))
	totalCredits := int64(0)
	totalAmount := decimal.Zero

	for _, it := range in.Items {
		if it.Credits <= 0 {
			return nil, pricing.ErrInvalidCredits
		}

		var price decimal.Decimal
		if it.Price != nil {
			price = *it.Price
		} else {
			if !loaded {
				var err error
				if snapshot, err = s.snapshot(ctx, ownerID); err != nil {
					return nil, err
				}
				loaded = true
			}
			q, err := s.quote(snapshot, it.Credits)
			if err != nil {
				return nil, err
			}
			price = q.Price
		}
		price = price.Round(amountPlaces)

		items = append(items, Item{Credits: it.Credits, Price: price})
		totalCredits += it.Credits
		totalAmount = totalAmount.Add(price)
	}

	inv := &Invoice{
		OwnerID:       ownerID,
		CustomerNote:  strings.TrimSpace(in.CustomerNote),
		TotalCredits:  totalCredits,
		TotalAmount:   totalAmount.Round(amountPlaces),
		WalletAddress: wallet,
		Status:        StatusPending,
		Items:         items,
	}

	// A concurrent create can take the number between the uniqueness check
	// and the insert; draw a new one and try again.
	var err error
	for range createAttempts {
		if inv.Number, err = s.numbers.Next(ctx); err != nil {
			return nil, err
		}
		err = s.repo.Create(ctx, inv)
		if !errors.Is(err, ErrDuplicateNumber) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveInvoiceCreated()
	return inv, nil
}
