// Package reconciler settles pending invoices by matching them against
// incoming on-chain transfers.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/billdesk/billdesk/internal/invoice"
	"github.com/billdesk/billdesk/internal/metrics"
	"github.com/billdesk/billdesk/internal/provider"
)

const (
	// pendingBatch is the page size used when listing pending invoices.
	pendingBatch = 100

	// transferWindow is how many recent transfers are fetched per wallet.
	transferWindow = 200

	// amountPlaces is the precision at which invoice and transfer amounts
	// are compared (USDT has six decimals).
	amountPlaces = 6
)

// ErrProvider marks failures of the payment provider, as opposed to
// invoice store errors.
var ErrProvider = errors.New("payment provider request failed")

// Match is a transfer that settled an invoice.
type Match struct {
	Invoice  *invoice.Invoice
	Transfer provider.Transfer
}

// Reconciler polls pending invoices and marks them paid when a matching
// transfer shows up on chain.
type Reconciler struct {
	repo        invoice.Repository
	provider    provider.Provider
	metrics     *metrics.Metrics
	interval    time.Duration
	concurrency int
	expiry      time.Duration
	now         func() time.Time
}

// Option configures the Reconciler.
type Option func(*Reconciler)

// WithConcurrency bounds how many wallets are checked at once.
func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithExpiry leaves invoices older than d alone. Zero disables expiry.
func WithExpiry(d time.Duration) Option {
	return func(r *Reconciler) {
		r.expiry = d
	}
}

// WithMetrics records poll metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// New creates a new Reconciler.
func New(repo invoice.Repository, p provider.Provider, interval time.Duration, opts ...Option) *Reconciler {
	r := &Reconciler{
		repo:        repo,
		provider:    p,
		interval:    interval,
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins the polling loop. It blocks until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	slog.Info("payment poller started",
		"interval", r.interval.String(),
		"concurrency", r.concurrency,
	)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("payment poller stopped")
			return
		case <-ticker.C:
			r.Poll(ctx)
		}
	}
}

// Poll runs one reconciliation cycle and returns the invoices it settled.
func (r *Reconciler) Poll(ctx context.Context) []Match {
	started := r.now()

	pending, err := r.listPending(ctx)
	if err != nil {
		slog.Error("payment poller: failed to list pending invoices", "error", err)
		r.metrics.ObservePollError("list")
		return nil
	}

	byWallet := make(map[string][]invoice.Invoice)
	var wallets []string
	for _, inv := range pending {
		if inv.WalletAddress == "" {
			continue
		}
		if _, ok := byWallet[inv.WalletAddress]; !ok {
			wallets = append(wallets, inv.WalletAddress)
		}
		byWallet[inv.WalletAddress] = append(byWallet[inv.WalletAddress], inv)
	}

	results := make([][]Match, len(wallets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, wallet := range wallets {
		g.Go(func() error {
			results[i] = r.reconcileWallet(gctx, wallet, byWallet[wallet])
			return nil
		})
	}
	_ = g.Wait()

	var matches []Match
	for _, m := range results {
		matches = append(matches, m...)
	}

	r.metrics.ObservePoll(r.now().Sub(started), len(pending))
	if len(matches) > 0 {
		slog.Info("payment poller: cycle settled invoices",
			"pending", len(pending),
			"settled", len(matches),
		)
	}
	return matches
}

// CheckInvoice looks for a transfer paying inv and marks it paid when one is
// found. It returns nil and no error when no matching transfer exists yet.
func (r *Reconciler) CheckInvoice(ctx context.Context, inv *invoice.Invoice) (*Match, error) {
	if inv.Status != invoice.StatusPending {
		return nil, invoice.ErrNotPending
	}
	if inv.WalletAddress == "" {
		return nil, invoice.ErrWalletRequired
	}

	transfers, err := r.provider.IncomingTransfers(ctx, provider.TransferQuery{
		Address: inv.WalletAddress,
		Since:   inv.CreatedAt,
		Limit:   transferWindow,
	})
	if err != nil {
		r.metrics.ObservePollError("fetch")
		return nil, fmt.Errorf("%w: fetching transfers for %s: %w", ErrProvider, inv.Number, err)
	}

	return r.settle(ctx, inv, transfers, map[string]bool{})
}

// reconcileWallet matches one wallet's pending invoices, oldest first,
// against a single fetch of its recent transfers.
func (r *Reconciler) reconcileWallet(ctx context.Context, wallet string, invoices []invoice.Invoice) []Match {
	slices.SortFunc(invoices, func(a, b invoice.Invoice) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	transfers, err := r.provider.IncomingTransfers(ctx, provider.TransferQuery{
		Address: wallet,
		Since:   invoices[0].CreatedAt,
		Limit:   transferWindow,
	})
	if err != nil {
		slog.Warn("payment poller: failed to fetch transfers",
			"wallet", wallet,
			"error", err,
		)
		r.metrics.ObservePollError("fetch")
		return nil
	}

	claimed := make(map[string]bool)
	var matches []Match
	for i := range invoices {
		if ctx.Err() != nil {
			return matches
		}
		m, err := r.settle(ctx, &invoices[i], transfers, claimed)
		if err != nil {
			slog.Error("payment poller: failed to settle invoice",
				"invoice", invoices[i].Number,
				"error", err,
			)
			continue
		}
		if m != nil {
			matches = append(matches, *m)
		}
	}
	return matches
}

// settle marks inv paid with the first unclaimed matching transfer.
func (r *Reconciler) settle(ctx context.Context, inv *invoice.Invoice, transfers []provider.Transfer, claimed map[string]bool) (*Match, error) {
	for _, tr := range transfers {
		if claimed[tr.TransactionID] || !Matches(inv, tr) {
			continue
		}

		paid, err := r.repo.MarkPaid(ctx, inv.ID, invoice.Payment{
			TransactionID: tr.TransactionID,
			PaidAt:        tr.Timestamp,
		})
		if errors.Is(err, invoice.ErrTransactionClaimed) {
			claimed[tr.TransactionID] = true
			continue
		}
		if err != nil {
			r.metrics.ObservePollError("mark")
			return nil, err
		}

		claimed[tr.TransactionID] = true
		r.metrics.ObservePaymentMatched()
		slog.Info("invoice paid",
			"invoice", paid.Number,
			"transactionId", tr.TransactionID,
			"amount", tr.Amount.String(),
			"from", tr.From,
		)
		return &Match{Invoice: paid, Transfer: tr}, nil
	}
	return nil, nil
}

// listPending pages through every pending invoice inside the expiry window.
func (r *Reconciler) listPending(ctx context.Context) ([]invoice.Invoice, error) {
	filter := invoice.PendingFilter{Limit: pendingBatch}
	if r.expiry > 0 {
		filter.CreatedSince = r.now().Add(-r.expiry)
	}

	var all []invoice.Invoice
	for {
		page, err := r.repo.ListPending(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pendingBatch {
			return all, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		last := page[len(page)-1]
		filter.AfterCreatedAt = last.CreatedAt
		filter.AfterID = last.ID
	}
}

// Matches reports whether tr pays inv: same receiving wallet, the exact
// amount at six decimals, and not older than the invoice.
func Matches(inv *invoice.Invoice, tr provider.Transfer) bool {
	if tr.To != inv.WalletAddress {
		return false
	}
	if !tr.Amount.Round(amountPlaces).Equal(inv.TotalAmount.Round(amountPlaces)) {
		return false
	}
	return !tr.Timestamp.Before(inv.CreatedAt.Truncate(time.Millisecond))
}
