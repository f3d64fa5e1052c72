package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider abstracts a block-explorer backend that reports incoming token
// transfers for a wallet (TronGrid for TRC20, etc.).
type Provider interface {
	// IncomingTransfers lists transfers received by q.Address, newest first.
	IncomingTransfers(ctx context.Context, q TransferQuery) ([]Transfer, error)

	// CheckConnectivity reports whether the backend is reachable.
	CheckConnectivity(ctx context.Context) ConnectivityStatus
}

// TransferQuery selects incoming transfers for a wallet.
type TransferQuery struct {
	Address string
	Since   time.Time // zero means no lower bound
	Limit   int
}

// Transfer is one incoming token transfer.
type Transfer struct {
	TransactionID string
	From          string
	To            string
	Amount        decimal.Decimal // in token units, e.g. 12.5 USDT
	RawValue      string          // integer value in the token's smallest unit
	Timestamp     time.Time
}

// ConnectivityStatus represents the result of a backend connectivity check.
type ConnectivityStatus struct {
	Connected   bool
	LatestBlock int64
}
