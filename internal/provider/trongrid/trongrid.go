// Package trongrid implements provider.Provider on top of the TronGrid
// HTTP API for USDT transfers on the Tron network.
package trongrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/billdesk/billdesk/internal/provider"
)

const (
	// DefaultBaseURL is the public TronGrid mainnet endpoint.
	DefaultBaseURL = "https://api.trongrid.io"

	// USDTContract is the TRC20 contract address of Tether USD.
	USDTContract = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"

	// USDTDecimals is the number of decimals of the USDT token.
	USDTDecimals = 6

	defaultLimit = 20
	maxLimit     = 200
	apiKeyHeader = "TRON-PRO-API-KEY"
	maxErrorBody = 512
)

// ErrAPIRequest is returned when TronGrid answers with an error status or
// success=false.
var ErrAPIRequest = errors.New("trongrid api request failed")

// Client talks to TronGrid.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the TronGrid endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithAPIKey sets the TRON-PRO-API-KEY header sent on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a TronGrid client. Without options it targets mainnet with a
// 10s timeout and 5 requests per second.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ provider.Provider = (*Client)(nil)

type trc20Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    []trc20Transfer `json:"data"`
}

type trc20Transfer struct {
	TransactionID  string `json:"transaction_id"`
	From           string `json:"from"`
	To             string `json:"to"`
	Value          string `json:"value"`
	BlockTimestamp int64  `json:"block_timestamp"`
	TokenInfo      *struct {
		Decimals *int32 `json:"decimals"`
	} `json:"token_info"`
}

// IncomingTransfers lists USDT transfers received by q.Address.
func (c *Client) IncomingTransfers(ctx context.Context, q provider.TransferQuery) ([]provider.Transfer, error) {
	if q.Address == "" {
		return nil, fmt.Errorf("%w: address is required", ErrAPIRequest)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("only_to", "true")
	params.Set("contract_address", USDTContract)
	if !q.Since.IsZero() {
		params.Set("min_timestamp", strconv.FormatInt(q.Since.UnixMilli(), 10))
	}

	endpoint := fmt.Sprintf("%s/v1/accounts/%s/transactions/trc20?%s",
		c.baseURL, url.PathEscape(q.Address), params.Encode())

	var body trc20Response
	if err := c.do(ctx, http.MethodGet, endpoint, &body); err != nil {
		return nil, err
	}
	if !body.Success {
		if body.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrAPIRequest, body.Error)
		}
		return nil, ErrAPIRequest
	}

	transfers := make([]provider.Transfer, 0, len(body.Data))
	for _, tx := range body.Data {
		t, err := toTransfer(tx)
		if err != nil {
			slog.Warn("trongrid: skipping malformed transfer",
				"transactionId", tx.TransactionID,
				"error", err,
			)
			continue
		}
		transfers = append(transfers, t)
	}

	slog.Debug("trongrid: fetched transfers",
		"address", q.Address,
		"count", len(transfers),
	)

	return transfers, nil
}

func toTransfer(tx trc20Transfer) (provider.Transfer, error) {
	raw, err := decimal.NewFromString(tx.Value)
	if err != nil {
		return provider.Transfer{}, fmt.Errorf("parsing value %q: %w", tx.Value, err)
	}

	decimals := int32(USDTDecimals)
	if tx.TokenInfo != nil && tx.TokenInfo.Decimals != nil {
		decimals = *tx.TokenInfo.Decimals
	}

	return provider.Transfer{
		TransactionID: tx.TransactionID,
		From:          tx.From,
		To:            tx.To,
		Amount:        raw.Shift(-decimals),
		RawValue:      tx.Value,
		Timestamp:     time.UnixMilli(tx.BlockTimestamp).UTC(),
	}, nil
}

type nowBlockResponse struct {
	BlockHeader struct {
		RawData struct {
			Number int64 `json:"number"`
		} `json:"raw_data"`
	} `json:"block_header"`
}

// CheckConnectivity asks TronGrid for the latest block.
func (c *Client) CheckConnectivity(ctx context.Context) provider.ConnectivityStatus {
	var body nowBlockResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/wallet/getnowblock", &body); err != nil {
		slog.Warn("trongrid: connectivity check failed", "error", err)
		return provider.ConnectivityStatus{Connected: false}
	}
	return provider.ConnectivityStatus{
		Connected:   true,
		LatestBlock: body.BlockHeader.RawData.Number,
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling trongrid: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status %d: %s", ErrAPIRequest, resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding trongrid response: %w", err)
	}
	return nil
}
