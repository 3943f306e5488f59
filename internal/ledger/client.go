// SPDX-License-Identifier: MIT

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/payflowd/payflow/internal/config"
	"github.com/payflowd/payflow/internal/fault"
	"golang.org/x/time/rate"
)

// Ledger is the capability interface the submission adapter depends on.
// CreatePayment must accept the idempotency key as a first-class parameter;
// the client forwards it as a header for ledgers with native support, and
// the adapter layer compensates with a local store either way.
type Ledger interface {
	CreatePayment(ctx context.Context, req PaymentRequest, idemKey string) (PaymentStatus, error)
	GetPaymentStatus(ctx context.Context, referenceID string) (PaymentStatus, error)
}

// Client is the production HTTP adapter.
type Client struct {
	base    string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds the ledger client with a client-side request rate cap.
func NewClient(cfg config.LedgerConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.AccessToken,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
	}
}

func (c *Client) CreatePayment(ctx context.Context, payload PaymentRequest, idemKey string) (PaymentStatus, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return PaymentStatus{}, fault.Wrap(fault.ClassRetryable, "rate limiter interrupted", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return PaymentStatus{}, fault.Wrap(fault.ClassInternal, "encode payment payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return PaymentStatus{}, fault.Wrap(fault.ClassInternal, "build payment request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Idempotency-Key", idemKey)

	res, err := c.http.Do(req)
	if err != nil {
		return PaymentStatus{}, fault.Wrap(fault.ClassRetryable, "ledger unreachable", err)
	}
	defer func() { _ = res.Body.Close() }()

	if err := classifyStatus(res.StatusCode); err != nil {
		return PaymentStatus{}, err
	}

	var st PaymentStatus
	if err := json.NewDecoder(res.Body).Decode(&st); err != nil {
		return PaymentStatus{}, fault.Wrap(fault.ClassRetryable, "malformed ledger response", err)
	}
	if st.ReferenceID == "" {
		return PaymentStatus{}, fault.New(fault.ClassTerminal, "ledger accepted payment without a reference id")
	}
	return st, nil
}

func (c *Client) GetPaymentStatus(ctx context.Context, referenceID string) (PaymentStatus, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return PaymentStatus{}, fault.Wrap(fault.ClassRetryable, "rate limiter interrupted", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v1/payments/"+url.PathEscape(referenceID), nil)
	if err != nil {
		return PaymentStatus{}, fault.Wrap(fault.ClassInternal, "build status request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return PaymentStatus{}, fault.Wrap(fault.ClassRetryable, "ledger unreachable", err)
	}
	defer func() { _ = res.Body.Close() }()

	if err := classifyStatus(res.StatusCode); err != nil {
		return PaymentStatus{}, err
	}

	var st PaymentStatus
	if err := json.NewDecoder(res.Body).Decode(&st); err != nil {
		return PaymentStatus{}, fault.Wrap(fault.ClassRetryable, "malformed ledger response", err)
	}
	return st, nil
}

// classifyStatus maps ledger HTTP status codes onto the fault taxonomy.
// Timeouts and 5xx are retryable; validation rejections, insufficient funds
// and duplicate conflicts are terminal.
func classifyStatus(code int) error {
	switch {
	case code < 400:
		return nil
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout:
		return fault.Newf(fault.ClassRetryable, "ledger throttled request (%d)", code)
	case code == http.StatusConflict:
		return fault.New(fault.ClassTerminal, "ledger rejected payment as a duplicate")
	case code >= 500:
		return fault.Newf(fault.ClassRetryable, "ledger error %d", code)
	default:
		return fault.Newf(fault.ClassTerminal, "ledger rejected payment (%d)", code)
	}
}

var _ Ledger = (*Client)(nil)
