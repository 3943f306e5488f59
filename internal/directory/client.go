// SPDX-License-Identifier: MIT

package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/payflowd/payflow/internal/config"
	"github.com/payflowd/payflow/internal/fault"
	"github.com/payflowd/payflow/internal/model"
)

// Client queries the directory service over HTTP.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds the production directory adapter.
func NewClient(cfg config.DirectoryConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fault.Wrap(fault.ClassInternal, "build directory request", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fault.Wrap(fault.ClassRetryable, "directory service unreachable", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode >= 500 {
		return fault.Newf(fault.ClassRetryable, "directory service error %d", res.StatusCode)
	}
	if res.StatusCode >= 400 {
		return fault.Newf(fault.ClassInternal, "directory request rejected with %d", res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fault.Wrap(fault.ClassRetryable, "malformed directory response", err)
	}
	return nil
}

func (c *Client) LookupPayee(ctx context.Context, hint string) ([]model.PayeeCandidate, error) {
	var p struct {
		Candidates []model.PayeeCandidate `json:"candidates"`
	}
	if err := c.get(ctx, "/v1/payees?q="+url.QueryEscape(hint), &p); err != nil {
		return nil, err
	}
	return p.Candidates, nil
}

func (c *Client) FundingHistory(ctx context.Context, payeeID string) (*FundingRecord, error) {
	var p struct {
		History *FundingRecord `json:"history"`
	}
	if err := c.get(ctx, "/v1/payees/"+url.PathEscape(payeeID)+"/funding-history", &p); err != nil {
		return nil, err
	}
	return p.History, nil
}

func (c *Client) FundingMethods(ctx context.Context) ([]string, error) {
	var p struct {
		FundingMethods []string `json:"fundingMethods"`
	}
	if err := c.get(ctx, "/v1/funding-methods", &p); err != nil {
		return nil, err
	}
	return p.FundingMethods, nil
}

func (c *Client) DefaultFundingMethod(ctx context.Context) (string, error) {
	var p struct {
		Default string `json:"default"`
	}
	if err := c.get(ctx, "/v1/funding-methods/default", &p); err != nil {
		return "", err
	}
	return p.Default, nil
}

var _ Directory = (*Client)(nil)
