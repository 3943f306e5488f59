// SPDX-License-Identifier: MIT

// Package directory is the read-only boundary to the payee directory and
// payment-history store. Many sessions read it concurrently; no session ever
// holds a write lock on it.
package directory

import (
	"context"

	"github.com/payflowd/payflow/internal/model"
)

// FundingRecord is the funding method last used to pay a payee.
type FundingRecord struct {
	FundingMethodID string `json:"fundingMethodId"`
	Currency        string `json:"currency,omitempty"`
}

// Directory answers payee and funding-history queries.
type Directory interface {
	// LookupPayee returns directory entries plausibly matching the hint.
	LookupPayee(ctx context.Context, hint string) ([]model.PayeeCandidate, error)

	// FundingHistory returns the funding method last used for payeeID, or
	// nil when there is no prior payment history.
	FundingHistory(ctx context.Context, payeeID string) (*FundingRecord, error)

	// FundingMethods lists the payer's available funding method IDs.
	FundingMethods(ctx context.Context) ([]string, error)

	// DefaultFundingMethod returns the declared fallback method, or empty.
	DefaultFundingMethod(ctx context.Context) (string, error)
}
