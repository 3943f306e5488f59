// SPDX-License-Identifier: MIT

// Package ledger is the money-moving boundary: a thin client for the
// external payment ledger API. Failures are classified retryable vs terminal
// so callers can retry safely with the same idempotency key.
package ledger

import (
	"time"

	"github.com/payflowd/payflow/internal/model"
	"github.com/shopspring/decimal"
)

// PaymentRequest is the payload for CreatePayment.
type PaymentRequest struct {
	AccountID string          `json:"accountId,omitempty"`
	Recipient Recipient       `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Funding   string          `json:"fundingMethodId,omitempty"`
	Purpose   string          `json:"purpose,omitempty"`
}

// Recipient identifies the payee on the ledger side.
type Recipient struct {
	EntityID string `json:"entityId,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// PaymentStatus is the ledger's view of a created payment.
type PaymentStatus struct {
	ReferenceID string    `json:"referenceId"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FromDraft maps a confirmed draft onto the ledger payload.
func FromDraft(accountID string, d *model.PaymentDraft) PaymentRequest {
	return PaymentRequest{
		AccountID: accountID,
		Recipient: Recipient{
			EntityID: d.Payee.ResolvedEntityID,
			Name:     d.Payee.Name,
			Email:    d.Payee.Email,
		},
		Amount:   d.Amount,
		Currency: d.Currency,
		Funding:  d.FundingMethodID,
		Purpose:  d.Purpose,
	}
}
