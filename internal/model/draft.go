// SPDX-License-Identifier: MIT

package model

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

// Payee is the resolved recipient of a draft. ResolvedEntityID is empty when
// no unique directory entry could be matched.
type Payee struct {
	Name             string `json:"name"`
	Email            string `json:"email,omitempty"`
	ResolvedEntityID string `json:"resolvedEntityId,omitempty"`

	// MatchConfidence is the directory match score in [0,1]; 0 when the payee
	// was taken verbatim from user input.
	MatchConfidence float64 `json:"matchConfidence,omitempty"`

	// Candidates lists up to five plausible directory matches for review.
	Candidates []PayeeCandidate `json:"candidates,omitempty"`
}

// PayeeCandidate is one plausible directory match.
type PayeeCandidate struct {
	EntityID string `json:"entityId"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
}

// PaymentDraft is an unsubmitted, human-reviewable payment specification.
// Drafts are replaced, never mutated, when corrected during review.
type PaymentDraft struct {
	DraftID string `json:"draftId"`

	Payee           Payee           `json:"payee"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	FundingMethodID string          `json:"fundingMethodId,omitempty"`
	Purpose         string          `json:"purpose,omitempty"`

	// Assumptions records, in order, every inference made without explicit
	// user confirmation. Non-empty assumptions force review.
	Assumptions []string `json:"assumptions,omitempty"`

	// MissingFields lists required fields the builder could not fill.
	MissingFields []string `json:"missingFields,omitempty"`

	NeedsConfirmation bool `json:"needsConfirmation"`
}

// Normalize re-establishes the confirmation invariant:
// NeedsConfirmation is true whenever assumptions exist, required fields are
// missing, or the payee is not uniquely resolved. It only ever raises the
// flag; policy may force it true but never silently lower it.
func (d *PaymentDraft) Normalize() {
	if len(d.Assumptions) > 0 || len(d.MissingFields) > 0 || d.Payee.ResolvedEntityID == "" {
		d.NeedsConfirmation = true
	}
}

// Validate checks the structural invariants every accepted draft must hold.
// It is applied both to freshly built drafts and to corrections supplied
// during review.
func (d *PaymentDraft) Validate() error {
	if d.Payee.Name == "" && d.Payee.Email == "" {
		return fmt.Errorf("draft: payee name or email required")
	}
	if !d.Amount.IsPositive() {
		return fmt.Errorf("draft: amount must be positive, got %s", d.Amount)
	}
	if !currencyRe.MatchString(d.Currency) {
		return fmt.Errorf("draft: currency must be an ISO 4217 code, got %q", d.Currency)
	}
	return nil
}

// Clone returns a deep copy so replacement drafts never alias the original.
func (d *PaymentDraft) Clone() *PaymentDraft {
	cp := *d
	cp.Assumptions = append([]string(nil), d.Assumptions...)
	cp.MissingFields = append([]string(nil), d.MissingFields...)
	cp.Payee.Candidates = append([]PayeeCandidate(nil), d.Payee.Candidates...)
	return &cp
}
