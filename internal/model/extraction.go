// SPDX-License-Identifier: MIT

package model

import "github.com/shopspring/decimal"

// ExtractionFields is the structured, possibly-partial payment intent pulled
// out of a document. Every field is individually optional; extraction may be
// probabilistic and the draft builder tolerates variant output.
type ExtractionFields struct {
	PayeeName  string           `json:"payeeName,omitempty"`
	PayeeEmail string           `json:"payeeEmail,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Currency   string           `json:"currency,omitempty"`

	InvoiceNumber string `json:"invoiceNumber,omitempty"`
	InvoiceDate   string `json:"invoiceDate,omitempty"`
	DueDate       string `json:"dueDate,omitempty"`
	Memo          string `json:"memo,omitempty"`

	// Confidence maps field name to extractor confidence in [0,1].
	Confidence map[string]float64 `json:"confidence,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// ExtractionResult is created once by the extraction adapter and immutable
// thereafter. Exactly one of Fields/Reason is meaningful: processable results
// carry fields, unprocessable results carry a non-empty reason.
type ExtractionResult struct {
	Processable bool              `json:"processable"`
	Reason      string            `json:"reason,omitempty"`
	Fields      *ExtractionFields `json:"fields,omitempty"`
}

// Unprocessable builds a failed extraction result with the mandatory reason.
func Unprocessable(reason string) ExtractionResult {
	return ExtractionResult{Processable: false, Reason: reason}
}
