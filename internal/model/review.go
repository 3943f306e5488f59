// SPDX-License-Identifier: MIT

package model

// ReviewArtifact is a rendering-ready projection of a draft for the host UI.
// It is derived, never persisted independently of its source draft, and
// embeds the draft verbatim for traceability.
type ReviewArtifact struct {
	Title        string   `json:"title"`
	SummaryLines []string `json:"summaryLines"`

	Draft PaymentDraft `json:"draft"`

	NeedsConfirmation bool     `json:"needsConfirmation"`
	Assumptions       []string `json:"assumptions,omitempty"`
}
