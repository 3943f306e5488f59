// SPDX-License-Identifier: MIT

// Package review is the confirmation gate: it projects drafts into
// human-reviewable artifacts and validates the decision that comes back.
// The gate itself never suspends; the orchestrator persists the session and
// resumes when a decision arrives out of band.
package review

import (
	"fmt"
	"strings"

	"github.com/payflowd/payflow/internal/fault"
	"github.com/payflowd/payflow/internal/model"
)

// Present projects a draft into a rendering-ready artifact. It is a pure
// function: the embedded draft is a deep copy and parsing it back yields a
// value equal to the original.
func Present(d *model.PaymentDraft) model.ReviewArtifact {
	cp := d.Clone()

	lines := []string{
		fmt.Sprintf("Pay %s %s to %s", cp.Amount, cp.Currency, payeeLabel(cp.Payee)),
	}
	if cp.Purpose != "" {
		lines = append(lines, "Purpose: "+cp.Purpose)
	}
	if cp.FundingMethodID != "" {
		lines = append(lines, "Funding method: "+cp.FundingMethodID)
	} else {
		lines = append(lines, "Funding method: not selected")
	}
	if len(cp.MissingFields) > 0 {
		lines = append(lines, "Missing: "+strings.Join(cp.MissingFields, ", "))
	}
	for _, a := range cp.Assumptions {
		lines = append(lines, "Assumption: "+a)
	}
	if len(cp.Payee.Candidates) > 1 {
		lines = append(lines, fmt.Sprintf("Payee matched %d directory entries; please verify", len(cp.Payee.Candidates)))
	}

	return model.ReviewArtifact{
		Title:             "Review payment to " + payeeLabel(cp.Payee),
		SummaryLines:      lines,
		Draft:             *cp,
		NeedsConfirmation: cp.NeedsConfirmation,
		Assumptions:       append([]string(nil), cp.Assumptions...),
	}
}

// Resolve validates a decision against the presented artifact and returns
// the draft that should move forward (nil for reject).
//
// Confirm accepts the presented draft as-is, provided it is structurally
// valid and missing no required fields. Edit replaces the draft with the
// correction after re-running the invariant checks; an invalid correction is
// InvalidDraftEdit and the caller re-presents. Reject ends the workflow with
// no submission attempt.
func Resolve(artifact model.ReviewArtifact, decision model.Decision) (*model.PaymentDraft, error) {
	switch decision.Type {
	case model.DecisionReject:
		return nil, nil

	case model.DecisionConfirm:
		d := artifact.Draft.Clone()
		if len(d.MissingFields) > 0 {
			return nil, fault.Newf(fault.ClassInvalidDraftEdit,
				"draft is missing required fields: %s", strings.Join(d.MissingFields, ", "))
		}
		if err := d.Validate(); err != nil {
			return nil, fault.Wrap(fault.ClassInvalidDraftEdit, "draft failed validation", err)
		}
		return d, nil

	case model.DecisionEdit:
		if decision.CorrectedDraft == nil {
			return nil, fault.New(fault.ClassInvalidDraftEdit, "edit decision carries no corrected draft")
		}
		d := decision.CorrectedDraft.Clone()
		if d.DraftID == "" {
			d.DraftID = artifact.Draft.DraftID
		}
		if err := d.Validate(); err != nil {
			return nil, fault.Wrap(fault.ClassInvalidDraftEdit, "corrected draft is invalid", err)
		}
		// A correction clears missing fields only if it actually filled
		// them, and the confirmation invariant is re-established.
		d.MissingFields = nil
		d.Normalize()
		return d, nil

	default:
		return nil, fault.Newf(fault.ClassInvalidInput, "unknown decision type %q", decision.Type)
	}
}

func payeeLabel(p model.Payee) string {
	switch {
	case p.Name != "" && p.Email != "":
		return fmt.Sprintf("%s <%s>", p.Name, p.Email)
	case p.Name != "":
		return p.Name
	default:
		return p.Email
	}
}
