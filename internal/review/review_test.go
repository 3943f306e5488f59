// SPDX-License-Identifier: MIT

package review_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payflowd/payflow/internal/fault"
	"github.com/payflowd/payflow/internal/model"
	"github.com/payflowd/payflow/internal/review"
)

func sampleDraft() *model.PaymentDraft {
	return &model.PaymentDraft{
		DraftID: "d-1",
		Payee: model.Payee{
			Name:             "Sam",
			Email:            "sam@example.com",
			ResolvedEntityID: "p-sam",
			MatchConfidence:  0.95,
		},
		Amount:          decimal.RequireFromString("50"),
		Currency:        "USD",
		FundingMethodID: "fm-checking",
		Purpose:         "lunch",
	}
}

func TestPresent_RoundTripsDraft(t *testing.T) {
	d := sampleDraft()
	artifact := review.Present(d)

	// The embedded draft must parse back equal to the original.
	if diff := cmp.Diff(*d, artifact.Draft); diff != "" {
		t.Fatalf("draft round-trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Review payment to Sam <sam@example.com>", artifact.Title)
	assert.Contains(t, artifact.SummaryLines, "Pay 50 USD to Sam <sam@example.com>")
	assert.Contains(t, artifact.SummaryLines, "Purpose: lunch")
}

func TestPresent_DoesNotAliasTheDraft(t *testing.T) {
	d := sampleDraft()
	d.Assumptions = []string{"assumed currency: USD"}
	artifact := review.Present(d)

	d.Assumptions[0] = "mutated"
	assert.Equal(t, "assumed currency: USD", artifact.Assumptions[0])
}

func TestPresent_SurfacesAssumptionsAndAmbiguity(t *testing.T) {
	d := sampleDraft()
	d.Assumptions = []string{"assumed payee: Sam", "assumed funding method: default"}
	d.Payee.Candidates = []model.PayeeCandidate{
		{EntityID: "p-sam", Name: "Sam"},
		{EntityID: "p-sam2", Name: "Sam Jones"},
	}
	d.Normalize()

	artifact := review.Present(d)
	assert.True(t, artifact.NeedsConfirmation)
	assert.Contains(t, artifact.SummaryLines, "Assumption: assumed payee: Sam")
	assert.Contains(t, artifact.SummaryLines, "Assumption: assumed funding method: default")
	assert.Contains(t, artifact.SummaryLines, "Payee matched 2 directory entries; please verify")
}

func TestResolve_Confirm(t *testing.T) {
	artifact := review.Present(sampleDraft())

	d, err := review.Resolve(artifact, model.Decision{Type: model.DecisionConfirm})
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "d-1", d.DraftID)
}

func TestResolve_ConfirmWithMissingFieldsIsRejected(t *testing.T) {
	d := sampleDraft()
	d.Amount = decimal.Zero
	d.MissingFields = []string{"amount"}
	artifact := review.Present(d)

	_, err := review.Resolve(artifact, model.Decision{Type: model.DecisionConfirm})
	require.Error(t, err)
	assert.Equal(t, fault.ClassInvalidDraftEdit, fault.ClassOf(err))
}

func TestResolve_Reject(t *testing.T) {
	artifact := review.Present(sampleDraft())

	d, err := review.Resolve(artifact, model.Decision{Type: model.DecisionReject})
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestResolve_EditReplacesDraft(t *testing.T) {
	artifact := review.Present(sampleDraft())

	corrected := sampleDraft()
	corrected.Amount = decimal.RequireFromString("75")
	corrected.Purpose = "dinner"

	d, err := review.Resolve(artifact, model.Decision{
		Type:           model.DecisionEdit,
		CorrectedDraft: corrected,
	})
	require.NoError(t, err)
	assert.Equal(t, "75", d.Amount.String())
	assert.Equal(t, "dinner", d.Purpose)
}

func TestResolve_EditFillsMissingFields(t *testing.T) {
	d := sampleDraft()
	d.Amount = decimal.Zero
	d.MissingFields = []string{"amount"}
	d.Normalize()
	artifact := review.Present(d)

	corrected := sampleDraft()
	corrected.Amount = decimal.RequireFromString("120")

	got, err := review.Resolve(artifact, model.Decision{
		Type:           model.DecisionEdit,
		CorrectedDraft: corrected,
	})
	require.NoError(t, err)
	assert.Empty(t, got.MissingFields)
}

func TestResolve_InvalidEditKeepsGateOpen(t *testing.T) {
	artifact := review.Present(sampleDraft())

	tests := []struct {
		name    string
		mutate  func(*model.PaymentDraft)
		decider model.Decision
	}{
		{
			name:    "nil corrected draft",
			decider: model.Decision{Type: model.DecisionEdit},
		},
		{
			name:   "non-positive amount",
			mutate: func(d *model.PaymentDraft) { d.Amount = decimal.Zero },
		},
		{
			name:   "bogus currency",
			mutate: func(d *model.PaymentDraft) { d.Currency = "dollars" },
		},
		{
			name: "no payee",
			mutate: func(d *model.PaymentDraft) {
				d.Payee = model.Payee{}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := tt.decider
			if tt.mutate != nil {
				corrected := sampleDraft()
				tt.mutate(corrected)
				decision = model.Decision{Type: model.DecisionEdit, CorrectedDraft: corrected}
			}
			_, err := review.Resolve(artifact, decision)
			require.Error(t, err)
			assert.Equal(t, fault.ClassInvalidDraftEdit, fault.ClassOf(err))
		})
	}
}

func TestResolve_UnknownDecisionType(t *testing.T) {
	artifact := review.Present(sampleDraft())
	_, err := review.Resolve(artifact, model.Decision{Type: "approve"})
	require.Error(t, err)
	assert.Equal(t, fault.ClassInvalidInput, fault.ClassOf(err))
}
