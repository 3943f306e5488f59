// SPDX-License-Identifier: MIT

package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payflowd/payflow/internal/model"
)

func validDraft() *model.PaymentDraft {
	return &model.PaymentDraft{
		DraftID:  "d-1",
		Payee:    model.Payee{Name: "Sam", ResolvedEntityID: "p-sam"},
		Amount:   decimal.RequireFromString("50"),
		Currency: "USD",
	}
}

func TestNormalize_RaisesConfirmationFlag(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.PaymentDraft)
		want   bool
	}{
		{"fully resolved", func(d *model.PaymentDraft) {}, false},
		{"assumption present", func(d *model.PaymentDraft) {
			d.Assumptions = []string{"assumed currency: USD"}
		}, true},
		{"missing field", func(d *model.PaymentDraft) {
			d.MissingFields = []string{"amount"}
		}, true},
		{"unresolved payee", func(d *model.PaymentDraft) {
			d.Payee.ResolvedEntityID = ""
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(d)
			d.Normalize()
			assert.Equal(t, tt.want, d.NeedsConfirmation)
		})
	}
}

func TestNormalize_NeverLowersTheFlag(t *testing.T) {
	d := validDraft()
	d.NeedsConfirmation = true
	d.Normalize()
	assert.True(t, d.NeedsConfirmation)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validDraft().Validate())

	d := validDraft()
	d.Payee = model.Payee{}
	assert.Error(t, d.Validate())

	d = validDraft()
	d.Amount = decimal.Zero
	assert.Error(t, d.Validate())

	d = validDraft()
	d.Amount = decimal.RequireFromString("-5")
	assert.Error(t, d.Validate())

	d = validDraft()
	d.Currency = "dollars"
	assert.Error(t, d.Validate())

	d = validDraft()
	d.Currency = "usd"
	assert.Error(t, d.Validate(), "currency codes are uppercase")
}

func TestClone_DoesNotAlias(t *testing.T) {
	d := validDraft()
	d.Assumptions = []string{"a"}
	d.MissingFields = []string{"m"}
	d.Payee.Candidates = []model.PayeeCandidate{{EntityID: "p-1", Name: "Sam"}}

	cp := d.Clone()
	require.Equal(t, d.Assumptions, cp.Assumptions)

	cp.Assumptions[0] = "b"
	cp.MissingFields[0] = "n"
	cp.Payee.Candidates[0].Name = "Other"

	assert.Equal(t, "a", d.Assumptions[0])
	assert.Equal(t, "m", d.MissingFields[0])
	assert.Equal(t, "Sam", d.Payee.Candidates[0].Name)
}

func TestSessionState_IsTerminal(t *testing.T) {
	terminal := []model.SessionState{
		model.StateSubmitted, model.StateScheduled, model.StateAbandoned, model.StateFailed,
	}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), string(s))
	}
	open := []model.SessionState{
		model.StateStart, model.StateExtracting, model.StateDrafting,
		model.StateAwaitingConfirmation, model.StateFinalizing,
	}
	for _, s := range open {
		assert.False(t, s.IsTerminal(), string(s))
	}
}
