// SPDX-License-Identifier: MIT

package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		amount   string
		currency string
		payee    string
		purpose  string
	}{
		{
			name:    "full command with purpose",
			command: "Pay $50 to Sam for lunch",
			amount:  "50",
			payee:   "Sam",
			purpose: "lunch",
		},
		{
			name:    "decimal amount",
			command: "send 123.45 to Alice Smith",
			amount:  "123.45",
			payee:   "Alice Smith",
		},
		{
			name:     "explicit currency",
			command:  "Pay 200 EUR to Bob for consulting",
			amount:   "200",
			currency: "EUR",
			payee:    "Bob",
			purpose:  "consulting",
		},
		{
			name:    "payee name stops at purpose clause",
			command: "pay $10 to Sam for coffee and snacks",
			amount:  "10",
			payee:   "Sam",
			purpose: "coffee and snacks",
		},
		{
			name:    "quoted payee name",
			command: `transfer $75 to "Acme Corp" for invoice 12`,
			amount:  "75",
			payee:   "Acme Corp",
			purpose: "invoice 12",
		},
		{
			name:    "no payee clause",
			command: "pay $30",
			amount:  "30",
		},
		{
			name:    "no amount",
			command: "pay to Sam for rent",
			payee:   "Sam",
			purpose: "rent",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCommand(tt.command)
			if tt.amount == "" {
				assert.Nil(t, got.Amount)
			} else {
				require.NotNil(t, got.Amount)
				assert.Equal(t, tt.amount, got.Amount.String())
			}
			assert.Equal(t, tt.currency, got.Currency)
			assert.Equal(t, tt.payee, got.PayeeName)
			assert.Equal(t, tt.purpose, got.Purpose)
		})
	}
}

func TestParseCommand_LowercaseWordIsNotACurrency(t *testing.T) {
	// "Pay" must not read as the currency code PAY.
	got := parseCommand("Pay $50 to Sam")
	assert.Empty(t, got.Currency)
}
