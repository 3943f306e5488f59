// SPDX-License-Identifier: MIT

package draft

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	amountRe = regexp.MustCompile(`\$?\s*([0-9]+(?:\.[0-9]{1,2})?)`)
	toRe     = regexp.MustCompile(`(?i)\bto\b\s+([A-Za-z0-9 .,'"-]+)`)

	// currencyRe catches "USD 50" / "50 EUR" style commands so an explicit
	// currency is not mistaken for a defaulted one. Uppercase only: "pay"
	// must not read as a currency code.
	currencyRe = regexp.MustCompile(`\b(USD|EUR|GBP|CAD|AUD|NZD|JPY|CHF|SEK|NOK|DKK|MXN|BRL|INR|CNY|SGD|HKD)\b`)
)

// parsedCommand is the structured reading of a free-text instruction like
// "Pay $50 to Sam for lunch".
type parsedCommand struct {
	Amount    *decimal.Decimal
	Currency  string
	PayeeName string
	Purpose   string
}

// parseCommand extracts amount, payee and purpose deterministically. Missing
// pieces stay zero-valued; the builder decides what they imply.
func parseCommand(command string) parsedCommand {
	var out parsedCommand

	if m := amountRe.FindStringSubmatch(command); m != nil {
		if amt, err := decimal.NewFromString(m[1]); err == nil {
			out.Amount = &amt
		}
	}

	if m := currencyRe.FindStringSubmatch(command); m != nil {
		out.Currency = m[1]
	}

	if m := toRe.FindStringSubmatch(command); m != nil {
		name := strings.TrimSpace(m[1])
		// The recipient ends where a purpose clause starts.
		if idx := strings.Index(strings.ToLower(name), " for "); idx >= 0 {
			name = name[:idx]
		}
		out.PayeeName = strings.Trim(strings.TrimSpace(name), `"'`)
	}

	if idx := strings.Index(strings.ToLower(command), " for "); idx >= 0 {
		out.Purpose = strings.TrimSpace(command[idx+len(" for "):])
	}

	return out
}
