// SPDX-License-Identifier: MIT

// Package draft turns a structured extraction or a free-text command into a
// reviewable payment draft, recording every uncertain inference as an
// assumption. The builder never finalizes a payment; it only produces drafts.
package draft

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/payflowd/payflow/internal/directory"
	"github.com/payflowd/payflow/internal/fault"
	"github.com/payflowd/payflow/internal/log"
	"github.com/payflowd/payflow/internal/model"
	"github.com/shopspring/decimal"
)

// Match scores, mirrored from the directory's historical matcher: exact email
// wins outright, exact names score just below the auto-resolve threshold of
// unique matches, substring and token overlap trail behind.
const (
	scoreEmailExact   = 1.0
	scoreNameExact    = 0.95
	scoreNameContains = 0.8
	scoreNameToken    = 0.6

	// resolveThreshold: a unique match at or above this score resolves the
	// payee without an assumption. Anything weaker, or any non-unique match,
	// records one.
	resolveThreshold = 0.95
)

// Builder resolves payee, funding method, currency and purpose for a draft.
type Builder struct {
	dir          directory.Directory
	homeCurrency string

	// forceConfirmation marks every draft as requiring an explicit decision,
	// even fully-resolved ones. The gate presents every draft either way;
	// this flag additionally makes waiting mandatory.
	forceConfirmation bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithConservativeConfirmation forces NeedsConfirmation on every draft,
// regardless of how certain resolution was.
func WithConservativeConfirmation() Option {
	return func(b *Builder) { b.forceConfirmation = true }
}

// NewBuilder creates a draft builder backed by the given directory.
func NewBuilder(dir directory.Directory, homeCurrency string, opts ...Option) *Builder {
	b := &Builder{dir: dir, homeCurrency: homeCurrency}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// intent is the normalized input to resolution, independent of whether it
// came from a document or a command.
type intent struct {
	payeeName  string
	payeeEmail string
	amount     *decimal.Decimal
	currency   string
	purpose    string
}

// Build creates a payment draft from exactly one of command/extraction.
// Supplying both or neither is InvalidInput; no payee candidate at all is
// UnresolvableIntent.
func (b *Builder) Build(ctx context.Context, command string, extraction *model.ExtractionResult) (*model.PaymentDraft, error) {
	logger := log.WithComponentFromContext(ctx, "draft")

	hasCommand := strings.TrimSpace(command) != ""
	if hasCommand == (extraction != nil) {
		return nil, fault.New(fault.ClassInvalidInput, "provide either a command or an extraction, not both")
	}

	var in intent
	if extraction != nil {
		if !extraction.Processable || extraction.Fields == nil {
			return nil, fault.New(fault.ClassInvalidInput, "extraction is not processable")
		}
		f := extraction.Fields
		in = intent{
			payeeName:  f.PayeeName,
			payeeEmail: f.PayeeEmail,
			amount:     f.Amount,
			currency:   f.Currency,
			purpose:    f.Memo,
		}
	} else {
		parsed := parseCommand(command)
		in = intent{
			payeeName: parsed.PayeeName,
			amount:    parsed.Amount,
			currency:  parsed.Currency,
			purpose:   parsed.Purpose,
		}
	}

	d := &model.PaymentDraft{DraftID: uuid.NewString()}

	payee, assumption, err := b.resolvePayee(ctx, in)
	if err != nil {
		return nil, err
	}
	d.Payee = payee
	if assumption != "" {
		d.Assumptions = append(d.Assumptions, assumption)
	}

	if in.amount != nil && in.amount.IsPositive() {
		d.Amount = *in.amount
	} else {
		d.MissingFields = append(d.MissingFields, "amount")
	}

	switch {
	case in.currency != "":
		d.Currency = strings.ToUpper(in.currency)
	case in.amount != nil:
		d.Currency = b.homeCurrency
		d.Assumptions = append(d.Assumptions, "assumed currency: "+b.homeCurrency)
	default:
		d.Currency = b.homeCurrency
	}

	fm, fmAssumption, err := b.resolveFunding(ctx, payee)
	if err != nil {
		return nil, err
	}
	d.FundingMethodID = fm
	if fmAssumption != "" {
		d.Assumptions = append(d.Assumptions, fmAssumption)
	}
	if fm == "" {
		d.MissingFields = append(d.MissingFields, "fundingMethod")
	}

	// Purpose is optional: blank passes through and never costs an assumption.
	d.Purpose = strings.TrimSpace(in.purpose)

	if b.forceConfirmation {
		d.NeedsConfirmation = true
	}
	d.Normalize()

	logger.Info().
		Str("draft_id", d.DraftID).
		Str("payee", d.Payee.Name).
		Bool("needs_confirmation", d.NeedsConfirmation).
		Int("assumptions", len(d.Assumptions)).
		Msg("draft built")

	return d, nil
}

// resolvePayee matches the input hint against the payee directory. A unique,
// strong match resolves silently; anything ambiguous records an assumption;
// no hint at all is unresolvable.
func (b *Builder) resolvePayee(ctx context.Context, in intent) (model.Payee, string, error) {
	if in.payeeName == "" && in.payeeEmail == "" {
		return model.Payee{}, "", fault.New(fault.ClassUnresolvableIntent, "no payee could be determined from the input")
	}

	hint := in.payeeEmail
	if hint == "" {
		hint = in.payeeName
	}
	candidates, err := b.dir.LookupPayee(ctx, hint)
	if err != nil {
		return model.Payee{}, "", err
	}

	type scored struct {
		c     model.PayeeCandidate
		score float64
	}
	var matches []scored
	for _, c := range candidates {
		s := score(c, in.payeeName, in.payeeEmail)
		if s > 0 {
			matches = append(matches, scored{c: c, score: s})
		}
	}

	if len(matches) == 0 {
		// Best-guess payee from the input itself; the assumption surfaces it.
		p := model.Payee{Name: in.payeeName, Email: in.payeeEmail}
		name := p.Name
		if name == "" {
			name = p.Email
		}
		return p, "assumed payee: " + name, nil
	}

	// Strongest matches first, so the top-5 cut below never drops a strong
	// candidate in favor of a weak one.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	best := matches[0]

	p := model.Payee{
		Name:             best.c.Name,
		Email:            best.c.Email,
		ResolvedEntityID: best.c.EntityID,
		MatchConfidence:  best.score,
	}
	for i, m := range matches {
		if i == 5 {
			break
		}
		p.Candidates = append(p.Candidates, m.c)
	}

	// Any non-unique match is ambiguous by policy; so is a weak unique one.
	if len(matches) > 1 || best.score < resolveThreshold {
		return p, "assumed payee: " + p.Name, nil
	}
	return p, "", nil
}

// resolveFunding prefers the method last used with this payee; absent
// history it falls back to the declared default with an assumption.
func (b *Builder) resolveFunding(ctx context.Context, payee model.Payee) (string, string, error) {
	available, err := b.dir.FundingMethods(ctx)
	if err != nil {
		return "", "", err
	}
	listed := make(map[string]bool, len(available))
	for _, id := range available {
		listed[id] = true
	}

	if payee.ResolvedEntityID != "" {
		rec, err := b.dir.FundingHistory(ctx, payee.ResolvedEntityID)
		if err != nil {
			return "", "", err
		}
		// A remembered method is only trusted while the directory still
		// lists it.
		if rec != nil && listed[rec.FundingMethodID] {
			return rec.FundingMethodID, "", nil
		}
	}

	def, err := b.dir.DefaultFundingMethod(ctx)
	if err != nil {
		return "", "", err
	}
	if def != "" {
		return def, "assumed funding method: default", nil
	}
	return "", "", nil
}

func score(c model.PayeeCandidate, name, email string) float64 {
	if email != "" && normalize(c.Email) == normalize(email) {
		return scoreEmailExact
	}
	if name == "" {
		return 0
	}
	cn := normalize(c.Name)
	n := normalize(name)
	if cn == "" {
		return 0
	}
	switch {
	case cn == n:
		return scoreNameExact
	case strings.Contains(cn, n) || strings.Contains(n, cn):
		return scoreNameContains
	default:
		for _, tok := range strings.Fields(n) {
			if strings.Contains(cn, tok) {
				return scoreNameToken
			}
		}
	}
	return 0
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}
