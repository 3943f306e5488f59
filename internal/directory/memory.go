// SPDX-License-Identifier: MIT

package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/payflowd/payflow/internal/model"
)

// Memory is an in-memory Directory for tests and local iteration. Reads are
// safe for concurrent use.
type Memory struct {
	mu sync.RWMutex

	payees  []model.PayeeCandidate
	history map[string]FundingRecord // payeeID -> record
	methods []string
	def     string
}

// NewMemory builds an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{history: make(map[string]FundingRecord)}
}

// AddPayee registers a directory entry.
func (m *Memory) AddPayee(c model.PayeeCandidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payees = append(m.payees, c)
}

// SetHistory records the last funding method used for a payee.
func (m *Memory) SetHistory(payeeID string, rec FundingRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[payeeID] = rec
}

// SetFundingMethods declares the available methods and the default.
func (m *Memory) SetFundingMethods(def string, methods ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.def = def
	m.methods = methods
}

func (m *Memory) LookupPayee(_ context.Context, hint string) ([]model.PayeeCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h := normalize(hint)
	if h == "" {
		return nil, nil
	}
	var out []model.PayeeCandidate
	for _, c := range m.payees {
		if normalize(c.Email) == h || matchesName(normalize(c.Name), h) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) FundingHistory(_ context.Context, payeeID string) (*FundingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.history[payeeID]; ok {
		cp := rec
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) FundingMethods(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.methods...), nil
}

func (m *Memory) DefaultFundingMethod(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.def, nil
}

var _ Directory = (*Memory)(nil)

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

func matchesName(name, hint string) bool {
	if name == "" {
		return false
	}
	if name == hint || strings.Contains(name, hint) || strings.Contains(hint, name) {
		return true
	}
	for _, tok := range strings.Fields(hint) {
		if strings.Contains(name, tok) {
			return true
		}
	}
	return false
}
