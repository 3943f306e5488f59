// SPDX-License-Identifier: MIT

package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/payflowd/payflow/internal/fault"
)

// Mock is a deterministic in-memory ledger for tests. It honors idempotency
// keys natively: a repeated CreatePayment with a known key returns the
// original reference instead of creating a second payment.
type Mock struct {
	mu sync.Mutex

	// FailTimes injects this many consecutive retryable failures before
	// CreatePayment succeeds.
	FailTimes int

	// RejectWith, when non-nil, is returned by every CreatePayment call.
	RejectWith error

	seq      int
	byKey    map[string]PaymentStatus
	payments map[string]PaymentStatus
	Calls    int
}

func NewMock() *Mock {
	return &Mock{
		byKey:    make(map[string]PaymentStatus),
		payments: make(map[string]PaymentStatus),
	}
}

func (m *Mock) CreatePayment(_ context.Context, req PaymentRequest, idemKey string) (PaymentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++

	if m.RejectWith != nil {
		return PaymentStatus{}, m.RejectWith
	}
	if m.FailTimes > 0 {
		m.FailTimes--
		return PaymentStatus{}, fault.New(fault.ClassRetryable, "simulated ledger timeout")
	}

	if st, ok := m.byKey[idemKey]; ok {
		return st, nil
	}

	m.seq++
	st := PaymentStatus{
		ReferenceID: fmt.Sprintf("pay_%04d", m.seq),
		State:       "pending",
	}
	m.byKey[idemKey] = st
	m.payments[st.ReferenceID] = st
	return st, nil
}

func (m *Mock) GetPaymentStatus(_ context.Context, referenceID string) (PaymentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.payments[referenceID]; ok {
		return st, nil
	}
	return PaymentStatus{}, fault.New(fault.ClassTerminal, "payment not found")
}

// PaymentCount reports how many distinct payments were created.
func (m *Mock) PaymentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

var _ Ledger = (*Mock)(nil)
