// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/payflowd/payflow/internal/model"
)

// MemoryStore implements all three store interfaces in memory. Intended for
// tests and local iteration; not durable.
type MemoryStore struct {
	mu sync.RWMutex

	sessions map[string]*model.SessionRecord
	idem     map[string]IdemRecord
	jobs     map[string]*model.ScheduledJob
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.SessionRecord),
		idem:     make(map[string]IdemRecord),
		jobs:     make(map[string]*model.ScheduledJob),
	}
}

func (m *MemoryStore) Close() error { return nil }

// --- SessionStore ---

func (m *MemoryStore) PutSession(_ context.Context, rec *model.SessionRecord) error {
	cp, err := cloneSession(rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[rec.SessionID] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*model.SessionRecord, error) {
	m.mu.RLock()
	rec, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(rec)
}

func (m *MemoryStore) UpdateSession(_ context.Context, id string, fn func(*model.SessionRecord) error) (*model.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp, err := cloneSession(rec)
	if err != nil {
		return nil, err
	}
	if err := fn(cp); err != nil {
		return nil, err
	}
	m.sessions[id] = cp
	out, err := cloneSession(cp)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MemoryStore) ListSessions(_ context.Context) ([]*model.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.SessionRecord, 0, len(m.sessions))
	for _, rec := range m.sessions {
		cp, err := cloneSession(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// --- IdempotencyStore ---

func (m *MemoryStore) Claim(_ context.Context, key string) (IdemRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.idem[key]; ok {
		return rec, false, nil
	}
	rec := IdemRecord{Key: key, State: IdemPending, UpdatedAt: time.Now()}
	m.idem[key] = rec
	return rec, true, nil
}

func (m *MemoryStore) Complete(_ context.Context, key, referenceID, outcome string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idem[key] = IdemRecord{
		Key:         key,
		State:       IdemSucceeded,
		ReferenceID: referenceID,
		Outcome:     outcome,
		UpdatedAt:   time.Now(),
	}
	return nil
}

func (m *MemoryStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.idem[key]; ok && rec.State == IdemPending {
		delete(m.idem, key)
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (IdemRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.idem[key]
	return rec, ok, nil
}

// --- ScheduleStore ---

func (m *MemoryStore) PersistJob(_ context.Context, job *model.ScheduledJob) error {
	cp := *job
	m.mu.Lock()
	m.jobs[job.JobID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetJob(_ context.Context, jobID string) (*model.ScheduledJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *MemoryStore) CancelJob(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status != model.JobScheduled {
		return ErrJobNotCancelable
	}
	job.Status = model.JobCanceled
	return nil
}

func (m *MemoryStore) ListDueJobs(_ context.Context, now time.Time) ([]*model.ScheduledJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var due []*model.ScheduledJob
	for _, job := range m.jobs {
		if job.Status == model.JobScheduled && !job.RunAt.After(now) {
			cp := *job
			due = append(due, &cp)
		}
	}
	return due, nil
}

func (m *MemoryStore) MarkExecuted(_ context.Context, jobID string, status model.JobStatus, referenceID, lastError string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status = status
	job.ExternalReferenceID = referenceID
	job.LastError = lastError
	execAt := at
	job.ExecutedAt = &execAt
	return nil
}

var (
	_ SessionStore     = (*MemoryStore)(nil)
	_ IdempotencyStore = (*MemoryStore)(nil)
	_ ScheduleStore    = (*MemoryStore)(nil)
)

// cloneSession deep-copies via JSON so callers never alias stored state.
func cloneSession(rec *model.SessionRecord) (*model.SessionRecord, error) {
	buf, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var out model.SessionRecord
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, err
	}
	// Document bytes are excluded from JSON; carry them across explicitly.
	if rec.Document != nil && out.Document != nil {
		out.Document.Bytes = append([]byte(nil), rec.Document.Bytes...)
	}
	return &out, nil
}
