package snapshot

import (
	"context"
	"sync"
	"time"

	"admissions-portal/internal/models"
)

// MemoryStore keeps encoded snapshots in process, so callers never share
// mutable state with the store.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
		now:  time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, applicantID string, level models.Level) (*Snapshot, error) {
	if err := checkKey(applicantID, level); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(Key(applicantID, level))
}

func (m *MemoryStore) loadLocked(key string) (*Snapshot, error) {
	raw, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return decode(raw)
}

func (m *MemoryStore) Save(_ context.Context, s *Snapshot) (bool, error) {
	if err := checkKey(s.ApplicantID, s.Level); err != nil {
		return false, err
	}
	key := Key(s.ApplicantID, s.Level)

	m.mu.Lock()
	defer m.mu.Unlock()

	prev, err := m.loadLocked(key)
	if err != nil && err != ErrNotFound {
		return false, err
	}
	next, ok := merge(prev, s, m.now())
	if !ok {
		return false, nil
	}
	raw, err := encode(next)
	if err != nil {
		return false, err
	}
	m.data[key] = raw
	return true, nil
}

func (m *MemoryStore) Clear(_ context.Context, applicantID string, level models.Level) error {
	if err := checkKey(applicantID, level); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, Key(applicantID, level))
	return nil
}

func (m *MemoryStore) MarkPaid(_ context.Context, applicantID string, level models.Level, reference string) error {
	if err := checkKey(applicantID, level); err != nil {
		return err
	}
	key := Key(applicantID, level)

	m.mu.Lock()
	defer m.mu.Unlock()

	prev, err := m.loadLocked(key)
	if err != nil && err != ErrNotFound {
		return err
	}
	raw, err := encode(markPaid(prev, applicantID, level, reference, m.now()))
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *MemoryStore) PaymentMarker(ctx context.Context, applicantID string, level models.Level) (*Payment, error) {
	s, err := m.Load(ctx, applicantID, level)
	if err != nil {
		return nil, err
	}
	if s.Payment == nil {
		return nil, ErrNotFound
	}
	return s.Payment, nil
}
