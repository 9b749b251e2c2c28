package notifications

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage keeps notifications in process memory.
// Suitable for development, tests and single-instance deployments without durability needs.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]*memoryRecord
	byUser  map[string]map[string]struct{}
	seq     uint64
}

type memoryRecord struct {
	n   Notification
	seq uint64 // insertion order, breaks CreatedAt ties
}

// NewMemoryStorage returns an empty store. Records live as long as the process.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*memoryRecord),
		byUser:  make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStorage) Create(_ context.Context, n Notification) (Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[n.ID]; exists {
		return Notification{}, fmt.Errorf("%w: duplicate id %q", ErrStorage, n.ID)
	}

	s.seq++
	s.records[n.ID] = &memoryRecord{n: n, seq: s.seq}
	ids, ok := s.byUser[n.UserID]
	if !ok {
		ids = make(map[string]struct{})
		s.byUser[n.UserID] = ids
	}
	ids[n.ID] = struct{}{}

	return clone(n), nil
}

func (s *MemoryStorage) Get(_ context.Context, id string) (Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Notification{}, ErrNotFound
	}
	return clone(rec.n), nil
}

func (s *MemoryStorage) List(_ context.Context, userID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*memoryRecord, 0, len(s.byUser[userID]))
	for id := range s.byUser[userID] {
		recs = append(recs, s.records[id])
	}
	return collect(recs, opts), nil
}

func (s *MemoryStorage) ListAll(_ context.Context, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*memoryRecord, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	return collect(recs, opts), nil
}

func (s *MemoryStorage) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for id := range s.byUser[userID] {
		if !s.records[id].n.Read {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) Count(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser[userID]), nil
}

func (s *MemoryStorage) MarkRead(_ context.Context, id string) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Notification{}, ErrNotFound
	}
	if !rec.n.Read {
		markRead(&rec.n, time.Now().UTC())
	}
	return clone(rec.n), nil
}

func (s *MemoryStorage) MarkAllRead(_ context.Context, userID string) (int, error) {
	cutoff := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for id := range s.byUser[userID] {
		rec := s.records[id]
		if rec.n.Read || rec.n.CreatedAt.After(cutoff) {
			continue
		}
		markRead(&rec.n, cutoff)
		changed++
	}
	return changed, nil
}

func (s *MemoryStorage) Update(_ context.Context, id string, fields UpdateFields) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Notification{}, ErrNotFound
	}
	rec.n = fields.Apply(rec.n)
	return clone(rec.n), nil
}

func (s *MemoryStorage) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return false, nil
	}
	delete(s.records, id)
	if ids := s.byUser[rec.n.UserID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byUser, rec.n.UserID)
		}
	}
	return true, nil
}

func collect(recs []*memoryRecord, opts ListOptions) []Notification {
	slices.SortFunc(recs, func(a, b *memoryRecord) int {
		if c := b.n.CreatedAt.Compare(a.n.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	out := make([]Notification, 0, len(recs))
	for _, rec := range recs {
		if opts.Matches(rec.n) {
			out = append(out, clone(rec.n))
		}
	}
	return opts.Paginate(out)
}

func markRead(n *Notification, at time.Time) {
	n.Read = true
	n.ReadAt = &at
}

// clone detaches the ReadAt pointer from stored state.
func clone(n Notification) Notification {
	if n.ReadAt != nil {
		at := *n.ReadAt
		n.ReadAt = &at
	}
	return n
}
