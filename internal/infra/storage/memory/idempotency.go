package memory

import (
	"context"
	"sync"
	"time"

	"stayquote/internal/app/middleware"
)

type idempotencyEntry struct {
	record  middleware.IdempotencyRecord
	expires time.Time
}

// IdempotencyStore holds replayable command results for the CLI and tests.
// A zero ttl never expires entries; expired ones are swept on Save.
type IdempotencyStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]idempotencyEntry
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{ttl: ttl, now: time.Now, entries: make(map[string]idempotencyEntry)}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || s.stale(e) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return e.record, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	now := s.now().UTC()
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = now
	}
	e := idempotencyEntry{record: rec}
	if s.ttl > 0 {
		e.expires = rec.OccurredAt.Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, old := range s.entries {
		if s.stale(old) {
			delete(s.entries, k)
		}
	}
	s.entries[rec.Key] = e
	return nil
}

func (s *IdempotencyStore) stale(e idempotencyEntry) bool {
	return !e.expires.IsZero() && s.now().After(e.expires)
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
