package memory

import (
	"context"
	"sync"
	"time"

	"stayquote/internal/app/policies"
)

type cacheItem struct {
	body    []byte
	expires time.Time
}

// ExportCache is a TTL map used when redis is not configured.
type ExportCache struct {
	mu    sync.Mutex
	items map[string]cacheItem
	now   func() time.Time
}

func NewExportCache() *ExportCache {
	return &ExportCache{items: make(map[string]cacheItem), now: time.Now}
}

func (c *ExportCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if !item.expires.After(c.now()) {
		delete(c.items, key)
		return nil, false, nil
	}
	return item.body, true, nil
}

func (c *ExportCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem{body: append([]byte(nil), body...), expires: c.now().Add(ttl)}
	return nil
}

// RawBodyStore keeps the last parsed body of each external calendar.
type RawBodyStore struct {
	mu     sync.RWMutex
	bodies map[string][]byte
}

func NewRawBodyStore() *RawBodyStore {
	return &RawBodyStore{bodies: make(map[string][]byte)}
}

func (s *RawBodyStore) Put(ctx context.Context, calendarID string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[calendarID] = append([]byte(nil), body...)
	return nil
}

func (s *RawBodyStore) Latest(ctx context.Context, calendarID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.bodies[calendarID]
	return body, ok, nil
}

var (
	_ policies.ExportCache  = (*ExportCache)(nil)
	_ policies.RawBodyStore = (*RawBodyStore)(nil)
)
