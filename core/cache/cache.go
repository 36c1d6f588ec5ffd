/*
Package cache provides a small JSON value cache with expiry

Memory keeps values in process; Redis shares them between instances. Values
are stored as JSON in both, so a cached value reads back the same regardless
of the implementation.
*/
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Cache stores JSON encoded values. Get returns false for missing or expired keys.
type Cache interface {
	Get(ctx context.Context, key string, value interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type entry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process Cache
type Memory struct {
	mutex   sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory returns an empty in-process cache
func NewMemory() *Memory {
	return &Memory{entries: map[string]entry{}, now: time.Now}
}

// Get implements Cache
func (m *Memory) Get(ctx context.Context, key string, value interface{}) (bool, error) {
	m.mutex.RLock()
	e, ok := m.entries[key]
	m.mutex.RUnlock()
	if !ok {
		return false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.mutex.Lock()
		delete(m.entries, key)
		m.mutex.Unlock()
		return false, nil
	}
	return true, json.Unmarshal(e.data, value)
}

// Set implements Cache. A ttl of zero means the value does not expire.
func (m *Memory) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := entry{data: data}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mutex.Lock()
	m.entries[key] = e
	m.mutex.Unlock()
	return nil
}

// Delete implements Cache
func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}
