package registry

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Store is the key/value interface of a registry accessor. It is implemented
// by Accessor and by Memory.
type Store interface {
	Read(ctx context.Context, key string, value interface{}) (time.Time, error)
	Write(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type memoryValue struct {
	data      []byte
	timestamp time.Time
}

// Memory is an in-process registry for setups without a database. Values
// are serialized to JSON like in the SQL registry, so both behave the same.
type Memory struct {
	mutex  sync.RWMutex
	values map[string]memoryValue
}

// NewMemory returns an empty in-memory registry
func NewMemory() *Memory {
	return &Memory{values: map[string]memoryValue{}}
}

// Read reads a value. It returns the time when the value was written,
// or a zero timestamp if there is no value.
func (m *Memory) Read(ctx context.Context, key string, value interface{}) (time.Time, error) {
	m.mutex.RLock()
	v, ok := m.values[key]
	m.mutex.RUnlock()
	if !ok {
		return time.Time{}, nil
	}
	return v.timestamp, json.Unmarshal(v.data, value)
}

// Write writes a value
func (m *Memory) Write(ctx context.Context, key string, value interface{}) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.values[key] = memoryValue{data: body, timestamp: time.Now().UTC()}
	return nil
}

// Delete deletes a value
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.values, key)
	return nil
}

// Prune deletes all values written before the given time
func (m *Memory) Prune(ctx context.Context, before time.Time) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var count int64
	for key, v := range m.values {
		if v.timestamp.Before(before) {
			delete(m.values, key)
			count++
		}
	}
	return count, nil
}

var (
	_ Store = Accessor{}
	_ Store = (*Memory)(nil)
)
