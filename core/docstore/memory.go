package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/relabs-tech/vitrine/core/baas"
)

// Memory is an in-process document store. It keeps all data in maps and is
// meant for development and tests.
type Memory struct {
	mutex       sync.Mutex
	collections map[string]*memCollection
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{collections: map[string]*memCollection{}}
}

// Collection implements baas.DocumentStore. Collections are created on first use.
func (m *Memory) Collection(name string) baas.Collection {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{name: name, docs: map[string]baas.Document{}}
		m.collections[name] = c
	}
	return c
}

type memCollection struct {
	mutex sync.RWMutex
	name  string
	docs  map[string]baas.Document
}

func clone(doc baas.Document) baas.Document {
	doc.Data = append(json.RawMessage(nil), doc.Data...)
	return doc
}

func (c *memCollection) Create(ctx context.Context, doc baas.Document) (baas.Document, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if _, ok := c.docs[doc.ID]; ok {
		return doc, fmt.Errorf("%s document %s already exists", c.name, doc.ID)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if len(doc.Data) == 0 {
		doc.Data = json.RawMessage("{}")
	}
	c.docs[doc.ID] = clone(doc)
	return doc, nil
}

func (c *memCollection) Read(ctx context.Context, id string) (baas.Document, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	doc, ok := c.docs[id]
	if !ok {
		return baas.Document{}, baas.ErrNotFound
	}
	return clone(doc), nil
}

func (c *memCollection) Update(ctx context.Context, doc baas.Document) (baas.Document, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	existing, ok := c.docs[doc.ID]
	if !ok {
		return doc, baas.ErrNotFound
	}
	doc.CreatedAt = existing.CreatedAt
	doc.UpdatedAt = now()
	if len(doc.Data) == 0 {
		doc.Data = json.RawMessage("{}")
	}
	c.docs[doc.ID] = clone(doc)
	return doc, nil
}

func (c *memCollection) Delete(ctx context.Context, id string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, ok := c.docs[id]; !ok {
		return baas.ErrNotFound
	}
	delete(c.docs, id)
	return nil
}

func (c *memCollection) List(ctx context.Context, order baas.Order) ([]baas.Document, error) {
	c.mutex.RLock()
	docs := make([]baas.Document, 0, len(c.docs))
	for _, doc := range c.docs {
		docs = append(docs, clone(doc))
	}
	c.mutex.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if order == baas.OrderCreatedAsc {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return docs, nil
}
