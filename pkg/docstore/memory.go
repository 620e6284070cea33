package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps documents as JSON in process memory. It backs tests and
// STORE_BACKEND=memory for local development.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	order []string
	docs  map[string]map[string]interface{}
}

type memDocument struct {
	id   string
	data []byte
}

func (d memDocument) ID() string { return d.id }

func (d memDocument) Decode(v interface{}) error {
	return json.Unmarshal(d.data, v)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (m *MemoryStore) collection(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string]map[string]interface{})}
		m.collections[name] = c
	}
	return c
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return toMemDocument(id, doc)
}

func (m *MemoryStore) QueryEquals(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make([]interface{}, len(filters))
	for i, f := range filters {
		v, err := normalize(f.Value)
		if err != nil {
			return nil, fmt.Errorf("normalize filter %s: %w", f.Field, err)
		}
		want[i] = v
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil, nil
	}
	var out []Document
	for _, id := range c.order {
		doc := c.docs[id]
		matched := true
		for i, f := range filters {
			if !reflect.DeepEqual(doc[f.Field], want[i]) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		d, err := toMemDocument(id, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *MemoryStore) Insert(ctx context.Context, collection string, record interface{}) (string, error) {
	id := uuid.New().String()
	if err := m.Put(ctx, collection, id, record); err != nil {
		return "", err
	}
	return id, nil
}

func (m *MemoryStore) Put(ctx context.Context, collection, id string, record interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := normalize(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	doc, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Errorf("record must encode to an object, got %T", v)
	}
	doc["id"] = id

	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collection(collection)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = doc
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		nv, err := normalize(v)
		if err != nil {
			return fmt.Errorf("marshal update value %s: %w", k, err)
		}
		doc[k] = nv
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return ErrNotFound
	}
	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) List(ctx context.Context, collection string, limit, skip int) ([]Document, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil, 0, nil
	}
	total := int64(len(c.order))
	if skip >= len(c.order) {
		return nil, total, nil
	}
	ids := c.order[skip:]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		d, err := toMemDocument(id, c.docs[id])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, nil
}

func toMemDocument(id string, doc map[string]interface{}) (Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document %s: %w", id, err)
	}
	return memDocument{id: id, data: data}, nil
}

// normalize round-trips v through JSON so stored values and filter values
// compare with the same dynamic types.
func normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
