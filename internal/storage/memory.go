package storage

import (
	"context"
	"strings"
	"sync"
)

type Object struct {
	Body        []byte
	ContentType string
}

type MemoryStore struct {
	mu      sync.RWMutex
	base    string
	objects map[string]Object
}

func NewMemoryStore(publicBase string) *MemoryStore {
	return &MemoryStore{
		base:    strings.TrimRight(publicBase, "/"),
		objects: make(map[string]Object),
	}
}

func (m *MemoryStore) Put(_ context.Context, key string, body []byte, contentType string) (string, error) {
	key = cleanKey(key)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Body: append([]byte(nil), body...), ContentType: contentType}
	return m.base + "/" + key, nil
}

func (m *MemoryStore) Object(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[cleanKey(key)]
	return o, ok
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *MemoryStore) DeleteURL(_ context.Context, raw string) error {
	if !strings.HasPrefix(raw, m.base+"/") {
		return ErrUnmanagedURL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, cleanKey(raw[len(m.base):]))
	return nil
}

func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	prefix = cleanKey(prefix)
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			delete(m.objects, key)
		}
	}
	return nil
}

var _ Blobs = (*MemoryStore)(nil)
