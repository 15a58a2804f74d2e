package storage

import (
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process DocumentStore used by tests.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]json.RawMessage)}
}

func (s *MemoryStore) Put(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[name] = data
	return nil
}

func (s *MemoryStore) Get(name string, v any) (bool, error) {
	s.mu.Lock()
	data, ok := s.docs[name]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, v)
}

func (s *MemoryStore) Snapshot() (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]json.RawMessage, len(s.docs))
	for k, v := range s.docs {
		out[k] = v
	}
	return out, nil
}
