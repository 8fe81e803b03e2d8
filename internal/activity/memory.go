package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/cwrk-planet/voice-testbench/pkg/errs"
)

// MemoryStore: хранилище по умолчанию, живёт до рестарта.
type MemoryStore struct {
	mu     sync.RWMutex
	seq    uint64
	scopes map[string][]memEntry // от старых к новым
	prefs  map[string]json.RawMessage
}

type memEntry struct {
	seq uint64
	Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scopes: make(map[string][]memEntry),
		prefs:  make(map[string]json.RawMessage),
	}
}

func (s *MemoryStore) Insert(_ context.Context, e Entry, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	list := append(s.scopes[e.Scope], memEntry{seq: s.seq, Entry: e})
	if keep > 0 && len(list) > keep {
		list = append([]memEntry(nil), list[len(list)-keep:]...)
	}
	s.scopes[e.Scope] = list
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id string, p Patch) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, list := range s.scopes {
		for i := range list {
			if list[i].ID == id {
				p.apply(&list[i].Entry)
				return list[i].Entry, nil
			}
		}
	}
	return Entry{}, fmt.Errorf("%w: activity %s", errs.ErrNotFound, id)
}

func (s *MemoryStore) List(_ context.Context, scope string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.scopes[scope]
	out := make([]Entry, 0, min(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i].Entry)
	}
	return out, nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	var all []memEntry
	for _, list := range s.scopes {
		all = append(all, list...)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].seq > all[j].seq })
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]Entry, 0, len(all))
	for _, m := range all {
		out = append(out, m.Entry)
	}
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, scope string) error {
	s.mu.Lock()
	delete(s.scopes, scope)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetPreference(_ context.Context, key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.prefs[key]
	if !ok {
		return nil, fmt.Errorf("%w: preference %s", errs.ErrNotFound, key)
	}
	return v, nil
}

func (s *MemoryStore) PutPreference(_ context.Context, key string, value json.RawMessage) error {
	s.mu.Lock()
	s.prefs[key] = append(json.RawMessage(nil), value...)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
