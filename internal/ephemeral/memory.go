package ephemeral

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value    string
	deadline time.Time // zero means no expiry
}

// MemoryStore is an in-process Store used for tests and for running the
// engine without a Redis instance. Expiry is evaluated lazily on read.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]memoryEntry
	lists  map[string][]string
	sets   map[string]map[string]struct{}
	hashes map[string]map[string]string

	// Now is the clock; overridable in tests to force expiry.
	Now func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]memoryEntry),
		lists:  make(map[string][]string),
		sets:   make(map[string]map[string]struct{}),
		hashes: make(map[string]map[string]string),
		Now:    time.Now,
	}
}

// lookup returns the live entry for key, dropping it if expired.
// Caller must hold mu.
func (s *MemoryStore) lookup(key string) (memoryEntry, bool) {
	e, ok := s.values[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.deadline.IsZero() && !s.Now().Before(e.deadline) {
		delete(s.values, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.deadline = s.Now().Add(ttl)
	}
	s.values[key] = e
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.deadline = s.Now().Add(ttl)
	}
	s.values[key] = e
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	return e.value, ok, nil
}

func (s *MemoryStore) MGet(_ context.Context, keys ...string) ([]*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*string, len(keys))
	for i, key := range keys {
		if e, ok := s.lookup(key); ok {
			v := e.value
			out[i] = &v
		}
	}
	return out, nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
		delete(s.lists, key)
		delete(s.sets, key)
		delete(s.hashes, key)
	}
	return nil
}

func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	if !ok {
		return -2 * time.Second, nil // mirrors the Redis convention for a missing key
	}
	if e.deadline.IsZero() {
		return -1 * time.Second, nil
	}
	return e.deadline.Sub(s.Now()), nil
}

func (s *MemoryStore) RPush(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], values...)
	return nil
}

func (s *MemoryStore) LRange(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	out := make([]string, len(list))
	copy(out, list)
	return out, nil
}

func (s *MemoryStore) LRemAll(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]struct{}, len(values))
	for _, v := range values {
		drop[v] = struct{}{}
	}
	kept := s.lists[key][:0]
	for _, v := range s.lists[key] {
		if _, ok := drop[v]; !ok {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(s.lists, key)
	} else {
		s.lists[key] = kept
	}
	return nil
}

func (s *MemoryStore) SAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) SRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
	return nil
}

func (s *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[key]
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return out, nil
}

func (s *MemoryStore) SIsMemberBatch(_ context.Context, pairs []SetMember) ([]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bool, len(pairs))
	for i, p := range pairs {
		if set, ok := s.sets[p.Key]; ok {
			_, out[i] = set[p.Member]
		}
	}
	return out, nil
}

func (s *MemoryStore) HSet(_ context.Context, key, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashes[key]
	if !ok {
		hash = make(map[string]string)
		s.hashes[key] = hash
	}
	hash[field] = value
	return nil
}

func (s *MemoryStore) HDel(_ context.Context, key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashes[key]
	if !ok {
		return nil
	}
	for _, f := range fields {
		delete(hash, f)
	}
	if len(hash) == 0 {
		delete(s.hashes, key)
	}
	return nil
}

func (s *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash := s.hashes[key]
	out := make(map[string]string, len(hash))
	for f, v := range hash {
		out[f] = v
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
