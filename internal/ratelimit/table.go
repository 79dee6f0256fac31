package ratelimit

import (
	"hash/fnv"
	"sync"
)

const shardCount = 64

// table is a lock-striped map from client identity to per-client state.
// Every read-modify-write on one key happens under that key's shard lock.
type table[E any] struct {
	shards [shardCount]shard[E]
}

type shard[E any] struct {
	mu      sync.Mutex
	entries map[string]*E
}

func newTable[E any]() *table[E] {
	t := &table[E]{}
	for i := range t.shards {
		t.shards[i].entries = make(map[string]*E)
	}
	return t
}

func (t *table[E]) shard(key string) *shard[E] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &t.shards[h.Sum32()%shardCount]
}

// with runs fn on the entry for key while holding its shard lock, creating
// the entry first if it does not exist
func (t *table[E]) with(key string, fn func(e *E) Decision) Decision {
	s := t.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = new(E)
		s.entries[key] = e
	}
	return fn(e)
}

// deleteIf removes every entry for which stale returns true
func (t *table[E]) deleteIf(stale func(e *E) bool) int {
	removed := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for key, e := range s.entries {
			if stale(e) {
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// len counts entries across all shards
func (t *table[E]) len() int {
	n := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}
