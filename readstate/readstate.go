// Package readstate remembers which stories the user has opened.
package readstate

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/mseshachalam/y/app"
)

// Store is a bounded, insertion-ordered set of read story ids. It is
// persisted synchronously on every insertion; when full the oldest
// inserted id is evicted first.
type Store struct {
	mu    sync.RWMutex
	kv    app.KVStore
	key   string
	limit int
	ids   []int64
	index map[int64]struct{}
}

// NewStore loads persisted read state from kv. Corrupt or unreadable
// persisted state resets to empty instead of failing.
func NewStore(kv app.KVStore, key string, limit int) *Store {
	s := &Store{
		kv:    kv,
		key:   key,
		limit: limit,
		index: make(map[int64]struct{}),
	}

	buf, err := kv.Get(key)
	if err != nil {
		log.Println(err)
		return s
	}
	if len(buf) == 0 {
		return s
	}

	var ids []int64
	err = json.Unmarshal(buf, &ids)
	if err != nil {
		log.Println(err)
		if err := kv.Clear(key); err != nil {
			log.Println(err)
		}
		return s
	}

	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			continue
		}
		s.ids = append(s.ids, id)
		s.index[id] = struct{}{}
	}
	s.trim()

	return s
}

// Has tells whether id was recorded as read.
func (s *Store) Has(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// Add records id as read and persists the set. Re-adding a known id is a
// no-op and does not refresh its eviction position.
func (s *Store) Add(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; ok {
		return
	}

	s.ids = append(s.ids, id)
	s.index[id] = struct{}{}
	s.trim()

	buf, err := json.Marshal(s.ids)
	if err != nil {
		log.Println(err)
		return
	}
	err = s.kv.Set(s.key, buf)
	if err != nil {
		log.Println(err)
	}
}

// Len is the number of remembered ids.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

func (s *Store) trim() {
	for len(s.ids) > s.limit {
		evicted := s.ids[0]
		s.ids = s.ids[1:]
		delete(s.index, evicted)
	}
}
