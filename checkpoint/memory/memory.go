// Package memory provides an in-memory checkpoint.Store, mainly for tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/davidvella/timerstate/checkpoint"
	"github.com/google/btree"
)

type entry struct {
	key  checkpoint.Key
	data []byte
}

// Store keeps checkpoints in a btree ordered by key.
type Store struct {
	mu     sync.RWMutex
	tree   *btree.BTreeG[entry]
	closed bool
}

func NewStore() *Store {
	return &Store{
		tree: btree.NewG[entry](2, func(a, b entry) bool {
			return a.key.Compare(b.key) < 0
		}),
	}
}

func (s *Store) Save(_ context.Context, key checkpoint.Key, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return checkpoint.ErrStoreClosed
	}
	s.tree.ReplaceOrInsert(entry{key: key, data: append([]byte(nil), data...)})
	return nil
}

func (s *Store) Load(_ context.Context, key checkpoint.Key) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, checkpoint.ErrStoreClosed
	}
	e, ok := s.tree.Get(entry{key: key})
	if !ok {
		return nil, fmt.Errorf("%w: %s", checkpoint.ErrNotFound, key)
	}
	return append([]byte(nil), e.data...), nil
}

func (s *Store) Delete(_ context.Context, key checkpoint.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return checkpoint.ErrStoreClosed
	}
	s.tree.Delete(entry{key: key})
	return nil
}

func (s *Store) List(_ context.Context) ([]checkpoint.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, checkpoint.ErrStoreClosed
	}
	keys := make([]checkpoint.Key, 0, s.tree.Len())
	s.tree.Ascend(func(e entry) bool {
		keys = append(keys, e.key)
		return true
	})
	return keys, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
