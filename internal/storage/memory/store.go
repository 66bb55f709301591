// Package memory is a process-local storage.Store used for tests and for the
// simulated remote when no file is wanted.
package memory

import (
	"sort"
	"sync"

	"github.com/julianstephens/habitquest/internal/storage"
)

type Store struct {
	mu   sync.RWMutex
	data map[string]string

	// FailWrites makes every write return it, for exercising storage failure paths.
	FailWrites error
	// FailReads makes every Get return it.
	FailReads error
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Init() error  { return nil }
func (s *Store) Load() error  { return nil }
func (s *Store) Close() error { return nil }

func (s *Store) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailReads != nil {
		return "", s.FailReads
	}
	v, ok := s.data[key]
	if !ok {
		return "", storage.ErrKeyNotFound
	}
	return v, nil
}

func (s *Store) Set(key, value string) error {
	return s.SetMany(map[string]string{key: value})
}

func (s *Store) SetMany(entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	for k, v := range entries {
		s.data[k] = v
	}
	return nil
}

func (s *Store) Remove(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *Store) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// SetFailWrites toggles write failures under the store's lock.
func (s *Store) SetFailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailWrites = err
}

// SetFailReads toggles read failures under the store's lock.
func (s *Store) SetFailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailReads = err
}

func (s *Store) GetConfigPath() string {
	return ":memory:"
}
