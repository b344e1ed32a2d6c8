package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/PabloGalante/aiva-chat/internal/domain"
)

// ErrQuotaExceeded is returned when a write would grow the store past its quota.
var ErrQuotaExceeded = fmt.Errorf("%w: quota exceeded", domain.ErrStorage)

// Store is an in-memory implementation of domain.KVStore.
// It is NOT persistent and is only suitable for development / tests.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
	quota  int // total bytes of keys+values, 0 = unlimited
	size   int
}

func NewStore() *Store {
	return &Store{
		values: make(map[string]string),
	}
}

// NewStoreWithQuota behaves like browser storage: a write that would push
// the total size over quota bytes fails and leaves the old value in place.
func NewStoreWithQuota(quota int) *Store {
	s := NewStore()
	s.quota = quota
	return s
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.values[key]
	next := s.size + len(value)
	if exists {
		next -= len(old)
	} else {
		next += len(key)
	}

	if s.quota > 0 && next > s.quota {
		return ErrQuotaExceeded
	}

	s.values[key] = value
	s.size = next
	return nil
}
