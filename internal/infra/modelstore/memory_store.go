package modelstore

import (
	"context"
	"sync"

	"github.com/yanqian/allergy-risk/internal/domain/risk"
)

// MemoryStore keeps the artifact in process memory for tests/dev.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements risk.ArtifactStore.
func (s *MemoryStore) Load(_ context.Context) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, false, nil
	}
	return append([]byte(nil), s.data...), true, nil
}

// Save implements risk.ArtifactStore.
func (s *MemoryStore) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	return nil
}

var _ risk.ArtifactStore = (*MemoryStore)(nil)
