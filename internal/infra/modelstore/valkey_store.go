package modelstore

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/allergy-risk/internal/domain/risk"
)

// ValkeyStore keeps the artifact under a single Valkey key. SET replaces the
// value atomically.
type ValkeyStore struct {
	client valkey.Client
	key    string
}

// NewValkeyStore constructs a store backed by Valkey.
func NewValkeyStore(client valkey.Client, key string) *ValkeyStore {
	if key == "" {
		key = "allergy-risk:model"
	}
	return &ValkeyStore{client: client, key: key}
}

// Load implements risk.ArtifactStore.
func (s *ValkeyStore) Load(ctx context.Context) ([]byte, bool, error) {
	cmd := s.client.B().Get().Key(s.key).Build()
	payload, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get model key: %w", err)
	}
	return payload, true, nil
}

// Save implements risk.ArtifactStore.
func (s *ValkeyStore) Save(ctx context.Context, data []byte) error {
	cmd := s.client.B().Set().Key(s.key).Value(valkey.BinaryString(data)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set model key: %w", err)
	}
	return nil
}

var _ risk.ArtifactStore = (*ValkeyStore)(nil)
