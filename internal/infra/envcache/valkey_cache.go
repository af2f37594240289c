package envcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/allergy-risk/internal/domain/environment"
	"github.com/yanqian/allergy-risk/internal/domain/features"
)

// ValkeyCache shares snapshots across replicas through a Valkey-compatible database.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache constructs a cache backed by Valkey.
func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = "env"
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

// Get implements environment.Cache.
func (c *ValkeyCache) Get(ctx context.Context, key string) (features.EnvironmentalSnapshot, bool, error) {
	cmd := c.client.B().Get().Key(c.entryKey(key)).Build()
	payload, err := c.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return features.EnvironmentalSnapshot{}, false, nil
		}
		return features.EnvironmentalSnapshot{}, false, err
	}
	var snapshot features.EnvironmentalSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return features.EnvironmentalSnapshot{}, false, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return snapshot, true, nil
}

// Set implements environment.Cache.
func (c *ValkeyCache) Set(ctx context.Context, key string, snapshot features.EnvironmentalSnapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	builder := c.client.B().Set().Key(c.entryKey(key)).Value(valkey.BinaryString(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return c.client.Do(ctx, cmd).Error()
}

func (c *ValkeyCache) entryKey(key string) string {
	return fmt.Sprintf("%s:snapshot:%s", c.prefix, key)
}

var _ environment.Cache = (*ValkeyCache)(nil)
