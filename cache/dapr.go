package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	daprc "github.com/dapr/go-sdk/client"
	"github.com/rs/zerolog/log"

	"github.com/mediaflow-hub/listing-aggregator/model"
)

// DaprCache stores listing pages in a Dapr state store component, letting
// the sidecar's backing store (Redis, MongoDB, ...) handle durability.
// Expiry uses the state store's ttlInSeconds metadata.
type DaprCache struct {
	client    daprc.Client
	storeName string
}

// NewDaprCache connects to the local Dapr sidecar and targets the named
// state store component.
func NewDaprCache(storeName string) (*DaprCache, error) {
	client, err := daprc.NewClient()
	if err != nil {
		return nil, fmt.Errorf("creating dapr client: %w", err)
	}
	log.Info().Str("state_store", storeName).Msg("Connected to Dapr state store")
	return &DaprCache{client: client, storeName: storeName}, nil
}

// Get implements Cache.
func (c *DaprCache) Get(ctx context.Context, key string) (model.FetchResult, bool, error) {
	item, err := c.client.GetState(ctx, c.storeName, key, nil)
	if err != nil {
		return model.FetchResult{}, false, fmt.Errorf("dapr get %q: %w", key, err)
	}
	if len(item.Value) == 0 {
		return model.FetchResult{}, false, nil
	}

	var value model.FetchResult
	if err := json.Unmarshal(item.Value, &value); err != nil {
		return model.FetchResult{}, false, fmt.Errorf("decoding cached value for %q: %w", key, err)
	}
	return value, true, nil
}

// Set implements Cache.
func (c *DaprCache) Set(ctx context.Context, key string, value model.FetchResult, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value for %q: %w", key, err)
	}
	meta := map[string]string{
		"ttlInSeconds": strconv.Itoa(int(ttl.Seconds())),
	}
	if err := c.client.SaveState(ctx, c.storeName, key, data, meta); err != nil {
		return fmt.Errorf("dapr set %q: %w", key, err)
	}
	return nil
}
