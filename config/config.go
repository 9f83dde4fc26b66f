// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backend selectors for the response cache and rate-limiter state.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendDapr   = "dapr"
)

// Config holds every runtime knob for the aggregation service. All values
// come from AGG_-prefixed environment variables with sensible defaults.
type Config struct {
	Port      int
	UserAgent string

	// Upstream API access.
	ClientID       string
	ClientSecret   string
	TokenURL       string
	APIBaseURL     string
	RequestTimeout time.Duration

	// Backend for shared cache and rate-limiter state.
	StoreBackend   string
	RedisAddr      string
	DaprStateStore string

	// Response cache tuning.
	CacheTTL        time.Duration
	CacheMaxEntries int
	CacheSweep      time.Duration

	// Rate limiting: one budget for upstream listing calls, one for
	// general inbound traffic.
	ListingMaxRequests int
	ListingWindow      time.Duration
	GlobalMaxRequests  int
	GlobalWindow       time.Duration

	// Aggregation bounds.
	MaxChannels int
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AGG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8080)
	v.SetDefault("user_agent", "listing-aggregator/1.0")
	v.SetDefault("token_url", "https://www.reddit.com/api/v1/access_token")
	v.SetDefault("api_base_url", "https://oauth.reddit.com")
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("store_backend", BackendMemory)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("dapr_state_store", "statestore")
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("cache_max_entries", 512)
	v.SetDefault("cache_sweep", time.Minute)
	v.SetDefault("listing_max_requests", 60)
	v.SetDefault("listing_window", time.Hour)
	v.SetDefault("global_max_requests", 600)
	v.SetDefault("global_window", time.Hour)
	v.SetDefault("max_channels", 10)

	cfg := &Config{
		Port:               v.GetInt("port"),
		UserAgent:          v.GetString("user_agent"),
		ClientID:           v.GetString("client_id"),
		ClientSecret:       v.GetString("client_secret"),
		TokenURL:           v.GetString("token_url"),
		APIBaseURL:         v.GetString("api_base_url"),
		RequestTimeout:     v.GetDuration("request_timeout"),
		StoreBackend:       v.GetString("store_backend"),
		RedisAddr:          v.GetString("redis_addr"),
		DaprStateStore:     v.GetString("dapr_state_store"),
		CacheTTL:           v.GetDuration("cache_ttl"),
		CacheMaxEntries:    v.GetInt("cache_max_entries"),
		CacheSweep:         v.GetDuration("cache_sweep"),
		ListingMaxRequests: v.GetInt("listing_max_requests"),
		ListingWindow:      v.GetDuration("listing_window"),
		GlobalMaxRequests:  v.GetInt("global_max_requests"),
		GlobalWindow:       v.GetDuration("global_window"),
		MaxChannels:        v.GetInt("max_channels"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	switch c.StoreBackend {
	case BackendMemory, BackendRedis, BackendDapr:
	default:
		return fmt.Errorf("invalid store_backend %q, must be one of: %s, %s, %s",
			c.StoreBackend, BackendMemory, BackendRedis, BackendDapr)
	}
	if c.StoreBackend == BackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required when store_backend is %s", BackendRedis)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive")
	}
	if c.CacheMaxEntries < 1 {
		return fmt.Errorf("cache_max_entries must be at least 1")
	}
	if c.ListingMaxRequests < 1 || c.GlobalMaxRequests < 1 {
		return fmt.Errorf("rate limit budgets must be at least 1")
	}
	if c.ListingWindow <= 0 || c.GlobalWindow <= 0 {
		return fmt.Errorf("rate limit windows must be positive")
	}
	if c.MaxChannels < 1 {
		return fmt.Errorf("max_channels must be at least 1")
	}
	return nil
}
