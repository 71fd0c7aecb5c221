package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultProxyTTL bounds how long a saved pool is trusted for a warm start.
	// Free proxies rarely survive longer than that.
	DefaultProxyTTL = 30 * time.Minute
	// DefaultStopSeenTTL is how long the last-request timestamp of a stop is kept
	DefaultStopSeenTTL = 7 * 24 * time.Hour
)

// ProxySnapshot is the persisted form of the proxy pool.
type ProxySnapshot struct {
	Endpoints []string  `json:"endpoints"`
	SavedAt   time.Time `json:"saved_at"`
}

// Store handles Redis operations for the proxy snapshot and stop statistics.
// Redis is never the source of truth: the in-memory pool and cache are.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		ttl:    DefaultProxyTTL,
	}
}

// SaveProxies replaces the stored proxy snapshot
func (s *Store) SaveProxies(ctx context.Context, endpoints []string, savedAt time.Time) error {
	data, err := json.Marshal(ProxySnapshot{Endpoints: endpoints, SavedAt: savedAt})
	if err != nil {
		return fmt.Errorf("failed to marshal proxies: %w", err)
	}

	if err := s.client.Set(ctx, ProxiesKey(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save proxies: %w", err)
	}

	return nil
}

// GetProxies retrieves the stored proxy snapshot. A missing key is an empty
// snapshot, not an error.
func (s *Store) GetProxies(ctx context.Context) (ProxySnapshot, error) {
	data, err := s.client.Get(ctx, ProxiesKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ProxySnapshot{}, nil
		}
		return ProxySnapshot{}, fmt.Errorf("failed to get proxies: %w", err)
	}

	var snap ProxySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ProxySnapshot{}, fmt.Errorf("failed to unmarshal proxies: %w", err)
	}

	return snap, nil
}

// DeleteProxies removes the stored proxy snapshot
func (s *Store) DeleteProxies(ctx context.Context) error {
	if err := s.client.Del(ctx, ProxiesKey()).Err(); err != nil {
		return fmt.Errorf("failed to delete proxies: %w", err)
	}
	return nil
}

// Ping checks that Redis answers
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
