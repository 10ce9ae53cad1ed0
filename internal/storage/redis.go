package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/assessment-engine/internal/navigation"
)

const snapshotKeyPrefix = "assessment:tab:"

// RedisSnapshotStore implements SnapshotStore using Redis
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	// TTL bounds how long an abandoned tab's snapshot is kept
	TTL time.Duration
}

// NewRedisSnapshotStore connects to Redis and verifies the connection
func NewRedisSnapshotStore(ctx context.Context, cfg RedisConfig) (*RedisSnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisSnapshotStoreWithClient(client, cfg.TTL), nil
}

// NewRedisSnapshotStoreWithClient wraps an existing client
func NewRedisSnapshotStoreWithClient(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSnapshotStore{client: client, ttl: ttl}
}

// SaveSnapshot stores a tab's snapshot and refreshes its TTL
func (s *RedisSnapshotStore) SaveSnapshot(ctx context.Context, tabID string, snap navigation.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, snapshotKey(tabID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	slog.Debug("tab snapshot saved", "tab_id", tabID, "funnel", snap.Funnel.State)
	return nil
}

// LoadSnapshot retrieves a tab's snapshot
func (s *RedisSnapshotStore) LoadSnapshot(ctx context.Context, tabID string) (*navigation.Snapshot, error) {
	data, err := s.client.Get(ctx, snapshotKey(tabID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap navigation.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// DeleteSnapshot removes a tab's snapshot
func (s *RedisSnapshotStore) DeleteSnapshot(ctx context.Context, tabID string) error {
	if err := s.client.Del(ctx, snapshotKey(tabID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Ping verifies Redis connectivity
func (s *RedisSnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}

func snapshotKey(tabID string) string {
	return snapshotKeyPrefix + tabID
}
