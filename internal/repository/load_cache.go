package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const loadSnapshotKey = "helpdesk:roster:load"

// LoadSnapshot is a cached view of per-agent load for the admin console.
// The routing engine never reads it; strategies always see fresh counts.
type LoadSnapshot struct {
	TakenAt time.Time        `json:"taken_at"`
	Loads   map[string]int   `json:"loads"`
}

// LoadCache stores short-lived roster load snapshots.
type LoadCache interface {
	Put(ctx context.Context, snapshot LoadSnapshot) error
	Get(ctx context.Context) (*LoadSnapshot, error)
}

type redisLoadCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLoadCache builds a Redis-backed load cache.
func NewLoadCache(client *redis.Client, ttl time.Duration) LoadCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisLoadCache{client: client, ttl: ttl}
}

func (c *redisLoadCache) Put(ctx context.Context, snapshot LoadSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, loadSnapshotKey, payload, c.ttl).Err()
}

func (c *redisLoadCache) Get(ctx context.Context) (*LoadSnapshot, error) {
	payload, err := c.client.Get(ctx, loadSnapshotKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var snapshot LoadSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
