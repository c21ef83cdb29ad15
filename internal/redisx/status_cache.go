package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status is the cached view of one order or reservation.
type Status struct {
	Kind          string    `json:"kind"`
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	DepositStatus string    `json:"deposit_status,omitempty"`
	EventType     string    `json:"event_type"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Newer reports whether s should replace old.
func (s Status) Newer(old Status) bool {
	return !s.UpdatedAt.Before(old.UpdatedAt)
}

type StatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatusCache(rdb *redis.Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = TTLStatusCache
	}
	return &StatusCache{rdb: rdb, ttl: ttl}
}

func (c *StatusCache) Get(ctx context.Context, kind, id string) (Status, bool, error) {
	b, err := c.rdb.Get(ctx, StatusKey(kind, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Status{}, false, nil
	}
	if err != nil {
		return Status{}, false, err
	}
	var s Status
	if err := json.Unmarshal(b, &s); err != nil {
		return Status{}, false, fmt.Errorf("decode status %s/%s: %w", kind, id, err)
	}
	return s, true, nil
}

// Put stores s unless the cache already holds a newer entry.
func (c *StatusCache) Put(ctx context.Context, s Status) error {
	old, ok, err := c.Get(ctx, s.Kind, s.ID)
	if err != nil {
		return err
	}
	if ok && !s.Newer(old) {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, StatusKey(s.Kind, s.ID), b, c.ttl).Err()
}
