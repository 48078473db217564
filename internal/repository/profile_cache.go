package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/blog-service/internal/domain"
)

const profileKeyPrefix = "blog:profile:"

// ProfileCache stores public profiles in Redis. It never holds credentials and
// is never consulted to authenticate a request. A nil cache is a no-op.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProfileCache returns nil when client is nil.
func NewProfileCache(client *redis.Client, ttl time.Duration) *ProfileCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ProfileCache{client: client, ttl: ttl}
}

// Get returns the cached profile, or false on a miss.
func (c *ProfileCache) Get(ctx context.Context, id string) (*domain.Profile, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, profileKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var profile domain.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, false, err
	}
	return &profile, true, nil
}

func (c *ProfileCache) Set(ctx context.Context, profile domain.Profile) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, profileKeyPrefix+profile.ID, raw, c.ttl).Err()
}

func (c *ProfileCache) Delete(ctx context.Context, id string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, profileKeyPrefix+id).Err()
}
