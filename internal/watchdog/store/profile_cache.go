package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"overdue-watchdog/internal/common/logger"
	"overdue-watchdog/internal/models"

	"github.com/redis/go-redis/v9"
)

const profileCachePrefix = "watchdog:profile:"

// ProfileReader is satisfied by ProfileStore and CachedProfileStore.
type ProfileReader interface {
	GetProfile(ctx context.Context, subjectID string) (*models.Profile, error)
}

// CachedProfileStore serves display identities from redis, falling through to next on a
// miss or any redis failure. Missing profiles are not cached.
type CachedProfileStore struct {
	next   ProfileReader
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedProfileStore(next ProfileReader, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedProfileStore {
	return &CachedProfileStore{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "profile_cache"}),
	}
}

func profileCacheKey(subjectID string) string {
	return profileCachePrefix + subjectID
}

func (c *CachedProfileStore) GetProfile(ctx context.Context, subjectID string) (*models.Profile, error) {
	key := profileCacheKey(subjectID)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var profile models.Profile
		if err := json.Unmarshal([]byte(val), &profile); err == nil {
			return &profile, nil
		}
		c.logger.Warn("discarding undecodable cached profile", map[string]interface{}{"subjectId": subjectID})
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("profile cache read failed", map[string]interface{}{
			"subjectId": subjectID,
			"error":     err.Error(),
		})
	}

	profile, err := c.next.GetProfile(ctx, subjectID)
	if err != nil || profile == nil {
		return profile, err
	}

	data, err := json.Marshal(profile)
	if err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("profile cache write failed", map[string]interface{}{
				"subjectId": subjectID,
				"error":     err.Error(),
			})
		}
	}
	return profile, nil
}
