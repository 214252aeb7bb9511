package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

const (
	activityRecentKey    = "admin:activity:recent"
	activityRecentMaxLen = 50
	activityRecentTTL    = 24 * time.Hour
)

// pushRecent adds an event to the Redis recent list (newest at head).
// LPUSH + LTRIM keeps the last 50.
func (f *ActivityFeed) pushRecent(ctx context.Context, a models.Activity) {
	if f.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	pipe := f.redis.Pipeline()
	pipe.LPush(ctx, activityRecentKey, data)
	pipe.LTrim(ctx, activityRecentKey, 0, activityRecentMaxLen-1)
	pipe.Expire(ctx, activityRecentKey, activityRecentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("activity_cache: push failed: %v", err)
	}
}

func (f *ActivityFeed) recentFromCache(ctx context.Context) ([]models.Activity, bool) {
	if f.redis == nil {
		return nil, false
	}
	raw, err := f.redis.LRange(ctx, activityRecentKey, 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	events := make([]models.Activity, 0, len(raw))
	for _, r := range raw {
		var a models.Activity
		if json.Unmarshal([]byte(r), &a) != nil {
			continue
		}
		events = append(events, a)
	}
	return events, true
}

// Recent returns activity newest-first. The first page is served from Redis
// when it can be; older pages and cache misses go to MongoDB.
func (f *ActivityFeed) Recent(ctx context.Context, before *time.Time, limit int64) ([]models.Activity, bool, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if before == nil && limit <= activityRecentMaxLen {
		if cached, ok := f.recentFromCache(ctx); ok {
			out := cached
			if int64(len(cached)) > limit {
				out = cached[:limit]
			}
			return out, int64(len(cached)) > limit, nil
		}
	}
	return f.loadHistory(ctx, before, limit)
}
