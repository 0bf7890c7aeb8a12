package image_search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Safwan2003/ai-proposalgenerator-backend/tools/image_search/models"
)

// CachedSearcher wraps an ImageSearcher with a Redis result cache. Stock
// image results for a query barely change; repeated proposals against
// similar RFPs hit the same queries.
type CachedSearcher struct {
	next   ImageSearcher
	client *redis.Client
	ttl    time.Duration
}

func NewCachedSearcher(next ImageSearcher, client *redis.Client, ttl time.Duration) *CachedSearcher {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedSearcher{next: next, client: client, ttl: ttl}
}

func (c *CachedSearcher) Search(ctx context.Context, query string, limit int) ([]models.Image, error) {
	key := fmt.Sprintf("imgsearch:%d:%s", limit, query)

	if val, err := c.client.Get(ctx, key).Result(); err == nil {
		var cached []models.Image
		if json.Unmarshal([]byte(val), &cached) == nil {
			return cached, nil
		}
	}

	images, err := c.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(images); err == nil {
		_ = c.client.Set(ctx, key, data, c.ttl).Err()
	}
	return images, nil
}
