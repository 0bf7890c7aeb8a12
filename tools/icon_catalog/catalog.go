package icon_catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/core"
)

const redisKey = "iconcatalog:simple-icons"

// Catalog serves the simple-icons index used for technology logo lookup.
// The index is fetched from the CDN once, cached in Redis for cross-process
// reuse and held in memory for the TTL.
type Catalog struct {
	url    string
	ttl    time.Duration
	client *http.Client
	redis  *redis.Client

	mu        sync.Mutex
	icons     []core.CatalogIcon
	fetchedAt time.Time
}

func New(url string, ttl time.Duration, rdb *redis.Client) *Catalog {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Catalog{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 30 * time.Second},
		redis:  rdb,
	}
}

// Icons returns the icon index, fetching it on first use or after expiry.
func (c *Catalog) Icons(ctx context.Context) ([]core.CatalogIcon, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.icons != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.icons, nil
	}

	if c.redis != nil {
		if val, err := c.redis.Get(ctx, redisKey).Result(); err == nil {
			var cached []core.CatalogIcon
			if json.Unmarshal([]byte(val), &cached) == nil && len(cached) > 0 {
				c.icons = cached
				c.fetchedAt = time.Now()
				return c.icons, nil
			}
		}
	}

	icons, err := c.fetch(ctx)
	if err != nil {
		// Serve a stale in-memory copy over failing the caller.
		if c.icons != nil {
			return c.icons, nil
		}
		return nil, err
	}

	c.icons = icons
	c.fetchedAt = time.Now()
	if c.redis != nil {
		if data, err := json.Marshal(icons); err == nil {
			_ = c.redis.Set(ctx, redisKey, data, c.ttl).Err()
		}
	}
	return c.icons, nil
}

func (c *Catalog) fetch(ctx context.Context) ([]core.CatalogIcon, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("icon catalog fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("icon catalog status %d", resp.StatusCode)
	}

	var raw struct {
		Icons []core.CatalogIcon `json:"icons"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("icon catalog decode: %w", err)
	}
	if len(raw.Icons) == 0 {
		return nil, fmt.Errorf("icon catalog empty")
	}
	return raw.Icons, nil
}
