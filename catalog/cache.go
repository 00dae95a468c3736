package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/logging"
)

// Cached 在另一个 core.Catalog（通常是远端后端）前加一层内存缓存：
//   - List 结果缓存 ttl；源出错时返回过期的旧列表（若有）
//   - Get 结果按 ID 缓存，超过 maxSize 时淘汰最久未访问的条目
type Cached struct {
	src     core.Catalog
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	mu      sync.Mutex
	list    []*core.Item
	listExp time.Time
	items   map[string]*cacheEntry
}

type cacheEntry struct {
	item       *core.Item
	expireTime time.Time
	accessTime time.Time
}

// DefaultCacheSize 是 Get 缓存的默认容量。
const DefaultCacheSize = 1000

// NewCached 创建缓存目录；ttl <= 0 时不缓存，直接透传。
func NewCached(src core.Catalog, ttl time.Duration, maxSize int) *Cached {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &Cached{
		src:     src,
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		items:   make(map[string]*cacheEntry),
	}
}

var _ core.Catalog = (*Cached)(nil)

func cloneAll(items []*core.Item) []*core.Item {
	out := make([]*core.Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

func (c *Cached) List(ctx context.Context) ([]*core.Item, error) {
	if c.ttl <= 0 {
		return c.src.List(ctx)
	}

	c.mu.Lock()
	if c.list != nil && c.now().Before(c.listExp) {
		out := cloneAll(c.list)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	items, err := c.src.List(ctx)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.list != nil {
			logging.Warn().Err(err).Int("items", len(c.list)).Msg("catalog source failed, serving stale list")
			return cloneAll(c.list), nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.list = cloneAll(items)
	c.listExp = c.now().Add(c.ttl)
	c.mu.Unlock()
	return items, nil
}

func (c *Cached) Get(ctx context.Context, id string) (*core.Item, error) {
	if c.ttl <= 0 {
		return c.src.Get(ctx, id)
	}

	now := c.now()
	c.mu.Lock()
	if e, ok := c.items[id]; ok && now.Before(e.expireTime) {
		e.accessTime = now
		it := e.item.Clone()
		c.mu.Unlock()
		return it, nil
	}
	c.mu.Unlock()

	it, err := c.src.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) >= c.maxSize {
		c.evictLRU()
	}
	c.items[id] = &cacheEntry{item: it.Clone(), expireTime: now.Add(c.ttl), accessTime: now}
	return it, nil
}

// Invalidate 清空缓存。
func (c *Cached) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = nil
	c.items = make(map[string]*cacheEntry)
}

// evictLRU 删除最久未访问的条目，调用方持有锁。
func (c *Cached) evictLRU() {
	var (
		oldestKey  string
		oldestTime time.Time
		first      = true
	)
	for key, e := range c.items {
		if first || e.accessTime.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.accessTime
			first = false
		}
	}
	if !first {
		delete(c.items, oldestKey)
	}
}
