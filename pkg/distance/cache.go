package distance

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/paiban/visitplan/pkg/logger"
)

// CacheObserver 缓存命中回调
type CacheObserver func(businessLine, layer string, hit bool)

// Cache 按业务线缓存仓库，进程生命周期内每个业务线只加载一次
type Cache struct {
	source    Source
	snapshots SnapshotStore
	observe   CacheObserver

	mu      sync.RWMutex
	entries map[string]*Repository
	group   singleflight.Group
}

// CacheOption 缓存选项
type CacheOption func(*Cache)

// WithSnapshotStore 设置快照存储
func WithSnapshotStore(s SnapshotStore) CacheOption {
	return func(c *Cache) { c.snapshots = s }
}

// WithObserver 设置命中回调
func WithObserver(fn CacheObserver) CacheOption {
	return func(c *Cache) { c.observe = fn }
}

// NewCache 创建缓存
func NewCache(source Source, opts ...CacheOption) *Cache {
	c := &Cache{
		source:  source,
		entries: make(map[string]*Repository),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get 获取业务线仓库，并发调用共享同一次加载
func (c *Cache) Get(ctx context.Context, businessLine string) (*Repository, error) {
	c.mu.RLock()
	repo, ok := c.entries[businessLine]
	c.mu.RUnlock()
	c.notify(businessLine, "memory", ok)
	if ok {
		return repo, nil
	}

	v, err, _ := c.group.Do(businessLine, func() (interface{}, error) {
		c.mu.RLock()
		if repo, ok := c.entries[businessLine]; ok {
			c.mu.RUnlock()
			return repo, nil
		}
		c.mu.RUnlock()

		m, err := c.load(ctx, businessLine)
		if err != nil {
			return nil, err
		}
		repo := NewRepository(m)
		c.mu.Lock()
		c.entries[businessLine] = repo
		c.mu.Unlock()
		return repo, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Repository), nil
}

func (c *Cache) load(ctx context.Context, businessLine string) (*Matrix, error) {
	log := logger.WithContext(ctx)
	if c.snapshots != nil {
		m, ok, err := c.snapshots.Get(ctx, businessLine)
		if err != nil {
			log.Warn().Err(err).Str("business_line", businessLine).Msg("读取距离快照失败，回退到数据源")
		}
		c.notify(businessLine, "snapshot", ok && err == nil)
		if ok && err == nil {
			return m, nil
		}
	}

	m, err := c.source.Load(ctx, businessLine)
	if err != nil {
		return nil, err
	}
	if m.BusinessLine == "" {
		m.BusinessLine = businessLine
	}
	log.Info().
		Str("business_line", businessLine).
		Int("providers", len(m.HomeToFacility)).
		Int("facilities", len(m.FacilityToFacility)).
		Msg("距离矩阵已加载")

	if c.snapshots != nil {
		if err := c.snapshots.Put(ctx, m); err != nil {
			log.Warn().Err(err).Str("business_line", businessLine).Msg("写入距离快照失败")
		}
	}
	return m, nil
}

// Invalidate 移除业务线缓存
func (c *Cache) Invalidate(businessLine string) {
	c.mu.Lock()
	delete(c.entries, businessLine)
	c.mu.Unlock()
}

func (c *Cache) notify(businessLine, layer string, hit bool) {
	if c.observe != nil {
		c.observe(businessLine, layer, hit)
	}
}
