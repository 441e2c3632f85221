package cache

import (
	"sync"
	"time"
)

// TTLCache 带过期时间的内存缓存
// 无后台清理协程：过期项在 Get 时惰性剔除，适合键空间很小的场景
type TTLCache[K comparable, V any] struct {
	mu         sync.RWMutex
	items      map[K]entry[V]
	defaultTTL time.Duration
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// New 创建缓存，ttl 为 Set 未指定时的默认过期时长
func New[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		items:      make(map[K]entry[V]),
		defaultTTL: ttl,
	}
}

// Get 读取缓存值，过期视为不存在并顺手删除
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// 重查：RUnlock 和 Lock 之间可能已被覆盖
		if cur, ok := c.items[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set 写入缓存值，ttl 为 0 时用默认过期时长
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Delete 删除缓存项
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear 清空缓存
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	c.items = make(map[K]entry[V])
	c.mu.Unlock()
}

// Size 当前缓存项数（含未剔除的过期项）
func (c *TTLCache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
