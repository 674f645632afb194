package orchestrator

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/plan-assist-core/server/internal/agent/model"
)

const (
	defaultCacheSize = 1000
	defaultCacheTTL  = 300 * time.Second
)

// ResponseCache holds finished results keyed by the raw query and strategy
// hint. Entries expire after ttl and the LRU bound keeps memory flat when many
// distinct queries arrive. Safe for concurrent use.
type ResponseCache struct {
	lru *expirable.LRU[string, *model.Result]
}

func NewResponseCache(size int, ttl time.Duration) *ResponseCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &ResponseCache{lru: expirable.NewLRU[string, *model.Result](size, nil, ttl)}
}

// CacheKey is the raw query and hint joined verbatim. Case and whitespace
// variants are distinct keys.
func CacheKey(query, strategyHint string) string {
	return query + ":" + strategyHint
}

// Get returns a copy of a live entry.
func (c *ResponseCache) Get(key string) (*model.Result, bool) {
	result, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return result.Clone(), true
}

func (c *ResponseCache) Put(key string, result *model.Result) {
	c.lru.Add(key, result.Clone())
}

// Len counts stored entries, including expired ones not yet swept.
func (c *ResponseCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry and reports how many there were.
func (c *ResponseCache) Purge() int {
	n := c.lru.Len()
	c.lru.Purge()
	return n
}
