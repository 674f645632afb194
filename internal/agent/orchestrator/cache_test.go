package orchestrator

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plan-assist-core/server/internal/agent/model"
)

func TestResponseCache_GetPut(t *testing.T) {
	c := NewResponseCache(10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Put(CacheKey("299", "auto"), &model.Result{Success: true, Response: "r"})
	got, ok := c.Get(CacheKey("299", "auto"))
	require.True(t, ok)
	assert.Equal(t, "r", got.Response)

	_, ok = c.Get(CacheKey("299", "sequential"))
	assert.False(t, ok, "strategy hint is part of the key")

	_, ok = c.Get(CacheKey(" 299", "auto"))
	assert.False(t, ok, "queries are not normalized")
}

func TestResponseCache_Expiry(t *testing.T) {
	c := NewResponseCache(10, 30*time.Millisecond)

	c.Put("k", &model.Result{Response: "r"})
	_, ok := c.Get("k")
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestResponseCache_ReturnsCopies(t *testing.T) {
	c := NewResponseCache(10, time.Minute)

	original := &model.Result{Response: "r", Metadata: model.Metadata{ToolsCalled: []string{"plan_299"}}}
	c.Put("k", original)
	original.Metadata.ToolsCalled[0] = "mutated"

	got, ok := c.Get("k")
	require.True(t, ok)
	got.Metadata.Cached = true
	got.Metadata.ToolsCalled[0] = "mutated again"

	again, ok := c.Get("k")
	require.True(t, ok)
	assert.False(t, again.Metadata.Cached)
	assert.Equal(t, []string{"plan_299"}, again.Metadata.ToolsCalled)
}

func TestResponseCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewResponseCache(2, time.Minute)

	c.Put("a", &model.Result{Response: "a"})
	c.Put("b", &model.Result{Response: "b"})
	_, _ = c.Get("a")
	c.Put("c", &model.Result{Response: "c"})

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())

	assert.Equal(t, 2, c.Purge())
	assert.Equal(t, 0, c.Len())
}

func TestResponseCache_ConcurrentAccess(t *testing.T) {
	c := NewResponseCache(16, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("q%d", i%8)
			for j := 0; j < 50; j++ {
				c.Put(key, &model.Result{Response: key, Metadata: model.Metadata{ToolsCalled: []string{key}}})
				if got, ok := c.Get(key); ok {
					got.Metadata.ToolsCalled[0] = "mutated"
				}
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		key := fmt.Sprintf("q%d", i)
		got, ok := c.Get(key)
		require.True(t, ok, key)
		assert.Equal(t, []string{key}, got.Metadata.ToolsCalled)
	}
}
