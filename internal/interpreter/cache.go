package interpreter

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/BilalMagg/Auralia-sub000/internal/action"
)

// resultCache maps normalized commands to interpretation results. Entries
// never expire unless a TTL is configured. Expired entries are purged lazily,
// so no janitor goroutine is started.
type resultCache struct {
	c *cache.Cache
}

func newResultCache(ttl time.Duration) *resultCache {
	exp := cache.NoExpiration
	if ttl > 0 {
		exp = ttl
	}
	return &resultCache{c: cache.New(exp, 0)}
}

func (rc *resultCache) Get(key string) (action.CommandResult, bool) {
	v, ok := rc.c.Get(key)
	if !ok {
		return action.CommandResult{}, false
	}
	res := v.(action.CommandResult)
	res.Actions = res.Actions.Clone()
	return res, true
}

func (rc *resultCache) Put(key string, res action.CommandResult) {
	res.Actions = res.Actions.Clone()
	rc.c.SetDefault(key, res)
}

func (rc *resultCache) Delete(key string) bool {
	_, ok := rc.c.Get(key)
	rc.c.Delete(key)
	return ok
}

func (rc *resultCache) Len() int {
	rc.c.DeleteExpired()
	return rc.c.ItemCount()
}

func (rc *resultCache) Flush() { rc.c.Flush() }
