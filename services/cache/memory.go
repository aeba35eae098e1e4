package cachesvc

import (
	"regexp"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
)

// memoryCache is a process-wide in-memory core.Cache. Expired entries behave
// as misses on Get; an opportunistic janitor sweeps them out in the
// background. Suitable for single-process deployments only — it silently
// under-invalidates across instances (use the redis backend there).
type memoryCache struct {
	c      *gocache.Cache
	logger core.Logger
}

var _ core.Cache = (*memoryCache)(nil)

func NewMemoryCache(logger core.Logger) *memoryCache {
	return &memoryCache{
		c:      gocache.New(gocache.NoExpiration, 10*time.Minute),
		logger: logger,
	}
}

func (mc *memoryCache) Get(key string) (interface{}, bool) {
	return mc.c.Get(key)
}

func (mc *memoryCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	mc.c.Set(key, value, ttl)
}

func (mc *memoryCache) Delete(key string) {
	mc.c.Delete(key)
}

func (mc *memoryCache) DeletePattern(pattern string) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		mc.logger.Warn("cache: invalid delete pattern", err, map[string]interface{}{"pattern": pattern})
		return
	}
	for key := range mc.c.Items() {
		if re.MatchString(key) {
			mc.c.Delete(key)
		}
	}
}
