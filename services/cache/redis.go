package cachesvc

import (
	"bytes"
	"context"
	"encoding/gob"
	"regexp"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/attendance"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/marks"
)

func init() {
	// concrete payloads crossing the gob boundary
	gob.Register(attendance.StudentStats{})
	gob.Register(attendance.Stats{})
	gob.Register(marks.Summary{})
}

// redisCache is a core.Cache backed by a shared redis instance, for
// multi-process deployments where per-process maps would under-invalidate.
// Like every core.Cache it is best-effort: any redis error degrades to a miss
// and is logged, never surfaced.
type redisCache struct {
	client *redis.Client
	logger core.Logger
}

var _ core.Cache = (*redisCache)(nil)

func NewRedisCache(conf core.RedisConfig, logger core.Logger) *redisCache {
	return &redisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     conf.Addr,
			Password: conf.Password,
			DB:       conf.DB,
		}),
		logger: logger,
	}
}

func (rc *redisCache) Get(key string) (interface{}, bool) {
	data, err := rc.client.Get(context.Background(), key).Bytes()
	if err != nil {
		if err != redis.Nil {
			rc.logger.Warn("cache: redis get", err, map[string]interface{}{"key": key})
		}
		return nil, false
	}

	var value interface{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&value); err != nil {
		rc.logger.Warn("cache: decoding entry", err, map[string]interface{}{"key": key})
		rc.Delete(key)
		return nil, false
	}
	return value, true
}

func (rc *redisCache) Set(key string, value interface{}, ttl time.Duration) {
	var buff bytes.Buffer
	if err := gob.NewEncoder(&buff).Encode(&value); err != nil {
		rc.logger.Warn("cache: encoding entry", err, map[string]interface{}{"key": key})
		return
	}
	if err := rc.client.Set(context.Background(), key, buff.Bytes(), ttl).Err(); err != nil {
		rc.logger.Warn("cache: redis set", err, map[string]interface{}{"key": key})
	}
}

func (rc *redisCache) Delete(key string) {
	if err := rc.client.Del(context.Background(), key).Err(); err != nil {
		rc.logger.Warn("cache: redis del", err, map[string]interface{}{"key": key})
	}
}

func (rc *redisCache) DeletePattern(pattern string) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		rc.logger.Warn("cache: invalid delete pattern", err, map[string]interface{}{"pattern": pattern})
		return
	}

	ctx := context.Background()
	iter := rc.client.Scan(ctx, 0, "", 0).Iterator()
	for iter.Next(ctx) {
		if key := iter.Val(); re.MatchString(key) {
			rc.Delete(key)
		}
	}
	if err := iter.Err(); err != nil {
		rc.logger.Warn("cache: redis scan", err, map[string]interface{}{"pattern": pattern})
	}
}
