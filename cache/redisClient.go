package cache

import (
	"errors"
	"sync"

	"github.com/go-redis/cache"
	"github.com/go-redis/redis"
	"github.com/vmihailenco/msgpack"
)

var (
	redisClient *redis.Client
	redisMutex  sync.RWMutex
	cacheCodec  *cache.Codec
)

func SetRedisClient(s *redis.Client) {
	redisMutex.Lock()
	redisClient = s
	cacheCodec = NewCacheCodec(s)
	redisMutex.Unlock()
}

func GetRedisClient() *redis.Client {
	redisMutex.RLock()
	defer redisMutex.RUnlock()

	if redisClient == nil {
		panic(errors.New("Tried to get redis client before cache#SetRedisClient() was called"))
	}

	return redisClient
}

func GetRedisCacheCodec() *cache.Codec {
	redisMutex.RLock()
	defer redisMutex.RUnlock()

	if cacheCodec == nil {
		panic(errors.New("Tried to get redis cache codec before cache#SetRedisClient() was called"))
	}

	return cacheCodec
}

// NewCacheCodec returns a msgpack backed codec for the given client
func NewCacheCodec(client *redis.Client) *cache.Codec {
	return &cache.Codec{
		Redis: client,
		Marshal: func(v interface{}) ([]byte, error) {
			return msgpack.Marshal(v)
		},
		Unmarshal: func(b []byte, v interface{}) error {
			return msgpack.Unmarshal(b, v)
		},
	}
}
