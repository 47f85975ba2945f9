package expansion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"kgbuilder/internal/types/kg"
)

// hashClient is the slice of go-redis RedisStore needs.
type hashClient interface {
	HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...any) *goredis.IntCmd
}

// RedisStore keeps the cache in one Redis hash: field = cache key,
// value = expansion JSON. Several builders can share it.
type RedisStore struct {
	rdb  hashClient
	key  string
	done func() error
}

// DialRedis connects to url (redis://...) and pings it.
func DialRedis(ctx context.Context, url, hashKey string) (*RedisStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	rdb := goredis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	s := NewRedisStore(rdb, hashKey)
	s.done = rdb.Close
	return s, nil
}

func NewRedisStore(rdb hashClient, hashKey string) *RedisStore {
	hashKey = strings.TrimSpace(hashKey)
	if hashKey == "" {
		hashKey = "kg:expansions"
	}
	return &RedisStore{rdb: rdb, key: hashKey}
}

func (s *RedisStore) Load(ctx context.Context) (map[string]kg.Expansion, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", s.key, err)
	}
	out := make(map[string]kg.Expansion, len(fields))
	for k, v := range fields {
		var exp kg.Expansion
		if err := json.Unmarshal([]byte(v), &exp); err != nil {
			// skip the entry; it will be fetched again
			continue
		}
		out[k] = exp
	}
	return out, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, exp kg.Expansion) error {
	raw, err := json.Marshal(exp)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, s.key, key, string(raw)).Err()
}

func (s *RedisStore) Close() error {
	if s.done == nil {
		return nil
	}
	return s.done()
}
