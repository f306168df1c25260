package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "resize:result:"

// putScript stores ARGV[1] with a TTL of ARGV[2] seconds unless the current
// value is already terminal.
var putScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local ok, rec = pcall(cjson.decode, cur)
  if ok and (rec.status == 'succeeded' or rec.status == 'failed') then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[2])
return 1
`)

// releaseScript deletes KEYS[1] only while it holds a pending record.
var releaseScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
  return 0
end
local ok, rec = pcall(cjson.decode, cur)
if ok and rec.status == 'pending' then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

var _ Store = (*RedisStore)(nil)

type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore keeps records for ttl. Redis expiries are whole seconds,
// so a positive ttl under a second is raised to one second.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	switch {
	case ttl <= 0:
		ttl = 24 * time.Hour
	case ttl < time.Second:
		ttl = time.Second
	}
	return &RedisStore{client: client, ttl: ttl}
}

// TTL is the expiry applied to every record.
func (s *RedisStore) TTL() time.Duration {
	return s.ttl
}

func (s *RedisStore) Put(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	stored, err := putScript.Run(ctx, s.client, []string{key(rec.RequestID)}, data, int(s.ttl.Seconds())).Int()
	if err != nil {
		return fmt.Errorf("put result %s: %w", rec.RequestID, err)
	}
	if stored == 0 {
		return ErrFinal
	}
	return nil
}

func (s *RedisStore) Reserve(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, key(rec.RequestID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("reserve result %s: %w", rec.RequestID, err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, requestID string) error {
	if err := releaseScript.Run(ctx, s.client, []string{key(requestID)}).Err(); err != nil {
		return fmt.Errorf("release result %s: %w", requestID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, requestID string) (Record, error) {
	data, err := s.client.Get(ctx, key(requestID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get result %s: %w", requestID, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode result %s: %w", requestID, err)
	}
	return rec, nil
}

func key(requestID string) string {
	return keyPrefix + requestID
}
