package diagnosis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] result key, KEYS[2] tombstone key, ARGV[1] payload, ARGV[2] ttl in ms
var putIfLive = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
  return 0
end
if redis.call("SET", KEYS[1], ARGV[1], "NX", "PX", ARGV[2]) then
  return 1
end
return 0
`)

type RedisResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisResultStore(client *redis.Client, ttl time.Duration) *RedisResultStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisResultStore{client: client, ttl: ttl}
}

func (s *RedisResultStore) Name() string { return "redis" }

func resultKey(sessionID string) string    { return "diagnosis:result:" + sessionID }
func tombstoneKey(sessionID string) string { return "diagnosis:deleted:" + sessionID }

func (s *RedisResultStore) Put(ctx context.Context, sessionID string, entry Entry) (bool, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}

	written, err := putIfLive.Run(ctx, s.client,
		[]string{resultKey(sessionID), tombstoneKey(sessionID)},
		payload, s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("store result: %w", err)
	}
	return written == 1, nil
}

func (s *RedisResultStore) Get(ctx context.Context, sessionID string) (*Entry, error) {
	raw, err := s.client.Get(ctx, resultKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load result: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &entry, nil
}

func (s *RedisResultStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tombstoneKey(sessionID), 1, s.ttl)
		pipe.Del(ctx, resultKey(sessionID))
		return nil
	})
	return err
}
