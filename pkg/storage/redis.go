package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldName = "name"
	fieldData = "data"
)

// RedisStorage keeps each object in a hash so that name and bytes expire together.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration // zero keeps objects until deleted
}

func NewRedisStorage(client *redis.Client, prefix string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStorage) Name() string { return "redis" }

func (s *RedisStorage) Save(ctx context.Context, name string, data []byte) (string, error) {
	ref := newRef(name)
	key := s.prefix + ref

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldName, name, fieldData, data)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return ref, nil
}

func (s *RedisStorage) Open(ctx context.Context, ref string) (*Object, error) {
	if !validRef(ref) {
		return nil, ErrNotFound
	}
	values, err := s.client.HMGet(ctx, s.prefix+ref, fieldName, fieldData).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if values[1] == nil {
		return nil, ErrNotFound
	}

	name, _ := values[0].(string)
	data, _ := values[1].(string)
	return &Object{Ref: ref, Name: name, Data: []byte(data)}, nil
}

func (s *RedisStorage) Delete(ctx context.Context, ref string) error {
	if !validRef(ref) {
		return ErrNotFound
	}
	n, err := s.client.Del(ctx, s.prefix+ref).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
