package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"joinnow/internal/common/errors"
	"joinnow/internal/models"
)

const DefaultKeyPrefix = "wizard:session:"

// RedisStore keeps sessions as JSON strings with a TTL matching ExpiresAt.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (r *RedisStore) key(id string) string {
	return r.keyPrefix + id
}

func (r *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.NewSessionNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewSessionStoreFailedError("get", err)
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.NewSessionStoreFailedError("decode", err)
	}
	if s.IsExpired() {
		return nil, errors.NewSessionNotFoundError(id)
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *models.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, s.ID)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return errors.NewSessionStoreFailedError("encode", err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), data, ttl).Err(); err != nil {
		return errors.NewSessionStoreFailedError("put", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return errors.NewSessionStoreFailedError("delete", fmt.Errorf("del %s: %w", id, err))
	}
	return nil
}
