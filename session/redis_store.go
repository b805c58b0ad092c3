package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fintrans/domain"
)

// RedisStore keeps contexts in Redis so multiple server instances can serve
// the same conversation. Entries carry the TTL, so abandonment needs no
// sweeper.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func key(sessionID string) string {
	return "transfer:context:" + sessionID
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*domain.TransferContext, error) {
	raw, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transfer context: %w", err)
	}

	var tctx domain.TransferContext
	if err := json.Unmarshal(raw, &tctx); err != nil {
		return nil, fmt.Errorf("failed to decode transfer context: %w", err)
	}
	return &tctx, nil
}

func (s *RedisStore) Put(ctx context.Context, sessionID string, tctx *domain.TransferContext) error {
	if tctx == nil {
		return s.Delete(ctx, sessionID)
	}
	raw, err := json.Marshal(tctx)
	if err != nil {
		return fmt.Errorf("failed to encode transfer context: %w", err)
	}
	if err := s.client.Set(ctx, key(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store transfer context: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete transfer context: %w", err)
	}
	return nil
}
