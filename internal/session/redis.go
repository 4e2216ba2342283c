package session

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
)

// RedisStore хранит наборы сессий в redis: по ключу на пользователя,
// со скользящим TTL. Любая ошибка redis логируется и превращается в
// безопасный fallback — присутствие не должно ронять обработчики.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(userID string) string {
	return fmt.Sprintf("user:%s:sessions", userID)
}

func (s *RedisStore) AddSession(ctx context.Context, userID, connectionID string) int64 {
	key := sessionKey(userID)

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, connectionID)
	pipe.Expire(ctx, key, SessionTTL)
	card := pipe.SCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Redis error adding session for %s: %v", userID, err)
		return 0
	}

	return card.Val()
}

func (s *RedisStore) RemoveSession(ctx context.Context, userID, connectionID string) int64 {
	key := sessionKey(userID)

	if err := s.client.SRem(ctx, key, connectionID).Err(); err != nil {
		log.Printf("Redis error removing session for %s: %v", userID, err)
		return 0
	}

	remaining, err := s.client.SCard(ctx, key).Result()
	if err != nil {
		log.Printf("Redis error counting sessions for %s: %v", userID, err)
		return 0
	}

	if remaining == 0 {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			log.Printf("Redis error deleting session key for %s: %v", userID, err)
		}
	}

	return remaining
}

func (s *RedisStore) SessionCount(ctx context.Context, userID string) int64 {
	count, err := s.client.SCard(ctx, sessionKey(userID)).Result()
	if err != nil {
		log.Printf("Redis error counting sessions for %s: %v", userID, err)
		return 0
	}
	return count
}

func (s *RedisStore) IsOnline(ctx context.Context, userID string) bool {
	return s.SessionCount(ctx, userID) > 0
}
