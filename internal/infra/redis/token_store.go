package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore keeps reconnect tokens in Redis with a TTL, so a token
// survives the player's transport (and outlives nothing else; game
// state itself is process-local).
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

func (s *TokenStore) Save(ctx context.Context, token string) error {
	return s.client.Set(ctx, s.key(token), "1", s.ttl).Err()
}

func (s *TokenStore) Valid(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *TokenStore) key(token string) string {
	return "player:token:" + token
}
