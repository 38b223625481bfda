package memory

import (
	"context"
	"sync"
	"time"
)

// TokenStore is an in-memory implementation of game.TokenStore for
// redis-less deployments. Tokens expire after the configured TTL.
type TokenStore struct {
	ttl   time.Duration
	clock func() time.Time
	mu    sync.Mutex
	exp   map[string]time.Time
}

func NewTokenStore(ttl time.Duration) *TokenStore {
	return &TokenStore{
		ttl:   ttl,
		clock: time.Now,
		exp:   make(map[string]time.Time),
	}
}

func (s *TokenStore) Save(_ context.Context, token string) error {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for t, deadline := range s.exp {
		if deadline.Before(now) {
			delete(s.exp, t)
		}
	}
	s.exp[token] = now.Add(s.ttl)
	return nil
}

func (s *TokenStore) Valid(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline, ok := s.exp[token]
	return ok && deadline.After(s.clock()), nil
}
