package erp

import (
	"context"
	"time"

	"kycportal/pkg/cache"
)

const sessionKey = "sap:session"

// RedisSessionStore shares the SAP session across portal instances through
// redis. The TTL stays under SAP's own session timeout so a cached session is
// re-acquired before SAP would expire it.
type RedisSessionStore struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewRedisSessionStore creates a redis-backed session store.
func NewRedisSessionStore(c *cache.RedisCache, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{cache: c, ttl: ttl}
}

func (s *RedisSessionStore) Get(ctx context.Context) (string, error) {
	var session string
	err := s.cache.Get(ctx, sessionKey, &session)
	if cache.IsMiss(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return session, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, session string) error {
	return s.cache.Set(ctx, sessionKey, session, s.ttl)
}

func (s *RedisSessionStore) Clear(ctx context.Context) error {
	return s.cache.Delete(ctx, sessionKey)
}
