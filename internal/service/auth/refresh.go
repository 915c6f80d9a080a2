package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RefreshStore maps opaque refresh tokens to user identifiers.
type RefreshStore interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	// Lookup returns ErrInvalidRefreshToken for unknown or expired tokens.
	Lookup(ctx context.Context, token string) (string, error)
}

type refreshEntry struct {
	userID  string
	expires time.Time
}

type memoryRefreshStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]refreshEntry
}

// NewMemoryRefreshStore keeps refresh tokens in process memory.
func NewMemoryRefreshStore() RefreshStore {
	return &memoryRefreshStore{now: time.Now, entries: make(map[string]refreshEntry)}
}

func (s *memoryRefreshStore) Save(_ context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = refreshEntry{userID: userID, expires: s.now().Add(ttl)}
	return nil
}

func (s *memoryRefreshStore) Lookup(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok {
		return "", ErrInvalidRefreshToken
	}
	if s.now().After(entry.expires) {
		delete(s.entries, token)
		return "", ErrInvalidRefreshToken
	}
	return entry.userID, nil
}

type redisRefreshStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRefreshStore stores tokens under mediapp:refresh:<token> with the token TTL.
func NewRedisRefreshStore(client *redis.Client) RefreshStore {
	return &redisRefreshStore{client: client, prefix: "mediapp:refresh:"}
}

func (s *redisRefreshStore) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+token, userID, ttl).Err()
}

func (s *redisRefreshStore) Lookup(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, s.prefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
