package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/lemon/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "lemon:session:"

// Store implements ports.Storage using one Redis hash per session.
// With a TTL the hash expires after the session goes idle, which is how a
// session ends when the visitor simply closes the tab.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the idle expiration for sessions. Zero disables expiration.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for session hashes.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

// GetItem reads one field of the session hash.
func (s *Store) GetItem(ctx context.Context, sessionID, key string) (string, error) {
	val, err := s.client.HGet(ctx, s.key(sessionID), key).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", domain.ErrItemNotFound
		}
		return "", fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

// SetItem writes one field and refreshes the session TTL.
func (s *Store) SetItem(ctx context.Context, sessionID, key, value string) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(sessionID), key, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(sessionID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// RemoveItem deletes one field of the session hash.
func (s *Store) RemoveItem(ctx context.Context, sessionID, key string) error {
	if err := s.client.HDel(ctx, s.key(sessionID), key).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Clear removes the session hash.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session in redis: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
