package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/PabloGalante/aiva-chat/internal/domain"
)

// Store keeps each blob as a plain Redis string. Keys are used verbatim;
// they are already namespaced per identity by the caller.
type Store struct {
	client *redis.Client
}

// NewStore connects to redisURL (redis://...) and checks the connection.
func NewStore(ctx context.Context, redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing redis url: %w", domain.ErrStorage, err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping failed: %w", domain.ErrStorage, err)
	}

	return &Store{client: client}, nil
}

// NewStoreFromClient wraps an existing client. This is useful for testing
// with miniredis.
func NewStoreFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: redis get: %w", domain.ErrStorage, err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %w", domain.ErrStorage, err)
	}
	return nil
}
