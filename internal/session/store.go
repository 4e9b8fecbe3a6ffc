// Package session owns the server-side session cache: the resolved actor
// blob written at sign-in and destroyed at sign-out. Sessions live outside
// any request scope and are passed explicitly to the services that need
// them.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/municipio-kit/chamados-service/internal/domain"
)

// ErrNotFound signals a missing or expired session.
var ErrNotFound = errors.New("session not found")

// Store persists resolved actors keyed by session id.
type Store interface {
	Put(ctx context.Context, sessionID string, actor domain.Actor, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*domain.Actor, error)
	Delete(ctx context.Context, sessionID string) error
}

const keyPrefix = "session:"

type redisStore struct {
	client *redis.Client
}

// NewRedisStore builds a Redis-backed session store.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Put(ctx context.Context, sessionID string, actor domain.Actor, ttl time.Duration) error {
	blob, err := json.Marshal(actor)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+sessionID, blob, ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, sessionID string) (*domain.Actor, error) {
	blob, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var actor domain.Actor
	if err := json.Unmarshal(blob, &actor); err != nil {
		return nil, err
	}
	return &actor, nil
}

func (s *redisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, keyPrefix+sessionID).Err()
}
