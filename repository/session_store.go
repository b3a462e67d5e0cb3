package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"settlement-service/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for unknown or expired checkout sessions.
var ErrSessionNotFound = errors.New("checkout session not found or expired")

// SessionStore holds in-progress checkout sessions. Expiry doubles as the
// abandoned-checkout cleanup.
type SessionStore interface {
	Save(ctx context.Context, session *models.CheckoutSession, ttl time.Duration) error
	Find(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) SessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(id uuid.UUID) string {
	return fmt.Sprintf("checkout:session:%s", id)
}

func (s *RedisSessionStore) Save(ctx context.Context, session *models.CheckoutSession, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(session.ID), data, ttl).Err()
}

func (s *RedisSessionStore) Find(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var session models.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}
