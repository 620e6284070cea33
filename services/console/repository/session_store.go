package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/advanced-supermart/console-backend/services/console/checkout"
)

const sessionKeyPrefix = "checkout:session:"

// RedisSessionStore keeps checkout sessions as JSON blobs so a terminal's
// Ready cart survives a console restart.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (r *RedisSessionStore) key(terminalID string) string {
	return sessionKeyPrefix + terminalID
}

func (r *RedisSessionStore) Load(ctx context.Context, terminalID string) (*checkout.CheckoutSession, error) {
	data, err := r.client.Get(ctx, r.key(terminalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", terminalID, err)
	}

	var session checkout.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", terminalID, err)
	}
	return &session, nil
}

// Save stores the snapshot. An Idle session is deleted instead of written.
func (r *RedisSessionStore) Save(ctx context.Context, session *checkout.CheckoutSession) error {
	if session.State == checkout.StateIdle {
		return r.Delete(ctx, session.TerminalID)
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.TerminalID, err)
	}
	return r.client.Set(ctx, r.key(session.TerminalID), data, r.ttl).Err()
}

func (r *RedisSessionStore) Delete(ctx context.Context, terminalID string) error {
	return r.client.Del(ctx, r.key(terminalID)).Err()
}
