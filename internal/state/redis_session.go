package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/user/vendbot/internal/types"
)

const sessionKeyPrefix = "vendbot:session:"

// RedisSessionStore shares authoring sessions between bot instances.
// A zero TTL keeps sessions until they complete or are overwritten.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a session store on the given client.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(actor types.ActorID) string {
	return sessionKeyPrefix + actor.String()
}

func (s *RedisSessionStore) Get(ctx context.Context, actor types.ActorID) (*types.Session, bool, error) {
	data, err := s.client.Get(ctx, sessionKey(actor)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get session %s: %w", actor, err)
	}

	var sess types.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, false, fmt.Errorf("unmarshal session %s: %w", actor, err)
	}
	return &sess, true, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, session *types.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ActorID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set session %s: %w", session.ActorID, err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, actor types.ActorID) error {
	if err := s.client.Del(ctx, sessionKey(actor)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", actor, err)
	}
	return nil
}
