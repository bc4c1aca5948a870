package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"visionchat/internal/models"
	"visionchat/internal/redis"
)

const redisKeyPrefix = "visionchat:session:"

type redisSession struct {
	ID        string        `json:"id"`
	App       string        `json:"app"`
	CreatedAt time.Time     `json:"created_at"`
	Turns     []models.Turn `json:"turns"`
}

// RedisStore keeps sessions in redis so several server instances can serve
// the same browser session. Keys expire after ttl of inactivity.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Context, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+id)
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var stored redisSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &Context{
		ID:        stored.ID,
		App:       stored.App,
		CreatedAt: stored.CreatedAt,
		History:   NewHistory(stored.Turns),
	}, nil
}

func (s *RedisStore) Save(ctx context.Context, sc *Context) error {
	if sc == nil {
		return nil
	}
	data, err := json.Marshal(redisSession{
		ID:        sc.ID,
		App:       sc.App,
		CreatedAt: sc.CreatedAt,
		Turns:     sc.History.All(),
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sc.ID, data, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Discard(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id); err != nil && !errors.Is(err, redis.ErrCacheMiss) {
		return fmt.Errorf("discard session: %w", err)
	}
	return nil
}
