package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campusshop/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSessionRepository stores sessions in redis with a sliding TTL: every
// save and every read restarts the expiry.
type RedisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionRepository creates a new instance of RedisSessionRepository.
// A zero ttl keeps sessions until they are deleted.
func NewRedisSessionRepository(client *redis.Client, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{
		client: client,
		ttl:    ttl,
	}
}

// redisSession carries the token, which StoredSession hides from JSON.
type redisSession struct {
	models.StoredSession
	Token string `json:"token"`
}

// Save writes the session and refreshes its TTL.
func (r *RedisSessionRepository) Save(ctx context.Context, session *models.StoredSession) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	data, err := json.Marshal(redisSession{StoredSession: *session, Token: session.Token})
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(session.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// GetByID loads a session and refreshes its TTL.
func (r *RedisSessionRepository) GetByID(ctx context.Context, id string) (*models.StoredSession, error) {
	var cmd *redis.StringCmd
	if r.ttl > 0 {
		cmd = r.client.GetEx(ctx, sessionKey(id), r.ttl)
	} else {
		cmd = r.client.Get(ctx, sessionKey(id))
	}
	data, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session with ID %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var stored redisSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal session failed: %w", err)
	}
	session := stored.StoredSession
	session.Token = stored.Token
	return &session, nil
}

// Delete removes a session.
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// DeleteUpdatedBefore is a no-op: redis expires sessions on its own.
func (r *RedisSessionRepository) DeleteUpdatedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}
