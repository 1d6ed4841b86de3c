package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookio/models"

	"github.com/go-redis/redis/v8"
)

const sessionKeyPrefix = "chat:session:"

// RedisStore keeps sessions as JSON blobs in Redis so several bot replicas
// can share one conversation map. The key TTL mirrors the inactivity timeout
// as a safety net; the LastActive check below stays authoritative so both
// backends expire sessions identically.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a Redis-backed store expiring sessions after ttl of
// inactivity.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) GetOrCreate(ctx context.Context, conversationID string, now time.Time) (*models.Session, error) {
	key := sessionKeyPrefix + conversationID
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return models.NewSession(conversationID, now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", conversationID, err)
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		// A corrupt blob is treated like a missing one rather than wedging
		// the conversation.
		return models.NewSession(conversationID, now), nil
	}
	if now.Sub(sess.LastActive) > s.ttl {
		return models.NewSession(conversationID, now), nil
	}
	if sess.Slots == nil {
		sess.Slots = make(models.SlotSet)
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *models.Session) error {
	key := sessionKeyPrefix + sess.ConversationID
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ConversationID, err)
	}
	return s.client.Set(ctx, key, b, s.ttl).Err()
}

func (s *RedisStore) Complete(ctx context.Context, conversationID string) error {
	return s.client.Del(ctx, sessionKeyPrefix+conversationID).Err()
}

func (s *RedisStore) Cancel(ctx context.Context, conversationID string) error {
	return s.client.Del(ctx, sessionKeyPrefix+conversationID).Err()
}
