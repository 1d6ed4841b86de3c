package session

import (
	"context"
	"sync"
	"time"

	"bookio/models"
)

// MemoryStore keeps sessions in a process-local map. It is the default
// backend; sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*models.Session
}

// NewMemoryStore returns an in-memory store expiring sessions after ttl of
// inactivity.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]*models.Session),
	}
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, conversationID string, now time.Time) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[conversationID]; ok {
		if now.Sub(sess.LastActive) <= s.ttl {
			return sess, nil
		}
		// Stale entry: discard, the caller gets a brand-new session.
		delete(s.sessions, conversationID)
	}

	sess := models.NewSession(conversationID, now)
	s.sessions[conversationID] = sess
	return sess, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ConversationID] = sess
	return nil
}

func (s *MemoryStore) Complete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, conversationID)
	return nil
}

func (s *MemoryStore) Cancel(ctx context.Context, conversationID string) error {
	return s.Complete(ctx, conversationID)
}
