// Package session owns the mapping from conversation ID to dialogue state.
// The store is the only component allowed to create or delete entries; at
// most one session exists per conversation at any time.
package session

import (
	"context"
	"time"

	"bookio/models"
)

// Store is the session lifecycle contract.
//
// Expiry is evaluated lazily: GetOrCreate discards a session whose last
// activity is older than the configured TTL and hands back a fresh one, so an
// utterance arriving for a stale conversation behaves exactly like the first
// utterance of a new one. Complete and Cancel are idempotent; removing an
// unknown conversation is a no-op.
type Store interface {
	GetOrCreate(ctx context.Context, conversationID string, now time.Time) (*models.Session, error)
	Save(ctx context.Context, sess *models.Session) error
	Complete(ctx context.Context, conversationID string) error
	Cancel(ctx context.Context, conversationID string) error
}
