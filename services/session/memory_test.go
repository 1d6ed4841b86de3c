package session

import (
	"context"
	"testing"
	"time"

	"bookio/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreatesFreshSession(t *testing.T) {
	store := NewMemoryStore(300 * time.Second)
	now := time.Now()

	sess, err := store.GetOrCreate(context.Background(), "conv-1", now)
	require.NoError(t, err)
	assert.Equal(t, "conv-1", sess.ConversationID)
	assert.Empty(t, sess.Slots)
	assert.Equal(t, models.Slot(""), sess.Expecting)
}

func TestMemoryStoreReturnsLiveSessionWithinTTL(t *testing.T) {
	store := NewMemoryStore(300 * time.Second)
	ctx := context.Background()
	now := time.Now()

	sess, err := store.GetOrCreate(ctx, "conv-2", now)
	require.NoError(t, err)
	sess.Slots[models.SlotName] = "John"
	require.NoError(t, store.Save(ctx, sess))

	again, err := store.GetOrCreate(ctx, "conv-2", now.Add(299*time.Second))
	require.NoError(t, err)
	name, ok := again.Slots.Get(models.SlotName)
	require.True(t, ok)
	assert.Equal(t, "John", name)
}

func TestMemoryStoreDiscardsExpiredSession(t *testing.T) {
	store := NewMemoryStore(300 * time.Second)
	ctx := context.Background()
	now := time.Now()

	sess, err := store.GetOrCreate(ctx, "conv-3", now)
	require.NoError(t, err)
	sess.Slots[models.SlotName] = "John"
	require.NoError(t, store.Save(ctx, sess))

	fresh, err := store.GetOrCreate(ctx, "conv-3", now.Add(301*time.Second))
	require.NoError(t, err)
	assert.False(t, fresh.Slots.Has(models.SlotName))
}

func TestMemoryStoreCompleteAndCancelAreIdempotent(t *testing.T) {
	store := NewMemoryStore(300 * time.Second)
	ctx := context.Background()
	now := time.Now()

	_, err := store.GetOrCreate(ctx, "conv-4", now)
	require.NoError(t, err)

	require.NoError(t, store.Complete(ctx, "conv-4"))
	require.NoError(t, store.Complete(ctx, "conv-4"))
	require.NoError(t, store.Cancel(ctx, "conv-4"))
	require.NoError(t, store.Cancel(ctx, "never-existed"))
}

func TestMemoryStoreKeepsConversationsIndependent(t *testing.T) {
	store := NewMemoryStore(300 * time.Second)
	ctx := context.Background()
	now := time.Now()

	a, err := store.GetOrCreate(ctx, "conv-a", now)
	require.NoError(t, err)
	a.Slots[models.SlotName] = "Alice"
	require.NoError(t, store.Save(ctx, a))

	b, err := store.GetOrCreate(ctx, "conv-b", now)
	require.NoError(t, err)
	assert.False(t, b.Slots.Has(models.SlotName))

	require.NoError(t, store.Cancel(ctx, "conv-b"))
	again, err := store.GetOrCreate(ctx, "conv-a", now.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, again.Slots.Has(models.SlotName))
}
