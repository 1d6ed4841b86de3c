package dialogue

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookio/models"
	"bookio/services/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedExtractor plays back a fixed sequence of extractions, one per call,
// and returns empty extractions once the script runs out.
type scriptedExtractor struct {
	mu     sync.Mutex
	script []models.Extraction
	err    error
	calls  int
}

func (s *scriptedExtractor) Extract(ctx context.Context, userText string, known models.SlotSet) (models.Extraction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.Extraction{}, s.err
	}
	if s.calls >= len(s.script) {
		s.calls++
		return models.Extraction{}, nil
	}
	ext := s.script[s.calls]
	s.calls++
	return ext, nil
}

// captureSink records confirmations and reminders for assertions.
type captureSink struct {
	confirmed chan models.BookingRecord
	reminders chan models.ReminderPayload
}

func newCaptureSink() *captureSink {
	return &captureSink{
		confirmed: make(chan models.BookingRecord, 8),
		reminders: make(chan models.ReminderPayload, 8),
	}
}

func (s *captureSink) BookingConfirmed(ctx context.Context, rec models.BookingRecord) error {
	s.confirmed <- rec
	return nil
}

func (s *captureSink) SendReminder(ctx context.Context, p models.ReminderPayload) error {
	s.reminders <- p
	return nil
}

func (s *captureSink) waitConfirmed(t *testing.T) models.BookingRecord {
	t.Helper()
	select {
	case rec := <-s.confirmed:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for booking confirmation")
		return models.BookingRecord{}
	}
}

func strPtr(s string) *string { return &s }

func newTestEngine(required []models.Slot, extractor *scriptedExtractor) (*Engine, *session.MemoryStore, *captureSink) {
	store := session.NewMemoryStore(300 * time.Second)
	sink := newCaptureSink()
	engine := &Engine{
		Store:     store,
		Extractor: extractor,
		Sink:      sink,
		Required:  required,
	}
	return engine, store, sink
}

func TestSingleTurnFillsMultipleSlots(t *testing.T) {
	extractor := &scriptedExtractor{script: []models.Extraction{
		{Name: strPtr("John"), Date: strPtr("2025-06-02"), Time: strPtr("16:00")},
	}}
	engine, store, sink := newTestEngine(
		[]models.Slot{models.SlotName, models.SlotDate, models.SlotTime}, extractor)

	now := time.Now()
	reply, err := engine.HandleMessage(context.Background(), "conv-1", "John, tomorrow at 4pm", now)
	require.NoError(t, err)

	assert.True(t, reply.Completed)
	require.NotNil(t, reply.Booking)
	assert.Equal(t, "John", reply.Booking.Name)
	assert.Equal(t, "2025-06-02", reply.Booking.Date)
	assert.Equal(t, "16:00", reply.Booking.Time)
	assert.Empty(t, reply.Booking.Email)

	rec := sink.waitConfirmed(t)
	assert.Equal(t, reply.Booking.ID, rec.ID)

	// The session is gone; the next message starts from scratch.
	reply, err = engine.HandleMessage(context.Background(), "conv-1", "hello again", now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, reply.Completed)
	assert.Equal(t, PromptFor(models.SlotName), reply.Text)

	sess, err := store.GetOrCreate(context.Background(), "conv-1", now.Add(2*time.Second))
	require.NoError(t, err)
	assert.Empty(t, sess.Slots)
}

func TestEmailFallbackRequiresAtSign(t *testing.T) {
	extractor := &scriptedExtractor{script: []models.Extraction{
		{Name: strPtr("Maria")},
		{},
		{},
	}}
	engine, _, _ := newTestEngine(
		[]models.Slot{models.SlotName, models.SlotEmail, models.SlotDate, models.SlotTime}, extractor)

	ctx := context.Background()
	now := time.Now()

	reply, err := engine.HandleMessage(ctx, "conv-2", "Maria", now)
	require.NoError(t, err)
	assert.Equal(t, PromptFor(models.SlotEmail), reply.Text)

	// An answer without "@" is rejected and the question repeats.
	reply, err = engine.HandleMessage(ctx, "conv-2", "not an email", now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, emailClarifyPrompt, reply.Text)

	// A plausible address is accepted verbatim and the machine advances.
	reply, err = engine.HandleMessage(ctx, "conv-2", "maria@example.com", now.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, PromptFor(models.SlotDate), reply.Text)
}

func TestVerbatimFallbackGuaranteesProgress(t *testing.T) {
	// The oracle never extracts anything; raw text still fills one slot per turn.
	extractor := &scriptedExtractor{}
	engine, _, sink := newTestEngine(
		[]models.Slot{models.SlotName, models.SlotEmail, models.SlotDate, models.SlotTime}, extractor)

	ctx := context.Background()
	now := time.Now()

	_, err := engine.Reset(ctx, "conv-3", now)
	require.NoError(t, err)

	answers := []string{"John Smith", "john@example.com", "2025-06-02", "16:00"}
	var last Reply
	for i, answer := range answers {
		last, err = engine.HandleMessage(ctx, "conv-3", answer, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	assert.True(t, last.Completed)
	rec := sink.waitConfirmed(t)
	assert.Equal(t, "John Smith", rec.Name)
	assert.Equal(t, "john@example.com", rec.Email)
	assert.Equal(t, "2025-06-02", rec.Date)
	assert.Equal(t, "16:00", rec.Time)
}

func TestSettledSlotIsNeverOverwritten(t *testing.T) {
	extractor := &scriptedExtractor{script: []models.Extraction{
		{Name: strPtr("John")},
		// Stale re-extraction of the name must not displace the settled value.
		{Name: strPtr("Johnny"), Date: strPtr("2025-06-02")},
		{Time: strPtr("16:00")},
	}}
	engine, _, sink := newTestEngine(
		[]models.Slot{models.SlotName, models.SlotDate, models.SlotTime}, extractor)

	ctx := context.Background()
	now := time.Now()

	_, err := engine.HandleMessage(ctx, "conv-4", "I'm John", now)
	require.NoError(t, err)
	_, err = engine.HandleMessage(ctx, "conv-4", "June 2nd works", now.Add(time.Second))
	require.NoError(t, err)
	reply, err := engine.HandleMessage(ctx, "conv-4", "4pm", now.Add(2*time.Second))
	require.NoError(t, err)

	assert.True(t, reply.Completed)
	rec := sink.waitConfirmed(t)
	assert.Equal(t, "John", rec.Name)
}

func TestEmptyExtractionDoesNotClearSlots(t *testing.T) {
	extractor := &scriptedExtractor{script: []models.Extraction{
		{Name: strPtr("John")},
		{},
	}}
	engine, store, _ := newTestEngine(
		[]models.Slot{models.SlotName, models.SlotDate, models.SlotTime}, extractor)

	ctx := context.Background()
	now := time.Now()

	_, err := engine.HandleMessage(ctx, "conv-5", "John", now)
	require.NoError(t, err)
	_, err = engine.HandleMessage(ctx, "conv-5", "hmm let me think", now.Add(time.Second))
	require.NoError(t, err)

	sess, err := store.GetOrCreate(ctx, "conv-5", now.Add(2*time.Second))
	require.NoError(t, err)
	name, ok := sess.Slots.Get(models.SlotName)
	require.True(t, ok)
	assert.Equal(t, "John", name)
}

func TestExpiredSessionBehavesLikeNewConversation(t *testing.T) {
	extractor := &scriptedExtractor{script: []models.Extraction{
		{Name: strPtr("John")},
		{},
	}}
	engine, store, _ := newTestEngine(
		[]models.Slot{models.SlotName, models.SlotDate, models.SlotTime}, extractor)

	ctx := context.Background()
	now := time.Now()

	_, err := engine.HandleMessage(ctx, "conv-6", "John", now)
	require.NoError(t, err)

	// Well past the inactivity timeout: old slot values must not carry over.
	later := now.Add(301 * time.Second)
	reply, err := engine.HandleMessage(ctx, "conv-6", "hello", later)
	require.NoError(t, err)
	assert.Equal(t, PromptFor(models.SlotName), reply.Text)

	sess, err := store.GetOrCreate(ctx, "conv-6", later.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, sess.Slots.Has(models.SlotName))
}

func TestResetIsIdempotent(t *testing.T) {
	extractor := &scriptedExtractor{script: []models.Extraction{
		{Name: strPtr("John")},
	}}
	engine, store, _ := newTestEngine(
		[]models.Slot{models.SlotName, models.SlotDate, models.SlotTime}, extractor)

	ctx := context.Background()
	now := time.Now()

	_, err := engine.HandleMessage(ctx, "conv-7", "John", now)
	require.NoError(t, err)

	first, err := engine.Reset(ctx, "conv-7", now.Add(time.Second))
	require.NoError(t, err)
	second, err := engine.Reset(ctx, "conv-7", now.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)

	sess, err := store.GetOrCreate(ctx, "conv-7", now.Add(3*time.Second))
	require.NoError(t, err)
	assert.Empty(t, sess.Slots)
	assert.Equal(t, models.SlotName, sess.Expecting)
}

func TestCancelIsIdempotent(t *testing.T) {
	extractor := &scriptedExtractor{script: []models.Extraction{
		{Name: strPtr("John")},
	}}
	engine, store, _ := newTestEngine(
		[]models.Slot{models.SlotName, models.SlotDate, models.SlotTime}, extractor)

	ctx := context.Background()
	now := time.Now()

	_, err := engine.HandleMessage(ctx, "conv-8", "John", now)
	require.NoError(t, err)

	reply, err := engine.Cancel(ctx, "conv-8")
	require.NoError(t, err)
	assert.Equal(t, cancelledMessage, reply.Text)

	// A second cancel for a session that no longer exists is a no-op.
	_, err = engine.Cancel(ctx, "conv-8")
	require.NoError(t, err)

	sess, err := store.GetOrCreate(ctx, "conv-8", now.Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, sess.Slots)
}

func TestExtractorErrorIsTreatedAsEmpty(t *testing.T) {
	extractor := &scriptedExtractor{err: context.DeadlineExceeded}
	engine, _, _ := newTestEngine(
		[]models.Slot{models.SlotName, models.SlotDate, models.SlotTime}, extractor)

	reply, err := engine.HandleMessage(context.Background(), "conv-9", "hello", time.Now())
	require.NoError(t, err)
	assert.False(t, reply.Completed)
	assert.Equal(t, PromptFor(models.SlotName), reply.Text)
}

func TestUtteranceAnsweringTwoSlotsAdvancesTwoSteps(t *testing.T) {
	extractor := &scriptedExtractor{script: []models.Extraction{
		{Name: strPtr("John")},
		{Date: strPtr("2025-06-02"), Time: strPtr("16:00")},
	}}
	engine, _, sink := newTestEngine(
		[]models.Slot{models.SlotName, models.SlotDate, models.SlotTime}, extractor)

	ctx := context.Background()
	now := time.Now()

	reply, err := engine.HandleMessage(ctx, "conv-10", "John", now)
	require.NoError(t, err)
	assert.Equal(t, PromptFor(models.SlotDate), reply.Text)

	reply, err = engine.HandleMessage(ctx, "conv-10", "June 2nd at 4pm", now.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, reply.Completed)

	rec := sink.waitConfirmed(t)
	assert.Equal(t, "2025-06-02", rec.Date)
	assert.Equal(t, "16:00", rec.Time)
}

func TestIndependentConversationsDoNotInterfere(t *testing.T) {
	extractor := &scriptedExtractor{}
	engine, store, _ := newTestEngine(
		[]models.Slot{models.SlotName, models.SlotDate, models.SlotTime}, extractor)

	ctx := context.Background()
	now := time.Now()

	_, err := engine.Reset(ctx, "conv-a", now)
	require.NoError(t, err)
	_, err = engine.Reset(ctx, "conv-b", now)
	require.NoError(t, err)

	_, err = engine.HandleMessage(ctx, "conv-a", "Alice", now.Add(time.Second))
	require.NoError(t, err)
	_, err = engine.HandleMessage(ctx, "conv-b", "Bob", now.Add(time.Second))
	require.NoError(t, err)

	sessA, err := store.GetOrCreate(ctx, "conv-a", now.Add(2*time.Second))
	require.NoError(t, err)
	sessB, err := store.GetOrCreate(ctx, "conv-b", now.Add(2*time.Second))
	require.NoError(t, err)

	nameA, _ := sessA.Slots.Get(models.SlotName)
	nameB, _ := sessB.Slots.Get(models.SlotName)
	assert.Equal(t, "Alice", nameA)
	assert.Equal(t, "Bob", nameB)
}
