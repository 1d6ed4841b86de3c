// Package dialogue implements the slot-filling state machine at the heart of
// the bot: it decides, turn by turn, what has been learned, what to ask next
// and when a booking is complete.
package dialogue

import (
	"context"
	"strings"
	"sync"
	"time"

	recordsRepo "bookio/database/repository/records"
	"bookio/models"
	"bookio/services/notification"
	"bookio/services/oracle"
	"bookio/services/session"
	"bookio/services/tasks"
	"bookio/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reply is what a processed turn hands back to the transport.
type Reply struct {
	Text      string                `json:"text"`
	Completed bool                  `json:"completed"`
	Booking   *models.BookingRecord `json:"booking,omitempty"`
}

// Engine drives one conversation turn at a time.
//
// The merge policy is fixed: extraction may only fill slots that are still
// unset, so a settled value never oscillates when the oracle re-extracts
// stale context. When extraction finds nothing for the slot the user was
// just asked about, the raw utterance is accepted verbatim (emails still
// need an "@"). That floor guarantees forward progress no matter how often
// the oracle fails.
type Engine struct {
	Store     session.Store
	Extractor oracle.Extractor
	Sink      notification.Service
	Required  []models.Slot

	// Optional collaborators; nil disables them.
	Records   recordsRepo.BookingRecordRepository
	Reminders *tasks.ReminderScheduler

	mu        sync.Mutex
	turnLocks map[string]*sync.Mutex
}

// lockConversation serializes turns per conversation. Distinct conversations
// proceed in parallel; a single conversation never has two turns in flight.
func (e *Engine) lockConversation(conversationID string) func() {
	e.mu.Lock()
	if e.turnLocks == nil {
		e.turnLocks = make(map[string]*sync.Mutex)
	}
	l, ok := e.turnLocks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		e.turnLocks[conversationID] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// HandleMessage processes one ordinary utterance and returns the next prompt
// or the completion message. Internal failures degrade to a clarify re-prompt;
// the user never sees raw error text.
func (e *Engine) HandleMessage(ctx context.Context, conversationID, text string, now time.Time) (Reply, error) {
	unlock := e.lockConversation(conversationID)
	defer unlock()

	logger := utils.GetLogger()

	sess, err := e.Store.GetOrCreate(ctx, conversationID, now)
	if err != nil {
		return Reply{Text: clarifyPrompt}, err
	}
	sess.LastActive = now

	ext := e.extract(ctx, text, sess.Slots)

	// Merge this turn's evidence, in required order, into unset slots only.
	for _, slot := range e.Required {
		if sess.Slots.Has(slot) {
			continue
		}
		if v, ok := ext.Value(slot); ok {
			sess.Slots[slot] = v
		}
	}

	// Verbatim fallback: if extraction produced nothing for the slot we just
	// asked about, take the utterance itself as the answer.
	next := e.firstUnset(sess.Slots)
	if next != "" && next == sess.Expecting {
		if _, ok := ext.Value(next); !ok {
			raw := strings.TrimSpace(text)
			if next == models.SlotEmail && !strings.Contains(raw, "@") {
				// Not an email; ask again without advancing.
				if err := e.Store.Save(ctx, sess); err != nil {
					logger.Error("failed to save session", zap.String("conversationId", conversationID), zap.Error(err))
				}
				return Reply{Text: emailClarifyPrompt}, nil
			}
			if raw == "" {
				if err := e.Store.Save(ctx, sess); err != nil {
					logger.Error("failed to save session", zap.String("conversationId", conversationID), zap.Error(err))
				}
				return Reply{Text: clarifyPrompt}, nil
			}
			sess.Slots[next] = raw
		}
	}

	next = e.firstUnset(sess.Slots)
	if next == "" {
		rec := e.buildRecord(sess, now)
		if err := e.Store.Complete(ctx, conversationID); err != nil {
			logger.Error("failed to remove completed session", zap.String("conversationId", conversationID), zap.Error(err))
		}
		e.finalizeBooking(rec)
		return Reply{Text: completionMessage(rec), Completed: true, Booking: &rec}, nil
	}

	sess.Expecting = next
	if err := e.Store.Save(ctx, sess); err != nil {
		logger.Error("failed to save session", zap.String("conversationId", conversationID), zap.Error(err))
		return Reply{Text: clarifyPrompt}, err
	}
	return Reply{Text: PromptFor(next)}, nil
}

// Reset discards any in-progress booking and starts over. Sending it twice in
// a row lands in the same fresh state as sending it once.
func (e *Engine) Reset(ctx context.Context, conversationID string, now time.Time) (Reply, error) {
	unlock := e.lockConversation(conversationID)
	defer unlock()

	if err := e.Store.Cancel(ctx, conversationID); err != nil {
		return Reply{Text: clarifyPrompt}, err
	}
	sess, err := e.Store.GetOrCreate(ctx, conversationID, now)
	if err != nil {
		return Reply{Text: clarifyPrompt}, err
	}
	first := e.Required[0]
	sess.Expecting = first
	if err := e.Store.Save(ctx, sess); err != nil {
		return Reply{Text: clarifyPrompt}, err
	}
	return Reply{Text: greetingPrompt + " " + PromptFor(first)}, nil
}

// Cancel removes the conversation's session, if any.
func (e *Engine) Cancel(ctx context.Context, conversationID string) (Reply, error) {
	unlock := e.lockConversation(conversationID)
	defer unlock()

	if err := e.Store.Cancel(ctx, conversationID); err != nil {
		return Reply{Text: clarifyPrompt}, err
	}
	return Reply{Text: cancelledMessage}, nil
}

// extract shields the turn from the oracle: an extractor error degrades to
// an empty extraction instead of aborting the turn.
func (e *Engine) extract(ctx context.Context, text string, known models.SlotSet) models.Extraction {
	ext, err := e.Extractor.Extract(ctx, text, known)
	if err != nil {
		utils.GetLogger().Warn("extractor returned error, treating as empty", zap.Error(err))
		return models.Extraction{}
	}
	return ext
}

func (e *Engine) firstUnset(slots models.SlotSet) models.Slot {
	for _, slot := range e.Required {
		if !slots.Has(slot) {
			return slot
		}
	}
	return ""
}

func (e *Engine) buildRecord(sess *models.Session, now time.Time) models.BookingRecord {
	rec := models.BookingRecord{
		ID:             uuid.New().String(),
		ConversationID: sess.ConversationID,
		CompletedAt:    now,
	}
	rec.Name, _ = sess.Slots.Get(models.SlotName)
	rec.Email, _ = sess.Slots.Get(models.SlotEmail)
	rec.Date, _ = sess.Slots.Get(models.SlotDate)
	rec.Time, _ = sess.Slots.Get(models.SlotTime)
	return rec
}

// finalizeBooking fires the completion side effects off-turn. The record is
// authoritative the moment it is built; notification, archive or reminder
// failures are logged and never re-open the session.
func (e *Engine) finalizeBooking(rec models.BookingRecord) {
	go func() {
		logger := utils.GetLogger()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := e.Sink.BookingConfirmed(ctx, rec); err != nil {
			logger.Error("booking confirmation delivery failed",
				zap.String("bookingId", rec.ID), zap.Error(err))
		}
		if e.Records != nil {
			if _, err := e.Records.Create(ctx, rec); err != nil {
				logger.Error("failed to archive booking record",
					zap.String("bookingId", rec.ID), zap.Error(err))
			}
		}
		if e.Reminders != nil {
			if err := e.Reminders.Schedule(rec); err != nil {
				logger.Warn("reminder not scheduled",
					zap.String("bookingId", rec.ID), zap.Error(err))
			}
		}
	}()
}
