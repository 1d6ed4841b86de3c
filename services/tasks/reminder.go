package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"bookio/models"

	"github.com/hibiken/asynq"
)

const TypeBookingReminder = "booking:reminder"

// NewReminderTask wraps a reminder payload in an asynq task scheduled for fireAt.
func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeBookingReminder, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt)}

	return task, opts, nil
}

// ReminderScheduler enqueues a reminder ahead of each confirmed appointment.
// Bookings whose date or time was accepted verbatim and never normalized
// cannot be placed on a clock and are skipped.
type ReminderScheduler struct {
	Client *asynq.Client
	Lead   time.Duration
}

// Schedule queues a reminder Lead before the appointment.
func (s *ReminderScheduler) Schedule(rec models.BookingRecord) error {
	at, err := time.ParseInLocation("2006-01-02 15:04", rec.Date+" "+rec.Time, time.Local)
	if err != nil {
		return fmt.Errorf("appointment time is not canonical, skipping reminder: %w", err)
	}

	fireAt := at.Add(-s.Lead)
	if fireAt.Before(time.Now()) {
		return fmt.Errorf("appointment %s %s is too soon for a reminder", rec.Date, rec.Time)
	}

	payload := models.ReminderPayload{
		BookingID:      rec.ID,
		ConversationID: rec.ConversationID,
		Name:           rec.Name,
		Date:           rec.Date,
		Time:           rec.Time,
	}
	task, opts, err := NewReminderTask(payload, fireAt)
	if err != nil {
		return fmt.Errorf("build reminder task: %w", err)
	}
	if _, err := s.Client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("enqueue reminder: %w", err)
	}
	return nil
}
