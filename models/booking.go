package models

import "time"

// BookingRecord is the immutable completion record emitted once all required
// slots are filled. It is authoritative the moment it is emitted; notification
// or archive failures never roll it back.
type BookingRecord struct {
	ID             string    `json:"id" bson:"id"`
	ConversationID string    `json:"conversationId" bson:"conversationId"`
	Name           string    `json:"name" bson:"name"`
	Email          string    `json:"email,omitempty" bson:"email,omitempty"`
	Date           string    `json:"date" bson:"date"`
	Time           string    `json:"time" bson:"time"`
	CompletedAt    time.Time `json:"completedAt" bson:"completedAt"`
}

// ReminderPayload is the task payload queued for an upcoming appointment.
type ReminderPayload struct {
	BookingID      string `json:"bookingId"`
	ConversationID string `json:"conversationId"`
	Name           string `json:"name"`
	Date           string `json:"date"`
	Time           string `json:"time"`
}
