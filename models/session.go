package models

import "time"

// Session is the per-conversation dialogue state. The session store is the
// sole owner of the mapping from conversation ID to Session; the dialogue
// engine mutates a session only while it holds that conversation's turn lock.
type Session struct {
	ConversationID string    `json:"conversationId"`
	Slots          SlotSet   `json:"slots"`
	Expecting      Slot      `json:"expecting"` // slot most recently prompted for, "" before the first prompt
	LastActive     time.Time `json:"lastActive"`
}

// NewSession returns a fresh session with every slot unset.
func NewSession(conversationID string, now time.Time) *Session {
	return &Session{
		ConversationID: conversationID,
		Slots:          make(SlotSet),
		LastActive:     now,
	}
}
