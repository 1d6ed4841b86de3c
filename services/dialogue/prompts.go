package dialogue

import (
	"fmt"
	"strings"

	"bookio/models"
)

// PromptFor returns the canonical question for an unset slot.
func PromptFor(slot models.Slot) string {
	switch slot {
	case models.SlotName:
		return "What name should I put the booking under?"
	case models.SlotEmail:
		return "What's the best email address to reach you at?"
	case models.SlotDate:
		return "What date works for you? (e.g. 2025-06-02 or \"next Friday\")"
	case models.SlotTime:
		return "And what time? (e.g. 16:00 or \"4pm\")"
	}
	return "Could you tell me a bit more about your booking?"
}

// emailClarifyPrompt is the re-prompt when an answer to the email question
// doesn't look like an email address.
const emailClarifyPrompt = "That doesn't look like an email address. Could you share one with an @ in it?"

// clarifyPrompt is the generic fallback when a turn could not be processed.
const clarifyPrompt = "Sorry, I didn't quite get that. Could you rephrase?"

// greetingPrompt opens a fresh conversation.
const greetingPrompt = "Hi! I can set up a booking for you."

// cancelledMessage acknowledges a cancelled conversation.
const cancelledMessage = "No problem, I've cancelled that. Send a new message whenever you'd like to book."

// completionMessage echoes the collected details back to the user.
func completionMessage(rec models.BookingRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("All set, %s! Your booking is confirmed for %s at %s.", rec.Name, rec.Date, rec.Time))
	if rec.Email != "" {
		sb.WriteString(fmt.Sprintf(" A confirmation is on its way to %s.", rec.Email))
	}
	return sb.String()
}
