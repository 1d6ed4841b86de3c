package models

import (
	"strings"
	"time"
)

// Slot identifies one required piece of booking information.
type Slot string

const (
	SlotName  Slot = "name"
	SlotEmail Slot = "email"
	SlotDate  Slot = "date"
	SlotTime  Slot = "time"
)

// AllSlots lists every slot the system knows about, in default prompt order.
var AllSlots = []Slot{SlotName, SlotEmail, SlotDate, SlotTime}

// ParseSlot maps a configuration string onto a known slot.
func ParseSlot(s string) (Slot, bool) {
	switch Slot(strings.ToLower(strings.TrimSpace(s))) {
	case SlotName:
		return SlotName, true
	case SlotEmail:
		return SlotEmail, true
	case SlotDate:
		return SlotDate, true
	case SlotTime:
		return SlotTime, true
	}
	return "", false
}

// SlotSet holds the accepted value for each slot of one conversation.
// A missing key means the slot is still unset.
type SlotSet map[Slot]string

// Get returns the current value for a slot and whether it is set.
func (s SlotSet) Get(slot Slot) (string, bool) {
	v, ok := s[slot]
	return v, ok
}

// Has reports whether the slot already holds a value.
func (s SlotSet) Has(slot Slot) bool {
	_, ok := s[slot]
	return ok
}

// Clone returns an independent copy of the set.
func (s SlotSet) Clone() SlotSet {
	out := make(SlotSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Extraction is the structured evidence the oracle produced for a single
// utterance. A nil field means the oracle found nothing for that slot; it is
// never a signal to clear a previously known value.
type Extraction struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Date  *string `json:"date"`
	Time  *string `json:"time"`
}

// Value returns the extracted value for a slot, if any.
func (e Extraction) Value(slot Slot) (string, bool) {
	var p *string
	switch slot {
	case SlotName:
		p = e.Name
	case SlotEmail:
		p = e.Email
	case SlotDate:
		p = e.Date
	case SlotTime:
		p = e.Time
	}
	if p == nil || *p == "" {
		return "", false
	}
	return *p, true
}

// IsEmpty reports whether the extraction carries no values at all.
func (e Extraction) IsEmpty() bool {
	return e.Name == nil && e.Email == nil && e.Date == nil && e.Time == nil
}

// ValidSlotValue reports whether value is acceptable for the given slot.
// Dates must be canonical YYYY-MM-DD and times canonical 24-hour HH:MM;
// emails must contain "@"; names only need to be non-blank.
func ValidSlotValue(slot Slot, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	switch slot {
	case SlotEmail:
		return strings.Contains(value, "@")
	case SlotDate:
		_, err := time.Parse("2006-01-02", value)
		return err == nil
	case SlotTime:
		_, err := time.Parse("15:04", value)
		return err == nil
	default:
		return true
	}
}
