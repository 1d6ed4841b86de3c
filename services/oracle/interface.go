// Package oracle wraps the external language-understanding service that turns
// free-form utterances into structured booking fields.
package oracle

import (
	"context"

	"bookio/models"
)

// Extractor extracts booking fields from a single utterance given what is
// already known about the conversation. Implementations must be fail-closed:
// anything they cannot parse or validate comes back absent, never invented,
// and a transport failure yields an empty extraction rather than an error
// that would abort the turn.
type Extractor interface {
	Extract(ctx context.Context, userText string, known models.SlotSet) (models.Extraction, error)
}
