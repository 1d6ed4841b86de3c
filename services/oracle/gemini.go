package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bookio/models"
	"bookio/utils"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiExtractor calls Gemini to pull name/email/date/time out of an
// utterance. The model is asked for a bare JSON object; everything else
// (markdown fences, unrecognized fields, non-canonical dates) is stripped or
// dropped before the result reaches the dialogue engine.
type GeminiExtractor struct {
	model   *genai.GenerativeModel
	timeout time.Duration
}

// NewGeminiExtractor builds a Gemini-backed extractor.
func NewGeminiExtractor(apiKey, modelName string, timeout time.Duration) (*GeminiExtractor, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	return &GeminiExtractor{model: model, timeout: timeout}, nil
}

// Extract sends the utterance to Gemini and returns whatever canonical fields
// it produced. Transport errors, timeouts and unparseable output are logged
// and reported as "nothing extracted"; the caller never sees an error from a
// flaky oracle.
func (g *GeminiExtractor) Extract(ctx context.Context, userText string, known models.SlotSet) (models.Extraction, error) {
	logger := utils.GetLogger()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := buildPrompt(time.Now(), known, userText)
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		logger.Warn("gemini call failed, treating as nothing extracted", zap.Error(err))
		return models.Extraction{}, nil
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if textPart, ok := part.(genai.Text); ok {
				sb.WriteString(string(textPart))
			}
		}
	}

	ext, err := parseExtraction(sb.String())
	if err != nil {
		logger.Warn("gemini returned unparseable payload, treating as nothing extracted",
			zap.Error(err), zap.String("payload", sb.String()))
		return models.Extraction{}, nil
	}
	return sanitizeExtraction(ext), nil
}

// buildPrompt embeds the current date so the model can resolve relative
// phrases like "next Friday", plus everything already known so it does not
// re-guess settled fields.
func buildPrompt(now time.Time, known models.SlotSet, userText string) string {
	knownJSON := knownSlotsJSON(known)
	return fmt.Sprintf(`Current Date: %s
Already Known: %s
User Input: %q

Extract the following details from the user input:
- name
- email (if present)
- date (YYYY-MM-DD format)
- time (HH:MM 24-hour format)

Return ONLY a JSON object. If a field is missing from the user input, set it to null.
Example: {"name": "John", "email": null, "date": "2023-10-25", "time": "14:00"}`,
		now.Format("2006-01-02"), knownJSON, userText)
}

func knownSlotsJSON(known models.SlotSet) string {
	obj := make(map[string]*string, len(models.AllSlots))
	for _, slot := range models.AllSlots {
		if v, ok := known.Get(slot); ok {
			val := v
			obj[string(slot)] = &val
		} else {
			obj[string(slot)] = nil
		}
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// parseExtraction decodes the model output into an Extraction. Models often
// wrap JSON in markdown fences; those are removed first. Unrecognized fields
// are ignored by the decoder.
func parseExtraction(raw string) (models.Extraction, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var ext models.Extraction
	if err := json.Unmarshal([]byte(cleaned), &ext); err != nil {
		return models.Extraction{}, fmt.Errorf("decode extraction: %w", err)
	}
	return ext, nil
}

// sanitizeExtraction drops any value that is not in canonical form for its
// slot. Storing only canonical values keeps the merge step trivial; a date
// the model rendered loosely is treated as not extracted at all.
func sanitizeExtraction(ext models.Extraction) models.Extraction {
	scrub := func(slot models.Slot, p **string) {
		if *p == nil {
			return
		}
		trimmed := strings.TrimSpace(**p)
		if !models.ValidSlotValue(slot, trimmed) {
			*p = nil
			return
		}
		*p = &trimmed
	}
	scrub(models.SlotName, &ext.Name)
	scrub(models.SlotEmail, &ext.Email)
	scrub(models.SlotDate, &ext.Date)
	scrub(models.SlotTime, &ext.Time)
	return ext
}
