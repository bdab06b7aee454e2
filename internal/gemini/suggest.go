package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gitlab.com/yelinaung/trackify/internal/logger"
	"google.golang.org/genai"
)

// MaxPromptRemarksLength caps how much of the remarks is sent to the model.
const MaxPromptRemarksLength = 200

const maxReasoningLength = 300

// Suggestion is a category proposed for an expense.
type Suggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Suggester proposes a category for free-text remarks.
type Suggester interface {
	SuggestCategory(ctx context.Context, remarks string, categories []string) (*Suggestion, error)
}

var (
	// ErrEmptyRemarks is returned when there is nothing to categorize.
	ErrEmptyRemarks = errors.New("remarks are required for a suggestion")
	// ErrNoCategories is returned when no category could be chosen.
	ErrNoCategories = errors.New("no categories available")
)

// SuggestCategory asks Gemini which of categories best fits remarks. The
// answer is constrained to the list through the response schema and checked
// again on return.
func (c *Client) SuggestCategory(ctx context.Context, remarks string, categories []string) (*Suggestion, error) {
	remarksHash := logger.HashText(remarks)

	if c.generator == nil {
		return nil, errors.New("gemini client not initialized")
	}
	clean := SanitizeForPrompt(remarks, MaxPromptRemarksLength)
	if clean == "" {
		return nil, ErrEmptyRemarks
	}
	if len(categories) == 0 {
		return nil, ErrNoCategories
	}

	temp := float32(0.2)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: 300,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: "You classify personal expenses. Respond with a single JSON object and nothing else."},
			},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category": {
					Type:        genai.TypeString,
					Enum:        categories,
					Description: "The best matching category from the list",
				},
				"confidence": {
					Type:        genai.TypeNumber,
					Description: "Confidence between 0 and 1",
				},
				"reasoning": {
					Type:        genai.TypeString,
					Description: "One short sentence",
				},
			},
			Required: []string{"category", "confidence"},
		},
	}
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: buildPrompt(clean, categories)}}},
	}

	resp, err := c.generate(ctx, contents, config)
	if err != nil {
		logger.Log.Warn().Err(err).
			Str("remarks_hash", remarksHash).
			Msg("Category suggestion request failed")
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp == nil {
		return nil, errors.New("no response from Gemini")
	}

	text := extractJSON(resp.Text())
	if text == "" {
		return nil, errors.New("no JSON found in response")
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("failed to parse suggestion: %w", err)
	}

	matched := ""
	for _, cat := range categories {
		if strings.EqualFold(cat, strings.TrimSpace(s.Category)) {
			matched = cat
			break
		}
	}
	if matched == "" {
		logger.Log.Warn().
			Str("remarks_hash", remarksHash).
			Str("suggested_category", logger.SanitizeText(s.Category)).
			Msg("Suggested category not in the offered list")
		return nil, fmt.Errorf("suggested category %q not in available categories", s.Category)
	}
	s.Category = matched

	if s.Confidence < 0 || s.Confidence > 1 {
		return nil, fmt.Errorf("confidence out of range: %f", s.Confidence)
	}
	s.Reasoning = SanitizeForPrompt(s.Reasoning, maxReasoningLength)

	logger.Log.Debug().
		Str("remarks_hash", remarksHash).
		Str("category", s.Category).
		Float64("confidence", s.Confidence).
		Msg("Category suggested")
	return &s, nil
}

func buildPrompt(remarks string, categories []string) string {
	return fmt.Sprintf(`Pick the category for this expense note: "%s"

Categories:
- %s

Bus, taxi, fuel and train fares are Transport. Rent, utilities and phone plans are Bills.
Use a lower confidence when the note is vague.`, remarks, strings.Join(categories, "\n- "))
}

// extractJSON returns the outermost {...} in text, or "".
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// SanitizeForPrompt makes user text safe to quote inside a prompt: quotes
// become apostrophes, control characters go, whitespace collapses, and the
// result is cut to maxRunes.
func SanitizeForPrompt(input string, maxRunes int) string {
	input = strings.ReplaceAll(input, `"`, `'`)
	input = strings.ReplaceAll(input, "`", "'")
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.Join(strings.Fields(input), " ")

	if utf8.RuneCountInString(input) > maxRunes {
		input = strings.TrimSpace(string([]rune(input)[:maxRunes]))
	}
	return input
}
