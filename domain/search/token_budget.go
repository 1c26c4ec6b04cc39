package search

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// Prompt pairs an entity with the text to embed for it.
type Prompt struct {
	entityID int64
	text     string
}

// NewPrompt creates a new Prompt.
func NewPrompt(entityID int64, text string) Prompt {
	return Prompt{entityID: entityID, text: text}
}

// EntityID returns the entity the prompt describes.
func (p Prompt) EntityID() int64 { return p.entityID }

// Text returns the prompt text.
func (p Prompt) Text() string { return p.text }

// TokenBudget constrains embedding batches to stay within model token limits.
// It holds a character budget and a maximum batch size: each batch's total
// (truncated) text must not exceed maxChars, each batch contains at most
// maxBatchSize prompts (default 10), and individual texts are truncated to
// maxChars.
type TokenBudget struct {
	maxChars     int
	maxBatchSize int
}

const defaultMaxBatchSize = 10

// NewTokenBudget creates a TokenBudget with the given character limit.
// maxChars must be positive.
func NewTokenBudget(maxChars int) (TokenBudget, error) {
	if maxChars <= 0 {
		return TokenBudget{}, fmt.Errorf("NewTokenBudget: maxChars must be positive, got %d", maxChars)
	}
	return TokenBudget{maxChars: maxChars, maxBatchSize: defaultMaxBatchSize}, nil
}

// DefaultTokenBudget returns a conservative budget of 16 000 characters
// (~5 300 tokens at ~3 chars/token), safe for 8 192-token embedding models.
func DefaultTokenBudget() TokenBudget {
	b, _ := NewTokenBudget(16000)
	return b
}

// WithMaxBatchSize returns a new TokenBudget with the given maximum number
// of prompts per batch. Values <= 0 are clamped to 1.
func (b TokenBudget) WithMaxBatchSize(n int) TokenBudget {
	if n <= 0 {
		n = 1
	}
	b.maxBatchSize = n
	return b
}

// Truncate returns text capped to the character (rune) limit.
func (b TokenBudget) Truncate(text string) string {
	if utf8.RuneCountInString(text) <= b.maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:b.maxChars])
}

// Batches partitions prompts into groups whose total truncated character
// count stays within the budget and whose size does not exceed maxBatchSize.
// A single prompt whose truncated text still exceeds the character budget is
// placed alone in its own batch.
func (b TokenBudget) Batches(prompts []Prompt) [][]Prompt {
	if len(prompts) == 0 {
		return nil
	}

	var batches [][]Prompt
	for start := 0; start < len(prompts); {
		chars := 0
		end := start

		// The first prompt of a batch is always admitted, even when its
		// truncated text alone fills the budget.
		for end < len(prompts) {
			if end > start && end-start >= b.maxBatchSize {
				break
			}
			n := min(utf8.RuneCountInString(prompts[end].Text()), b.maxChars)
			if end > start && chars+n > b.maxChars {
				break
			}
			chars += n
			end++
		}

		batches = append(batches, slices.Clone(prompts[start:end]))
		start = end
	}

	return batches
}
