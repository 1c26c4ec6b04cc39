package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTokenBudget(t *testing.T) {
	b, err := NewTokenBudget(64)
	require.NoError(t, err)
	require.Equal(t, "Narita", b.Truncate("Narita"))

	for _, n := range []int{0, -5} {
		_, err := NewTokenBudget(n)
		require.Error(t, err, "maxChars %d", n)
		require.Contains(t, err.Error(), "maxChars")
	}
}

func TestTokenBudget_Truncate(t *testing.T) {
	b, _ := NewTokenBudget(6)

	require.Equal(t, "Kansai", b.Truncate("Kansai"), "exact fit untouched")
	require.Equal(t, "Haneda", b.Truncate("Haneda Airport, Tokyo"))
}

func TestTokenBudget_Truncate_CountsRunes(t *testing.T) {
	// The limit counts runes, not bytes, so multibyte names survive.
	b, _ := NewTokenBudget(6)
	require.Equal(t, "Zürich", b.Truncate("Zürich Flughafen"))
}

func TestTokenBudget_Batches_Empty(t *testing.T) {
	b := DefaultTokenBudget()
	require.Nil(t, b.Batches(nil))
	require.Nil(t, b.Batches([]Prompt{}))
}

func TestTokenBudget_Batches_CapsBatchSize(t *testing.T) {
	// Character budget is generous, so only the batch size cap splits.
	b, _ := NewTokenBudget(100000)
	b = b.WithMaxBatchSize(4)

	prompts := make([]Prompt, 9)
	for i := range prompts {
		prompts[i] = NewPrompt(int64(i+1), "airport")
	}

	batches := b.Batches(prompts)
	require.Len(t, batches, 3)
	require.Len(t, batches[0], 4)
	require.Len(t, batches[1], 4)
	require.Len(t, batches[2], 1)
	require.Equal(t, int64(9), batches[2][0].EntityID())
}

func TestTokenBudget_Batches_CapsCharacters(t *testing.T) {
	// 30-char budget, 12 chars per prompt: two fit, a third would overflow.
	b, _ := NewTokenBudget(30)

	prompts := make([]Prompt, 7)
	for i := range prompts {
		prompts[i] = NewPrompt(int64(i+1), strings.Repeat("a", 12))
	}

	batches := b.Batches(prompts)
	require.Len(t, batches, 4)
	for _, batch := range batches[:3] {
		require.Len(t, batch, 2)
	}
	require.Len(t, batches[3], 1)
}

func TestTokenBudget_Batches_OversizedPromptAlone(t *testing.T) {
	// A prompt whose truncated text alone fills the budget still ships,
	// in a batch of its own.
	b, _ := NewTokenBudget(16)

	prompts := []Prompt{
		NewPrompt(1, strings.Repeat("x", 6)),
		NewPrompt(2, strings.Repeat("y", 64)),
		NewPrompt(3, strings.Repeat("z", 6)),
	}

	batches := b.Batches(prompts)
	require.Len(t, batches, 3)
	require.Equal(t, int64(1), batches[0][0].EntityID())
	require.Equal(t, int64(2), batches[1][0].EntityID())
	require.Equal(t, int64(3), batches[2][0].EntityID())
}

func TestTokenBudget_Batches_MeasuresTruncatedLength(t *testing.T) {
	// 18-char budget against 40-char texts: each counts as 18 after
	// truncation, so every prompt lands alone.
	b, _ := NewTokenBudget(18)

	prompts := make([]Prompt, 3)
	for i := range prompts {
		prompts[i] = NewPrompt(int64(i+1), strings.Repeat("a", 40))
	}

	batches := b.Batches(prompts)
	require.Len(t, batches, 3)
	for _, batch := range batches {
		require.Len(t, batch, 1)
	}
}

func TestTokenBudget_Batches_PreservesOrder(t *testing.T) {
	b, _ := NewTokenBudget(24)
	b = b.WithMaxBatchSize(2)

	prompts := make([]Prompt, 5)
	for i := range prompts {
		prompts[i] = NewPrompt(int64(i+1), strings.Repeat("p", 8))
	}

	var flat []int64
	for _, batch := range b.Batches(prompts) {
		for _, p := range batch {
			flat = append(flat, p.EntityID())
		}
	}
	require.Equal(t, []int64{1, 2, 3, 4, 5}, flat)
}

func TestTokenBudget_WithMaxBatchSize_Clamped(t *testing.T) {
	b := DefaultTokenBudget().WithMaxBatchSize(0)

	prompts := []Prompt{NewPrompt(1, "a"), NewPrompt(2, "b")}
	batches := b.Batches(prompts)
	require.Len(t, batches, 2)
	require.Len(t, batches[0], 1)
	require.Len(t, batches[1], 1)
}
