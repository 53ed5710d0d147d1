package tokencount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokens(t *testing.T) {
	t.Parallel()

	counter := NewCounter()

	tests := []struct {
		name     string
		text     string
		model    string
		minCount int
		maxCount int
	}{
		{
			name:     "simple text with gpt-4",
			text:     "Hello, world!",
			model:    "gpt-4",
			minCount: 3,
			maxCount: 5,
		},
		{
			name:     "longer text",
			text:     "The quick brown fox jumps over the lazy dog.",
			model:    "gpt-3.5-turbo",
			minCount: 8,
			maxCount: 12,
		},
		{
			name:     "claude model (uses gpt-4 encoding)",
			text:     "Hello, world!",
			model:    "claude-sonnet-4-5",
			minCount: 3,
			maxCount: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, err := counter.CountTokens(tt.text, tt.model)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, count, tt.minCount, "token count should be at least %d", tt.minCount)
			assert.LessOrEqual(t, count, tt.maxCount, "token count should be at most %d", tt.maxCount)
		})
	}
}

func TestNormalizeModelName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"gpt-4", "gpt-4"},
		{"gpt-4-turbo", "gpt-4"},
		{"gpt-3.5-turbo", "gpt-3.5-turbo"},
		{"claude-sonnet-4-5", "gpt-4"},
		{"claude-haiku-4-5", "gpt-4"},
		{"unknown-model", "gpt-4"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := normalizeModelName(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEncodingCache(t *testing.T) {
	t.Parallel()

	counter := NewCounter()

	// First call should create the encoding
	count1, err := counter.CountTokens("Hello", "claude-sonnet-4-5")
	require.NoError(t, err)

	// Second call should use cached encoding
	count2, err := counter.CountTokens("Hello", "claude-sonnet-4-5")
	require.NoError(t, err)

	assert.Equal(t, count1, count2, "cached encoding should produce same result")
}

func TestCountTokensDefault(t *testing.T) {
	t.Parallel()

	count, err := CountTokensDefault("Hello, world!", "claude-sonnet-4-5")
	require.NoError(t, err)
	assert.Greater(t, count, 0)
}

func TestEmptyInput(t *testing.T) {
	t.Parallel()

	counter := NewCounter()

	count, err := counter.CountTokens("", "claude-sonnet-4-5")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestLongText(t *testing.T) {
	t.Parallel()

	counter := NewCounter()

	longText := ""
	for i := 0; i < 100; i++ {
		longText += "This is a test sentence to check token counting for longer texts. "
	}

	count, err := counter.CountTokens(longText, "claude-sonnet-4-5")
	require.NoError(t, err)
	assert.Greater(t, count, 1000, "long text should have many tokens")
}
