package text_test

import (
	"strings"
	"testing"

	"github.com/ADEMSU/insight-flow-rss/internal/utils/text"
)

func TestCountRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{
			name:     "ASCII text",
			input:    "hello world",
			expected: 11,
		},
		{
			name:     "Cyrillic text",
			input:    "Центробанк повысил ставку",
			expected: 25,
		},
		{
			name:     "mixed Cyrillic and Latin",
			input:    "курс API",
			expected: 8,
		},
		{
			name:     "emoji",
			input:    "⚠️ внимание",
			expected: 11,
		},
		{
			name:     "empty string",
			input:    "",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := text.CountRunes(tt.input); got != tt.expected {
				t.Errorf("CountRunes(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

// Byte length and rune length diverge on Cyrillic input; the relevance gate
// depends on the rune count.
func TestCountRunes_NotByteLength(t *testing.T) {
	input := strings.Repeat("я", 100)
	if len(input) == text.CountRunes(input) {
		t.Fatal("expected byte length to differ from rune count for Cyrillic input")
	}
	if got := text.CountRunes(input); got != 100 {
		t.Errorf("CountRunes = %d, want 100", got)
	}
}
