package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanCallbackData(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "menu token",
			input:    "menu:sales",
			expected: "menu:sales",
		},
		{
			name:     "token with whitespace",
			input:    "  ans:2  ",
			expected: "ans:2",
		},
		{
			name:     "token with newline",
			input:    "admin:\nstats",
			expected: "admin:stats",
		},
		{
			name:     "token with tab",
			input:    "dept:\tsales",
			expected: "dept:sales",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "only whitespace",
			input:    "   ",
			expected: "",
		},
		{
			name:     "token with unprintable characters",
			input:    "quiz\x00:sales\x01",
			expected: "quiz:sales",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cleanCallbackData(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
