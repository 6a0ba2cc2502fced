package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Asha Rao", "asha-rao"},
		{"punctuation", "Dr. A. P. J. Abdul Kalam", "dr-a-p-j-abdul-kalam"},
		{"extra spaces", "  Test   User  ", "test-user"},
		{"digits", "User 42", "user-42"},
		{"empty", "!!!", "user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestGenerateSlugAvoidsCollisions(t *testing.T) {
	taken := []string{"asha-rao", "asha-rao-2"}

	assert.Equal(t, "asha-rao-3", GenerateSlug("Asha Rao", taken))
	assert.Equal(t, "test-user", GenerateSlug("Test User", taken))
	assert.Equal(t, "asha-rao", GenerateSlug("Asha Rao", nil))
}
