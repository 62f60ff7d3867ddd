package providers

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRetryDelay(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    time.Duration
		ok      bool
	}{
		{"seconds", "Please try again in 60 seconds", 60 * time.Second, true},
		{"single second", "try again in 1 second", time.Second, true},
		{"minutes normalized to seconds", "try again in 2 minutes", 120 * time.Second, true},
		{"single minute", "Retry in 1 minute.", time.Minute, true},
		{"mixed case", "TRY AGAIN IN 30 SECONDS", 30 * time.Second, true},
		{"no numeric hint", "call frequency exceeded, slow down", 0, false},
		{"empty message", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRetryDelay(tt.message)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLooksRateLimited(t *testing.T) {
	assert.True(t, looksRateLimited("Our standard API call frequency is 5 calls per minute"))
	assert.True(t, looksRateLimited("You have reached your daily LIMIT"))
	assert.True(t, looksRateLimited("Please try again later"))
	assert.False(t, looksRateLimited("Invalid API call for symbol FOO"))
	assert.False(t, looksRateLimited(""))
}

func TestAsRateLimit(t *testing.T) {
	rle := &RateLimitError{Provider: "vendor", RetryAfter: 5 * time.Second, Message: "slow down"}
	wrapped := fmt.Errorf("fetch ACME: %w", rle)

	got, ok := AsRateLimit(wrapped)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, got.RetryAfter)

	_, ok = AsRateLimit(errors.New("plain failure"))
	assert.False(t, ok)
}
