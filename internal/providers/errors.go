package providers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RateLimitError reports that a provider throttled the request. It is a
// distinct error kind from ordinary failure because the correct recovery
// is to wait rather than to immediately retry.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration // zero when the provider gave no hint
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited, retry after %s: %s", e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("%s rate limited: %s", e.Provider, e.Message)
}

// AsRateLimit unwraps err into a RateLimitError if it is one.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

var retryDelayPattern = regexp.MustCompile(`(?i)(\d+)\s*(second|minute)`)

// ParseRetryDelay extracts a suggested delay from a rate-limit message such
// as "Please try again in 60 seconds" or "try again in 2 minutes". Minutes
// are normalized to seconds. Returns false when the message carries no
// numeric hint.
func ParseRetryDelay(message string) (time.Duration, bool) {
	m := retryDelayPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	d := time.Duration(n) * time.Second
	if strings.HasPrefix(strings.ToLower(m[2]), "minute") {
		d = time.Duration(n) * time.Minute
	}
	return d, true
}

var rateLimitPhrases = []string{"frequency", "limit", "try again"}

// looksRateLimited reports whether an informational message from an
// otherwise-successful response is really a throttle notice.
func looksRateLimited(message string) bool {
	lowered := strings.ToLower(message)
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// retryAfterFromHeader reads a Retry-After header expressed in seconds.
func retryAfterFromHeader(h http.Header) time.Duration {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
