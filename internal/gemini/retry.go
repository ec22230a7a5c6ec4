package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// maxAttemptDelay caps a single backoff sleep.
const maxAttemptDelay = 65 * time.Second

// isTransient classifies provider errors worth retrying. The genai SDK
// surfaces HTTP status and gRPC-style codes in error text, so string
// matching is unavoidable here.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	msg := strings.ToLower(err.Error())

	// Rate limit and overload
	if strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") {
		return true
	}

	// Service availability
	if strings.Contains(msg, "503") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "internal error") {
		return true
	}

	// Timeouts
	if strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "eof") {
		return true
	}

	// Hard client errors (400 family other than 429) are not retried.
	if strings.Contains(msg, "400") || strings.Contains(msg, "invalid_argument") {
		return false
	}

	// Unknown errors default to retryable; the attempt cap bounds the cost.
	return true
}

// backoffDelay implements 2^attempt + 1 seconds, capped per attempt.
// attempt is zero-based.
func backoffDelay(attempt uint) time.Duration {
	d := time.Duration(1<<attempt+1) * time.Second
	if d > maxAttemptDelay {
		d = maxAttemptDelay
	}
	return d
}

// withRetry runs op with the client's retry policy.
func withRetry(ctx context.Context, attempts int, op func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	return retry.Do(
		op,
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.RetryIf(isTransient),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return backoffDelay(n)
		}),
		retry.LastErrorOnly(true),
	)
}
