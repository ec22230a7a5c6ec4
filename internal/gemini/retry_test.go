package gemini

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"rate limit 429", errors.New("googleapi: Error 429: quota exceeded"), true},
		{"resource exhausted", errors.New("rpc error: code = RESOURCE_EXHAUSTED"), true},
		{"unavailable", errors.New("503 Service Unavailable"), true},
		{"overloaded", errors.New("the model is overloaded"), true},
		{"timeout", errors.New("context deadline exceeded"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"bad request", errors.New("400 Bad Request"), false},
		{"invalid argument", errors.New("rpc error: code = INVALID_ARGUMENT"), false},
		{"unknown", errors.New("something odd happened"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt uint
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 3 * time.Second},
		{2, 5 * time.Second},
		{3, 9 * time.Second},
		{5, 33 * time.Second},
		{6, 65 * time.Second},
		{7, 65 * time.Second}, // capped
		{10, 65 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffDelay(tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestWithRetryStopsOnHardError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 8, func() error {
		calls++
		return errors.New("400 invalid_argument")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("hard error retried: %d calls", calls)
	}
}

func TestWithRetryRecovers(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, func() error {
		calls++
		if calls < 2 {
			return errors.New("503 unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("got %d calls, want 2", calls)
	}
}
