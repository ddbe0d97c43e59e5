package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsRateLimitError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "api error 429", err: &APIError{StatusCode: 429}, want: true},
		{name: "api error 500", err: &APIError{StatusCode: 500}, want: false},
		{name: "wrapped api error", err: fmt.Errorf("call failed: %w", &APIError{StatusCode: 429}), want: true},
		{name: "status in message", err: errors.New("unexpected status 429"), want: true},
		{name: "rate limit text", err: errors.New("rate limit exceeded"), want: true},
		{name: "unrelated", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimitError(tt.err); got != tt.want {
				t.Errorf("IsRateLimitError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTimeoutError(t *testing.T) {
	t.Parallel()

	if !IsTimeoutError(context.DeadlineExceeded) {
		t.Error("deadline exceeded should be a timeout")
	}
	if !IsTimeoutError(errors.New("request timeout after 30s")) {
		t.Error("timeout text should be a timeout")
	}
	if IsTimeoutError(errors.New("connection refused")) {
		t.Error("connection refused is not a timeout")
	}
	if IsTimeoutError(nil) {
		t.Error("nil is not a timeout")
	}
}

func TestIsMalformedError(t *testing.T) {
	t.Parallel()

	if !IsMalformedError(ErrMalformed) {
		t.Error("sentinel should be malformed")
	}
	if !IsMalformedError(fmt.Errorf("call failed: %w", ErrMalformed)) {
		t.Error("wrapped sentinel should be malformed")
	}
	if !IsMalformedError(errors.New(ErrNoChoicesInResponse)) {
		t.Error("empty-choices error should be malformed")
	}
	if IsMalformedError(errors.New("connection refused")) {
		t.Error("unrelated error is not malformed")
	}
}

func TestExtractAPIError(t *testing.T) {
	t.Parallel()

	if got := ExtractAPIError(errors.New("connection refused")); got != nil {
		t.Errorf("expected nil for non-429 error, got %+v", got)
	}

	err := errors.New(`429 Too Many Requests {"message":"slow down","type":"rate_limit_error","code":"over_quota"}`)
	apiErr := ExtractAPIError(err)
	if apiErr == nil {
		t.Fatal("expected an APIError")
	}
	if apiErr.StatusCode != 429 {
		t.Errorf("status = %d, want 429", apiErr.StatusCode)
	}
	if apiErr.Message != "slow down" || apiErr.Code != "over_quota" {
		t.Errorf("embedded JSON not parsed: %+v", apiErr)
	}
	if apiErr.RetryAfter == nil {
		t.Error("expected a retry-after estimate")
	}
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	if d := RetryDelay(errors.New("connection refused")); d != 500*time.Millisecond {
		t.Errorf("generic error delay = %v, want 500ms", d)
	}
	// Rate-limit delays are capped so request latency stays bounded.
	if d := RetryDelay(errors.New("429 rate limited")); d != 2*time.Second {
		t.Errorf("rate limit delay = %v, want 2s", d)
	}
}

func TestSanitizeAPIKey(t *testing.T) {
	t.Parallel()

	if got := SanitizeAPIKey(""); got != "" {
		t.Errorf("empty key should stay empty, got %q", got)
	}
	if got := SanitizeAPIKey("short"); got != RedactedValue {
		t.Errorf("short key should be fully redacted, got %q", got)
	}
	got := SanitizeAPIKey("sk-abcdefghijklmnop")
	if got != "sk-a"+RedactedValue+"mnop" {
		t.Errorf("unexpected redaction: %q", got)
	}
}
