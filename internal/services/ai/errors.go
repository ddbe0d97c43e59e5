package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrRateLimited indicates the API rate limit was exceeded
	ErrRateLimited = errors.New("rate limited")
	// ErrMalformed indicates the API response could not be used
	ErrMalformed = errors.New("malformed response")
)

// APIError represents an error from the completion provider API
type APIError struct {
	Message    string
	Type       string
	Code       string
	StatusCode int
	RetryAfter *time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}

	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

// IsTimeoutError checks if an error is a timeout or cancellation
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}
	return strings.Contains(err.Error(), "timeout")
}

// IsMalformedError checks if an error means the response was unusable
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrMalformed) ||
		strings.Contains(err.Error(), ErrNoChoicesInResponse)
}

// ExtractAPIError extracts API error details from an error. The OpenAI SDK
// often embeds JSON in the error string.
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "429") {
		return nil
	}

	apiErr := &APIError{
		StatusCode: 429,
		Message:    errStr,
		Type:       "rate_limit_error",
	}

	if jsonStart := strings.Index(errStr, "{"); jsonStart != -1 {
		jsonStr := errStr[jsonStart:]
		if jsonEnd := strings.LastIndex(jsonStr, "}"); jsonEnd != -1 {
			jsonStr = jsonStr[:jsonEnd+1]
			var errorData struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			}
			if json.Unmarshal([]byte(jsonStr), &errorData) == nil {
				apiErr.Message = errorData.Message
				apiErr.Type = errorData.Type
				apiErr.Code = errorData.Code
			}
		}
	}

	retryAfter := 60 * time.Second
	apiErr.RetryAfter = &retryAfter

	return apiErr
}

// RetryDelay returns the backoff before the pipeline's single retry.
// Rate-limit errors honor the provider's retry-after estimate; everything
// else gets a short fixed delay so total request latency stays bounded.
func RetryDelay(err error) time.Duration {
	if apiErr := ExtractAPIError(err); apiErr != nil && apiErr.RetryAfter != nil {
		if *apiErr.RetryAfter < 2*time.Second {
			return *apiErr.RetryAfter
		}
		return 2 * time.Second
	}
	return 500 * time.Millisecond
}
