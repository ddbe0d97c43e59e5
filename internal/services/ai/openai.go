package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the default completion model. The original deployment
	// ran against Groq's OpenAI-compatible endpoint.
	DefaultModel = "llama-3.3-70b-versatile"
	// DefaultBaseURL is the default API base URL
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	// DefaultTimeout bounds a single provider call. The pipeline adds one
	// retry on top of this, so worst-case latency stays bounded.
	DefaultTimeout = 15 * time.Second
	// DefaultTemperature keeps replies playful without drifting
	DefaultTemperature = 0.7

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIProvider implements CompletionProvider against any
// OpenAI-compatible chat completions API.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new provider without logging.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, baseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a new provider with debug logging support.
func NewOpenAIProviderWithLogger(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Complete sends the prompt and turns to the completions API and returns
// the reply text.
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt string, turns []ChatMessage, maxTokens int) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	messages = append(messages, openai.SystemMessage(systemPrompt))

	for _, turn := range turns {
		switch turn.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "complete"),
			zap.String("model", p.model),
			zap.Int("message_count", len(messages)),
			zap.Int("prompt_length", len(systemPrompt)),
			zap.String("prompt_preview", SanitizePrompt(systemPrompt, false)),
		)
	}

	req := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(p.model),
		Messages:    messages,
		Temperature: openai.Float(DefaultTemperature),
	}
	if maxTokens > 0 {
		req.MaxTokens = openai.Int(int64(maxTokens))
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "complete"),
				zap.String("model", p.model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("failed to complete: %w", apiErr)
		}
		return "", fmt.Errorf("failed to complete: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "complete"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, false)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}
