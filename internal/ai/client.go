package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"reddit-video-maker/internal"
	"reddit-video-maker/internal/logging"
)

var ErrEmptyResponse = errors.New("ai: empty response")

// Client is a text completion backend.
type Client interface {
	Complete(ctx context.Context, prompt string, jsonOutput bool) (string, error)
}

// New picks the completion backend named by cfg.Provider.
func New(cfg internal.AIConfig, log *logging.Logger) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai", "gpt":
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("ai: OPENAI_API_KEY is required for the openai provider")
		}
		return NewOpenAIClient(NewOpenAI(cfg), cfg.Model, log), nil
	case "gemini", "google":
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("ai: GEMINI_API_KEY is required for the gemini provider")
		}
		return NewGeminiClient(cfg.GeminiAPIKey, cfg.Model, log), nil
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
	}
}

// NewOpenAI builds the shared go-openai client honoring a custom base URL.
func NewOpenAI(cfg internal.AIConfig) *openai.Client {
	oc := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = cfg.OpenAIBaseURL
	}
	return openai.NewClientWithConfig(oc)
}

type OpenAIClient struct {
	api   *openai.Client
	model string
	log   *logging.Logger
}

func NewOpenAIClient(api *openai.Client, model string, log *logging.Logger) *OpenAIClient {
	if model == "" || strings.HasPrefix(model, "gemini") {
		model = openai.GPT4o
	}
	return &OpenAIClient{api: api, model: model, log: log}
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if jsonOutput {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	c.log.Debugf("ai: %s returned %d chars", c.model, len(text))
	return text, nil
}
