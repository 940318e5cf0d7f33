package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"reddit-video-maker/internal/logging"
)

const defaultGeminiModel = "gemini-2.0-flash"

type GeminiClient struct {
	apiKey string
	model  string
	log    *logging.Logger
}

func NewGeminiClient(apiKey, model string, log *logging.Logger) *GeminiClient {
	if model == "" || !strings.HasPrefix(model, "gemini") {
		model = defaultGeminiModel
	}
	return &GeminiClient{apiKey: apiKey, model: model, log: log}
}

func (g *GeminiClient) Complete(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("genai client: %w", err)
	}

	var cfg *genai.GenerateContentConfig
	if jsonOutput {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}
	resp, err := client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	g.log.Debugf("ai: %s returned %d chars", g.model, len(text))
	return text, nil
}
