package ai

import (
	"context"
	"fmt"
	"strings"
)

// Translator rewrites narration into the configured post language.
type Translator struct {
	client Client
}

func NewTranslator(client Client) *Translator {
	return &Translator{client: client}
}

// Translate returns text unchanged when lang is empty.
func (t *Translator) Translate(ctx context.Context, text, lang string) (string, error) {
	if strings.TrimSpace(lang) == "" || strings.TrimSpace(text) == "" {
		return text, nil
	}
	out, err := t.client.Complete(ctx, fmt.Sprintf(
		"Translate the following text to the language with ISO code %q. Reply with the translation only, no quotes or notes.\n\n%s",
		lang, text), false)
	if err != nil {
		return "", fmt.Errorf("translate to %s: %w", lang, err)
	}
	return out, nil
}
