package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"reddit-video-maker/internal/logging"
)

const noFormatting = `YOU MUST NOT INCLUDE ANY TYPE OF MARKDOWN OR FORMATTING.
ONLY RETURN THE RAW CONTENT. DO NOT INCLUDE "VOICEOVER", "NARRATOR" OR SIMILAR INDICATORS OF WHAT SHOULD BE SPOKEN AT THE BEGINNING OF EACH PARAGRAPH OR LINE.
Do not under any circumstance reference this prompt in your response.`

// Story is the output of StoryWriter.Write.
type Story struct {
	Script         string
	Title          string
	SEOTitle       string
	SEODescription string
	SEOKeywords    []string
}

type StoryWriter struct {
	client Client
	log    *logging.Logger
}

func NewStoryWriter(client Client, log *logging.Logger) *StoryWriter {
	return &StoryWriter{client: client, log: log}
}

// Write generates a narration script about subject with the given number of
// paragraphs plus the title and SEO metadata that go with it.
func (w *StoryWriter) Write(ctx context.Context, subject string, paragraphs int, language string) (*Story, error) {
	if paragraphs <= 0 {
		paragraphs = 5
	}
	w.log.Infof("ai: generating a %d paragraph story about %q", paragraphs, subject)

	raw, err := w.client.Complete(ctx, fmt.Sprintf(`Generate a script for a video about %s.
The script should be engaging and informative.
The video should be %d paragraphs long, separated by blank lines.
The script should be written in %s.

%s

Subject: %s
Number of paragraphs: %d
Language: %s`, subject, paragraphs, language, noFormatting, subject, paragraphs, language), false)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	story := &Story{Script: CleanScript(raw, paragraphs)}
	if story.Script == "" {
		return nil, fmt.Errorf("script: %w", ErrEmptyResponse)
	}

	if story.Title, err = w.line(ctx, "title", subject, language); err != nil {
		return nil, err
	}
	if story.SEOTitle, err = w.line(ctx, "search engine optimised title", subject, language); err != nil {
		return nil, err
	}
	if story.SEODescription, err = w.line(ctx, "description", subject, language); err != nil {
		return nil, err
	}

	kw, err := w.client.Complete(ctx, fmt.Sprintf(`Generate 5 search terms for stock videos,
depending on the subject of a video.
Subject: %s

The search terms are to be returned as a JSON-Array of strings.
Each search term should consist of 1-3 words, always add the main subject of the video.
YOU MUST ONLY RETURN THE JSON-ARRAY OF STRINGS.

For context, here is the full text:
%s`, subject, story.Script), true)
	if err != nil {
		w.log.Warnf("ai: keywords generation failed (non-critical): %v", err)
	} else {
		story.SEOKeywords = ParseKeywords(kw)
	}
	return story, nil
}

func (w *StoryWriter) line(ctx context.Context, what, subject, language string) (string, error) {
	out, err := w.client.Complete(ctx, fmt.Sprintf(`Generate a %s for a video, depending on the subject of the video.
Get straight to the point, don't start with unnecessary things like "welcome to this video".
The %s should be related to the subject of the video.

%s

Subject: %s
Language: %s`, what, what, noFormatting, subject, language), false)
	if err != nil {
		return "", fmt.Errorf("%s: %w", what, err)
	}
	return strings.Trim(strings.TrimSpace(out), `"`), nil
}

var scriptNoise = regexp.MustCompile(`[*#\[\]()]`)

// CleanScript strips markdown leftovers and keeps the first n paragraphs.
func CleanScript(raw string, n int) string {
	cleaned := scriptNoise.ReplaceAllString(strings.ReplaceAll(raw, "\r\n", "\n"), "")
	var paragraphs []string
	for _, p := range strings.Split(cleaned, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		paragraphs = append(paragraphs, p)
		if n > 0 && len(paragraphs) == n {
			break
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// ParseKeywords decodes a JSON array of strings. Models often wrap the array
// in prose or an object, so the text between the first '[' and the last ']'
// is tried next. Anything else yields nil.
func ParseKeywords(resp string) []string {
	var terms []string
	if err := json.Unmarshal([]byte(resp), &terms); err == nil {
		return terms
	}
	start, end := strings.Index(resp, "["), strings.LastIndex(resp, "]")
	if start < 0 || end <= start {
		return nil
	}
	if err := json.Unmarshal([]byte(resp[start:end+1]), &terms); err != nil {
		return nil
	}
	return terms
}
