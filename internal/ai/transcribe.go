package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/model"
)

var ErrNoWords = errors.New("ai: transcription returned no word timestamps")

// Transcriber turns narration audio into word level timestamps.
type Transcriber struct {
	api   *openai.Client
	model string
	log   *logging.Logger
}

func NewTranscriber(api *openai.Client, modelName string, log *logging.Logger) *Transcriber {
	if modelName == "" {
		modelName = openai.Whisper1
	}
	return &Transcriber{api: api, model: modelName, log: log}
}

func (t *Transcriber) Words(ctx context.Context, audioPath string) ([]model.Word, error) {
	resp, err := t.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe %s: %w", audioPath, err)
	}
	if len(resp.Words) == 0 {
		return nil, ErrNoWords
	}

	words := make([]model.Word, 0, len(resp.Words))
	for _, w := range resp.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		words = append(words, model.Word{Text: text, Start: w.Start, End: w.End})
	}
	t.log.Infof("ai: transcribed %d words from %s", len(words), audioPath)
	return words, nil
}
