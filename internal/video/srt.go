package video

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"reddit-video-maker/internal/model"
)

// WordTranscriber returns timed words for an audio file.
type WordTranscriber interface {
	Words(ctx context.Context, audioPath string) ([]model.Word, error)
}

// SRTTimestamp formats seconds as HH:MM:SS,mmm.
func SRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// WordsToSRT builds one cue per perCue words, every timestamp shifted by
// offset seconds. perCue < 1 is treated as 1.
func WordsToSRT(words []model.Word, offset float64, perCue int) string {
	if perCue < 1 {
		perCue = 1
	}
	var sb strings.Builder
	cue := 0
	for i := 0; i < len(words); i += perCue {
		group := words[i:min(i+perCue, len(words))]
		texts := make([]string, 0, len(group))
		for _, w := range group {
			texts = append(texts, w.Text)
		}
		cue++
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			cue,
			SRTTimestamp(group[0].Start+offset),
			SRTTimestamp(group[len(group)-1].End+offset),
			strings.Join(texts, " "))
	}
	return sb.String()
}

// WriteSRT transcribes audioPath and writes the subtitles to out.
func WriteSRT(ctx context.Context, t WordTranscriber, audioPath, out string, offset float64, perCue int) error {
	words, err := t.Words(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("transcribe %s: %w", audioPath, err)
	}
	if err := os.WriteFile(out, []byte(WordsToSRT(words, offset, perCue)), 0o644); err != nil {
		return fmt.Errorf("write subtitles: %w", err)
	}
	return nil
}
