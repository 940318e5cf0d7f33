package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/media"
)

// Espeak drives the local espeak binary, the offline fallback voice.
type Espeak struct {
	Binary string

	voice string
}

func NewEspeak(voice string) *Espeak {
	if voice == "" {
		voice = "en"
	}
	return &Espeak{Binary: "espeak", voice: voice}
}

func (e *Espeak) Name() string  { return "pyttsx" }
func (e *Espeak) MaxChars() int { return 5000 }

func (e *Espeak) Synthesize(ctx context.Context, text, outPath string, _ bool) error {
	wav := strings.TrimSuffix(outPath, ".mp3") + ".wav"
	defer os.Remove(wav)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Binary, "-v", e.voice, "-w", wav, text)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("espeak: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	stream := ffmpeg.Input(wav).Output(outPath, ffmpeg.KwArgs{"c:a": "libmp3lame", "b:a": "192k"})
	if err := media.Run(ctx, stream, logging.Discard()); err != nil {
		return fmt.Errorf("espeak: encode mp3: %w", err)
	}
	return nil
}
