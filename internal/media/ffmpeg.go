// Package media wraps the ffmpeg operations shared by the narration and
// rendering stages.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"reddit-video-maker/internal/logging"
)

// ffmpegSem limits the number of concurrent ffmpeg processes to 1 to avoid
// "pthread_create() failed: Resource temporarily unavailable" under heavy load.
var ffmpegSem = make(chan struct{}, 1)

// Binary is the ffmpeg executable invoked by Run.
var Binary = "ffmpeg"

// Run executes the ffmpeg graph ending in stream. The process is killed when
// ctx is done and its stderr is returned in the error on failure.
func Run(ctx context.Context, stream *ffmpeg.Stream, log *logging.Logger) error {
	args := append([]string{"-hide_banner", "-loglevel", "error"}, stream.OverWriteOutput().GetArgs()...)

	select {
	case ffmpegSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-ffmpegSem }()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, Binary, args...)
	cmd.Stderr = &stderr

	log.Debugf("media: ffmpeg %s", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("ffmpeg error: %s", msg)
	}
	return nil
}

// ConcatAudio joins inputs back to back into out.
func ConcatAudio(ctx context.Context, inputs []string, out string, log *logging.Logger) error {
	if len(inputs) == 0 {
		return fmt.Errorf("concat %s: no inputs", out)
	}
	if len(inputs) == 1 {
		return copyFile(inputs[0], out)
	}
	if err := Run(ctx, concatAudioStream(inputs, out), log); err != nil {
		return fmt.Errorf("concat %d clips into %s: %w", len(inputs), out, err)
	}
	return nil
}

func concatAudioStream(inputs []string, out string) *ffmpeg.Stream {
	streams := make([]*ffmpeg.Stream, len(inputs))
	for i, p := range inputs {
		streams[i] = ffmpeg.Input(p).Audio()
	}
	return ffmpeg.Concat(streams, ffmpeg.KwArgs{"v": 0, "a": 1}).
		Output(out, ffmpeg.KwArgs{"b:a": "192k"})
}

// Silence writes seconds of stereo silence to out.
func Silence(ctx context.Context, out string, seconds float64, log *logging.Logger) error {
	if seconds <= 0 {
		return fmt.Errorf("silence %s: duration must be positive, got %v", out, seconds)
	}
	if err := Run(ctx, silenceStream(out, seconds), log); err != nil {
		return fmt.Errorf("silence %s: %w", out, err)
	}
	return nil
}

func silenceStream(out string, seconds float64) *ffmpeg.Stream {
	return ffmpeg.Input("anullsrc=channel_layout=stereo:sample_rate=44100", ffmpeg.KwArgs{
		"f": "lavfi",
		"t": fmt.Sprintf("%.3f", seconds),
	}).Output(out, ffmpeg.KwArgs{"c:a": "libmp3lame", "b:a": "192k"})
}

func copyFile(src, dst string) error {
	b, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, b, 0o644)
}
