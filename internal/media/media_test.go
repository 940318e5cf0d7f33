package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddit-video-maker/internal/logging"
)

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("a.mp3", `{"format":{"duration":"12.500000"}}`)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, d, 1e-9)

	_, err = parseDuration("a.mp3", `{"format":{}}`)
	assert.Error(t, err)
	_, err = parseDuration("a.mp3", `{"format":{"duration":"0"}}`)
	assert.Error(t, err)
}

func TestConcatAudioStream(t *testing.T) {
	args := strings.Join(concatAudioStream([]string{"a.mp3", "b.mp3", "c.mp3"}, "out.mp3").GetArgs(), " ")
	assert.Contains(t, args, "-i a.mp3")
	assert.Contains(t, args, "-i c.mp3")
	assert.Contains(t, args, "concat=a=1:n=3:v=0")
	assert.Contains(t, args, "-b:a 192k")
	assert.True(t, strings.HasSuffix(args, "out.mp3"))
}

func TestSilenceStream(t *testing.T) {
	args := silenceStream("s.mp3", 0.3).GetArgs()
	assert.Contains(t, args, "lavfi")
	assert.Contains(t, args, "0.300")
	assert.Contains(t, args, "anullsrc=channel_layout=stereo:sample_rate=44100")
	assert.Equal(t, "s.mp3", args[len(args)-1])
}

func TestSilenceRejectsNonPositive(t *testing.T) {
	assert.Error(t, Silence(context.Background(), "s.mp3", 0, logging.Discard()))
}

func TestConcatAudioSingleInputCopies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mp3")
	dst := filepath.Join(dir, "out.mp3")
	require.NoError(t, os.WriteFile(src, []byte("audio"), 0o644))

	require.NoError(t, ConcatAudio(context.Background(), []string{src}, dst, logging.Discard()))
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(b))

	assert.Error(t, ConcatAudio(context.Background(), nil, dst, logging.Discard()))
}

func TestRunReportsMissingBinary(t *testing.T) {
	old := Binary
	Binary = filepath.Join(t.TempDir(), "no-ffmpeg")
	defer func() { Binary = old }()

	err := Run(context.Background(), silenceStream(filepath.Join(t.TempDir(), "s.mp3"), 1), logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg error")
}
