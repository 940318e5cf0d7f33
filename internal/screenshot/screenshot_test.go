package screenshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddit-video-maker/internal/logging"
)

func TestNewCapturerDefaults(t *testing.T) {
	c := NewCapturer(logging.Discard())
	assert.Equal(t, PostSelector, c.Selector)
	assert.Equal(t, 90*time.Second, c.Timeout)
}

func TestTasks(t *testing.T) {
	c := NewCapturer(logging.Discard())
	var png []byte
	assert.Len(t, c.tasks("https://reddit.com/r/x/comments/1", true, &png), 5)
}

func TestCaptureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := filepath.Join(t.TempDir(), "post.png")
	err := NewCapturer(logging.Discard()).Capture(ctx, "https://reddit.com/r/x/comments/1", out, false)
	require.Error(t, err)
	assert.NoFileExists(t, out)
}
