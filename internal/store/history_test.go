package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/model"
)

type memStore struct {
	data     map[string]model.DoneVideosIndex
	writeErr error
	writes   int
}

func newMemStore() *memStore { return &memStore{data: map[string]model.DoneVideosIndex{}} }

func (m *memStore) ReadJSON(_ context.Context, key string, out any) (bool, error) {
	v, ok := m.data[key]
	if !ok {
		return false, nil
	}
	*(out.(*model.DoneVideosIndex)) = v
	return true, nil
}

func (m *memStore) WriteJSON(_ context.Context, key string, v any) error {
	m.writes++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data[key] = v.(model.DoneVideosIndex)
	return nil
}

func TestHistoryCreatesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	h := NewHistory(LocalStore{Root: dir}, "data/videos.json", logging.Discard())

	done, err := h.IsDone(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, done)

	b, err := os.ReadFile(filepath.Join(dir, "data", "videos.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))
}

func TestHistorySave(t *testing.T) {
	ctx := context.Background()
	h := NewHistory(LocalStore{Root: t.TempDir()}, "videos.json", logging.Discard())
	now := time.Unix(1700000000, 0)
	entry := NewEntry("abc", "My Title", "My Title.mp4", "bbswitzer", now)
	assert.Equal(t, "1700000000", entry.Time)

	changed, err := h.Save(ctx, entry, false)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = h.Save(ctx, entry, false)
	require.NoError(t, err)
	assert.False(t, changed, "second save of the same id is a no-op")

	idx, err := h.Load(ctx)
	require.NoError(t, err)
	require.Len(t, idx.Items, 1)
	assert.Equal(t, entry, idx.Items[0])

	done, err := h.IsDone(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestHistorySaveSkipsDebug(t *testing.T) {
	ctx := context.Background()
	mem := newMemStore()
	h := NewHistory(mem, "videos.json", logging.Discard())

	changed, err := h.Save(ctx, model.DoneVideo{ID: "x"}, true)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Zero(t, mem.writes)
}

func TestHistoryMirrorFailureIsNonCritical(t *testing.T) {
	ctx := context.Background()
	mirror := newMemStore()
	mirror.writeErr = errors.New("s3 down")
	h := NewHistory(newMemStore(), "videos.json", logging.Discard()).WithMirror(mirror, "remote/videos.json")

	changed, err := h.Save(ctx, model.DoneVideo{ID: "x"}, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, mirror.writes)
}

func TestHistorySync(t *testing.T) {
	ctx := context.Background()
	primary := newMemStore()
	primary.data["videos.json"] = model.DoneVideosIndex{Items: []model.DoneVideo{{ID: "a"}, {ID: "b"}}}
	mirror := newMemStore()
	mirror.data["remote.json"] = model.DoneVideosIndex{Items: []model.DoneVideo{{ID: "b"}, {ID: "c"}}}
	h := NewHistory(primary, "videos.json", logging.Discard()).WithMirror(mirror, "remote.json")

	addedPrimary, addedMirror, err := h.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, addedPrimary)
	assert.Equal(t, 1, addedMirror)
	assert.Len(t, primary.data["videos.json"].Items, 3)
	assert.Len(t, mirror.data["remote.json"].Items, 3)
}

func TestHistorySyncWithoutMirror(t *testing.T) {
	h := NewHistory(newMemStore(), "videos.json", logging.Discard())
	_, _, err := h.Sync(context.Background())
	assert.Error(t, err)
}
