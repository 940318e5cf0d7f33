package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/model"
)

// History tracks which threads already became videos. The primary store is
// authoritative; the optional mirror (S3) receives a copy after each save.
type History struct {
	primary   JSONStore
	key       string
	mirror    JSONStore
	mirrorKey string
	log       *logging.Logger

	mu sync.Mutex
}

func NewHistory(primary JSONStore, key string, log *logging.Logger) *History {
	return &History{primary: primary, key: key, log: log}
}

// WithMirror attaches a secondary store that is written after the primary.
func (h *History) WithMirror(mirror JSONStore, key string) *History {
	h.mirror = mirror
	h.mirrorKey = key
	return h
}

// NewEntry builds the history record for a rendered video.
func NewEntry(id, redditTitle, filename, backgroundCredit string, now time.Time) model.DoneVideo {
	return model.DoneVideo{
		ID:               id,
		Time:             strconv.FormatInt(now.Unix(), 10),
		BackgroundCredit: backgroundCredit,
		RedditTitle:      redditTitle,
		Filename:         filename,
	}
}

// Load returns the current index, creating an empty one when none exists.
func (h *History) Load(ctx context.Context) (model.DoneVideosIndex, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadLocked(ctx)
}

func (h *History) loadLocked(ctx context.Context) (model.DoneVideosIndex, error) {
	var idx model.DoneVideosIndex
	found, err := h.primary.ReadJSON(ctx, h.key, &idx)
	if err != nil {
		return idx, fmt.Errorf("read %s: %w", h.key, err)
	}
	if !found {
		h.log.Infof("store: %s not found, creating an empty history", h.key)
		idx = model.DoneVideosIndex{Items: []model.DoneVideo{}}
		if err := h.primary.WriteJSON(ctx, h.key, idx); err != nil {
			return idx, fmt.Errorf("init %s: %w", h.key, err)
		}
	}
	return idx, nil
}

func (h *History) IsDone(ctx context.Context, id string) (bool, error) {
	idx, err := h.Load(ctx)
	if err != nil {
		return false, err
	}
	return idx.Contains(id), nil
}

// Save appends entry unless it is already present. Debug runs are never
// recorded. It reports whether the history changed.
func (h *History) Save(ctx context.Context, entry model.DoneVideo, debug bool) (bool, error) {
	if debug {
		h.log.Debugf("store: debug run, not recording %s", entry.ID)
		return false, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	idx, err := h.loadLocked(ctx)
	if err != nil {
		return false, err
	}
	if !idx.Add(entry) {
		h.log.Infof("store: %s already recorded", entry.ID)
		return false, nil
	}
	if err := h.primary.WriteJSON(ctx, h.key, idx); err != nil {
		return false, fmt.Errorf("write %s: %w", h.key, err)
	}
	h.log.Infof("store: recorded %s (%d videos total)", entry.ID, len(idx.Items))

	if h.mirror != nil {
		if err := h.mirror.WriteJSON(ctx, h.mirrorKey, idx); err != nil {
			h.log.Warnf("store: mirror write of %s failed (non-critical): %v", h.mirrorKey, err)
		}
	}
	return true, nil
}

// Sync merges the primary and mirror indexes so both hold the union.
// It returns how many entries each side gained.
func (h *History) Sync(ctx context.Context) (addedPrimary, addedMirror int, err error) {
	if h.mirror == nil {
		return 0, 0, fmt.Errorf("store: no mirror configured")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	local, err := h.loadLocked(ctx)
	if err != nil {
		return 0, 0, err
	}
	var remote model.DoneVideosIndex
	if _, err := h.mirror.ReadJSON(ctx, h.mirrorKey, &remote); err != nil {
		return 0, 0, fmt.Errorf("read mirror %s: %w", h.mirrorKey, err)
	}

	merged := model.DoneVideosIndex{Items: append([]model.DoneVideo{}, local.Items...)}
	addedPrimary = merged.Merge(remote)
	addedMirror = len(merged.Items) - len(remote.Items)

	if addedPrimary > 0 {
		if err := h.primary.WriteJSON(ctx, h.key, merged); err != nil {
			return 0, 0, fmt.Errorf("write %s: %w", h.key, err)
		}
	}
	if addedMirror > 0 {
		if err := h.mirror.WriteJSON(ctx, h.mirrorKey, merged); err != nil {
			return addedPrimary, 0, fmt.Errorf("write mirror %s: %w", h.mirrorKey, err)
		}
	}
	h.log.Infof("store: sync complete - primary +%d, mirror +%d, total %d", addedPrimary, addedMirror, len(merged.Items))
	return addedPrimary, addedMirror, nil
}
