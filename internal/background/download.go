package background

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/model"
)

const downloadRetries = 10

// Asset is a background option resolved to a file on disk.
type Asset struct {
	Path   string
	Option model.BackgroundOption
}

// Choice is the background pair used for one video. Audio is zero when the
// background music is muted.
type Choice struct {
	Video Asset
	Audio Asset
}

type fetchFunc func(ctx context.Context, mode, uri, out string) error

// Downloader keeps a local copy of every background it has been asked for
// under <dir>/<mode>/<credit>-<filename>.
type Downloader struct {
	dir   string
	log   *logging.Logger
	fetch fetchFunc
	// retryDelay is multiplied by the attempt number.
	retryDelay time.Duration
}

func NewDownloader(dir string, log *logging.Logger) *Downloader {
	d := &Downloader{dir: dir, log: log, retryDelay: 2 * time.Second}
	client := &youtube.Client{}
	d.fetch = func(ctx context.Context, mode, uri, out string) error {
		return fetchYouTube(ctx, client, mode, uri, out, log)
	}
	return d
}

// Path is where the option of mode is stored.
func (d *Downloader) Path(mode string, opt model.BackgroundOption) string {
	return filepath.Join(d.dir, mode, opt.Credit+"-"+opt.Filename)
}

// Ensure downloads opt unless it is already on disk.
func (d *Downloader) Ensure(ctx context.Context, mode string, opt model.BackgroundOption) (Asset, error) {
	asset := Asset{Path: d.Path(mode, opt), Option: opt}
	if fi, err := os.Stat(asset.Path); err == nil && fi.Size() > 0 {
		d.log.Debugf("background: %s %s already downloaded", mode, opt.Name)
		return asset, nil
	}
	if err := os.MkdirAll(filepath.Dir(asset.Path), 0o755); err != nil {
		return Asset{}, fmt.Errorf("create background dir: %w", err)
	}

	d.log.Infof("background: downloading %s %s from %s", mode, opt.Filename, opt.URI)
	var lastErr error
	for attempt := 1; attempt <= downloadRetries; attempt++ {
		lastErr = d.fetch(ctx, mode, opt.URI, asset.Path)
		if lastErr == nil {
			d.log.Infof("background: %s downloaded successfully", mode)
			return asset, nil
		}
		os.Remove(asset.Path)
		if ctx.Err() != nil {
			return Asset{}, ctx.Err()
		}
		d.log.Warnf("background: download attempt %d/%d failed: %v", attempt, downloadRetries, lastErr)
		if attempt < downloadRetries {
			select {
			case <-ctx.Done():
				return Asset{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * d.retryDelay):
			}
		}
	}
	return Asset{}, fmt.Errorf("download %s %s: %w", mode, opt.Name, lastErr)
}

// EnsureAll fetches the video and, when withAudio is set, the audio in
// parallel.
func (d *Downloader) EnsureAll(ctx context.Context, video, audio model.BackgroundOption, withAudio bool) (Choice, error) {
	var choice Choice
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := d.Ensure(gctx, ModeVideo, video)
		choice.Video = a
		return err
	})
	if withAudio {
		g.Go(func() error {
			a, err := d.Ensure(gctx, ModeAudio, audio)
			choice.Audio = a
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Choice{}, err
	}
	return choice, nil
}

func fetchYouTube(ctx context.Context, client *youtube.Client, mode, uri, out string, log *logging.Logger) error {
	video, err := client.GetVideoContext(ctx, uri)
	if err != nil {
		return fmt.Errorf("get video: %w", err)
	}

	var format *youtube.Format
	if mode == ModeVideo {
		format = bestVideoFormat(video.Formats)
	} else {
		formats := video.Formats.WithAudioChannels()
		if len(formats) > 0 {
			format = &formats[0]
		}
	}
	if format == nil {
		return fmt.Errorf("no %s formats for %s", mode, video.ID)
	}
	log.Debugf("background: %s uses itag %d (%s)", video.ID, format.ItagNo, format.MimeType)

	stream, _, err := client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}
	defer stream.Close()

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, stream); err != nil {
		f.Close()
		return fmt.Errorf("copy stream: %w", err)
	}
	return f.Close()
}

// bestVideoFormat picks the tallest mp4 video-only format up to 1080p,
// preferring the higher bitrate on ties.
func bestVideoFormat(formats youtube.FormatList) *youtube.Format {
	candidates := lo.Filter(formats, func(f youtube.Format, _ int) bool {
		return strings.HasPrefix(f.MimeType, "video/mp4") && f.AudioChannels == 0 && f.Height > 0 && f.Height <= 1080
	})
	if len(candidates) == 0 {
		return nil
	}
	best := lo.MaxBy(candidates, func(a, b youtube.Format) bool {
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		return a.Bitrate > b.Bitrate
	})
	return &best
}
