package video

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/lo"

	"reddit-video-maker/internal"
	"reddit-video-maker/internal/background"
	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/media"
	"reddit-video-maker/internal/model"
	"reddit-video-maker/internal/store"
	"reddit-video-maker/internal/textproc"
	"reddit-video-maker/internal/tts"
	"reddit-video-maker/internal/uploaders"
)

const maxTitleRunes = 100

type ThreadSource interface {
	Fetch(ctx context.Context, postID string) (*model.Thread, error)
}

type Narrator interface {
	Run(ctx context.Context, thread *model.Thread) (*tts.Narration, error)
}

type BackgroundChooser interface {
	Choose(mode, preferred string) (model.BackgroundOption, error)
}

type BackgroundFetcher interface {
	EnsureAll(ctx context.Context, video, audio model.BackgroundOption, withAudio bool) (background.Choice, error)
}

type BackgroundPreparer interface {
	Prepare(ctx context.Context, choice background.Choice, length int, threadID string, w, h int) (*background.Prepared, error)
}

// PostCapturer screenshots a post for the screenshot title card.
type PostCapturer interface {
	Capture(ctx context.Context, url, out string, dark bool) error
}

type Publisher interface {
	UploadToAll(ctx context.Context, req *uploaders.UploadRequest) map[string]*uploaders.UploadResult
}

type Recorder interface {
	Save(ctx context.Context, entry model.DoneVideo, debug bool) (bool, error)
}

// Archiver stores finished videos outside the results folder (S3).
type Archiver interface {
	PutFile(ctx context.Context, key, path, contentType string) error
}

// Deps are the pipeline stages. Capturer, Transcriber, Publisher and
// Archiver are optional.
type Deps struct {
	Source      ThreadSource
	Narrator    Narrator
	Catalog     BackgroundChooser
	Downloader  BackgroundFetcher
	Preparer    BackgroundPreparer
	Capturer    PostCapturer
	Transcriber WordTranscriber
	Publisher   Publisher
	History     Recorder
	Archiver    Archiver
}

// Options for a single run.
type Options struct {
	PostID string
	Debug  bool
}

// Result describes a finished run.
type Result struct {
	Thread    *model.Thread
	Video     string
	Thumbnail string
	Uploads   map[string]*uploaders.UploadResult
	Recorded  bool
	// Removed counts the temporary files deleted after rendering.
	Removed int
}

// Generator turns one Reddit thread into a narrated video.
type Generator struct {
	cfg  internal.Config
	deps Deps
	log  *logging.Logger

	thumbs *Thumbnailer
	now    func() time.Time
	concat func(ctx context.Context, inputs []string, out string) error
	render func(ctx context.Context, in RenderInput) error
}

// NewGenerator expects cfg to have the run mode applied already.
func NewGenerator(cfg internal.Config, deps Deps, log *logging.Logger) *Generator {
	return &Generator{
		cfg:    cfg,
		deps:   deps,
		log:    log,
		thumbs: NewThumbnailer(cfg.Paths.Font),
		now:    time.Now,
		concat: func(ctx context.Context, inputs []string, out string) error {
			return media.ConcatAudio(ctx, inputs, out, log)
		},
		render: func(ctx context.Context, in RenderInput) error {
			return Render(ctx, in, log)
		},
	}
}

// Make runs the whole pipeline: thread, narration, backgrounds, title card,
// subtitles, render, upload and bookkeeping. The thread's temp folder is
// removed whatever the outcome.
func (g *Generator) Make(ctx context.Context, opts Options) (*Result, error) {
	thread, err := g.deps.Source.Fetch(ctx, opts.PostID)
	if err != nil {
		return nil, fmt.Errorf("fetch thread: %w", err)
	}
	id := textproc.SafeID(thread.ID)
	g.log.Infof("video: making a video for %s %q", thread.ID, thread.Title)

	res := &Result{Thread: thread}
	defer func() {
		n, err := Cleanup(g.cfg.Paths.Temp, thread.ID)
		if err != nil {
			g.log.Warnf("video: cleanup of %s failed: %v", id, err)
			return
		}
		res.Removed = n
		g.log.Infof("video: removed %d temporary files", n)
	}()

	narration, err := g.deps.Narrator.Run(ctx, thread)
	if err != nil {
		return res, fmt.Errorf("narration: %w", err)
	}
	length := int(math.Ceil(narration.Duration))
	g.log.Infof("video: video will be %d seconds long", length)

	bgCfg := g.cfg.Settings.Background
	videoOpt, err := g.deps.Catalog.Choose(background.ModeVideo, bgCfg.Video)
	if err != nil {
		return res, err
	}
	audioOpt, err := g.deps.Catalog.Choose(background.ModeAudio, bgCfg.Audio)
	if err != nil {
		return res, err
	}
	choice, err := g.deps.Downloader.EnsureAll(ctx, videoOpt, audioOpt, bgCfg.AudioVolume != 0)
	if err != nil {
		return res, fmt.Errorf("download backgrounds: %w", err)
	}

	w, h := g.cfg.Settings.ResolutionW, g.cfg.Settings.ResolutionH
	prepared, err := g.deps.Preparer.Prepare(ctx, choice, length, thread.ID, w, h)
	if err != nil {
		return res, fmt.Errorf("prepare background: %w", err)
	}

	tempDir := filepath.Join(g.cfg.Paths.Temp, id)
	storyAudio := filepath.Join(tempDir, "audio.mp3")
	if err := g.concat(ctx, narration.Clips, storyAudio); err != nil {
		return res, fmt.Errorf("join narration: %w", err)
	}

	resultsDir := filepath.Join(g.cfg.Paths.Results, id)
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return res, fmt.Errorf("create %s: %w", resultsDir, err)
	}
	title := textproc.NormalizeName(thread.Title)

	card, err := g.titleCard(ctx, thread, title, resultsDir, w, h)
	if err != nil {
		return res, err
	}
	res.Thumbnail = filepath.Join(resultsDir, "thumbnail.png")
	if err := CropAndResize(card, res.Thumbnail, 1920, 1080); err != nil {
		return res, fmt.Errorf("thumbnail: %w", err)
	}

	var subtitles string
	if g.cfg.Settings.Subtitles {
		if g.deps.Transcriber == nil {
			g.log.Warnf("video: subtitles are enabled but no transcriber is configured, skipping them")
		} else {
			subtitles = filepath.Join(tempDir, "story_subtitles.srt")
			if err := WriteSRT(ctx, g.deps.Transcriber, storyAudio, subtitles, narration.TitleDuration, g.cfg.Settings.SubtitleWordsPerCue); err != nil {
				return res, fmt.Errorf("subtitles: %w", err)
			}
		}
	}

	filename := title + ".mp4"
	res.Video = filepath.Join(resultsDir, filename)
	err = g.render(ctx, RenderInput{
		TitleAudio:       narration.TitlePath,
		StoryAudio:       storyAudio,
		BackgroundAudio:  prepared.Audio,
		BackgroundVolume: bgCfg.AudioVolume,
		BackgroundVideo:  prepared.Cropped,
		TitleCard:        card,
		TitleDuration:    narration.TitleDuration,
		Subtitles:        subtitles,
		Width:            w,
		Height:           h,
		Output:           res.Video,
	})
	if err != nil {
		return res, fmt.Errorf("render: %w", err)
	}
	g.log.Infof("video: ✓ rendered %s", res.Video)

	if !opts.Debug && g.deps.Publisher != nil {
		res.Uploads = g.deps.Publisher.UploadToAll(ctx, g.uploadRequest(thread, res))
	}

	if g.deps.History != nil {
		entry := store.NewEntry(thread.ID, thread.Title, filename, videoOpt.Credit, g.now())
		if res.Recorded, err = g.deps.History.Save(ctx, entry, opts.Debug); err != nil {
			return res, fmt.Errorf("save history: %w", err)
		}
	}

	if !opts.Debug {
		g.archive(ctx, id, res)
	}

	g.log.Infof("video: done! the video is in %s", resultsDir)
	return res, nil
}

// titleCard writes the image shown while the title is read and returns its
// path. A failed screenshot falls back to the drawn card.
func (g *Generator) titleCard(ctx context.Context, thread *model.Thread, title, dir string, w, h int) (string, error) {
	out := filepath.Join(dir, "temp_thumbnail.png")

	if g.cfg.Settings.TitleCard == "screenshot" {
		switch {
		case g.deps.Capturer == nil:
			g.log.Warnf("video: screenshot title card requested but no browser is configured")
		case thread.URL == "":
			g.log.Warnf("video: %s has no post to screenshot, drawing the title card", thread.ID)
		default:
			shot := filepath.Join(dir, "post.png")
			err := g.deps.Capturer.Capture(ctx, thread.URL, shot, g.cfg.Settings.Theme == "dark")
			if err == nil {
				err = FitWithin(shot, out, w*9/10, h*9/10)
			}
			if err == nil {
				return out, nil
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			g.log.Warnf("video: screenshot failed, drawing the title card instead: %v", err)
		}
	}

	base, err := LoadBase(g.cfg.Paths.ThumbnailBase)
	if err != nil {
		return "", fmt.Errorf("load thumbnail base: %w", err)
	}
	if err := g.thumbs.CreateFancy(base, title, g.cfg.Settings.ChannelName, out, "#000000", defaultPadding, defaultWrap); err != nil {
		return "", fmt.Errorf("title card: %w", err)
	}
	return out, nil
}

func (g *Generator) uploadRequest(thread *model.Thread, res *Result) *uploaders.UploadRequest {
	up := g.cfg.Upload
	title := thread.Title
	if thread.SEOTitle != "" {
		title = thread.SEOTitle
	}
	title = string([]rune(title)[:min(len([]rune(title)), maxTitleRunes)])

	req := &uploaders.UploadRequest{
		VideoPath:   res.Video,
		Title:       title,
		Description: lo.Ternary(thread.SEODescription != "", thread.SEODescription, title),
		Caption:     title,
		Tags:        lo.Uniq(append(append([]string{}, up.Keywords...), thread.SEOKeywords...)),
		Privacy:     up.PrivacyStatus,
		PublishAt:   uploaders.PublishAt(g.now(), up.PublishHourUTC),
	}
	if g.cfg.Settings.Shorts {
		req.Caption += " #shorts"
	} else {
		req.ThumbnailPath = res.Thumbnail
	}
	return req
}

// archive copies the video and its thumbnail to the archive. Failures are
// logged only.
func (g *Generator) archive(ctx context.Context, id string, res *Result) {
	if g.deps.Archiver == nil {
		return
	}
	prefix := g.cfg.S3.Prefix + id + "/"
	files := map[string]string{
		prefix + filepath.Base(res.Video): res.Video,
		prefix + "thumbnail.png":          res.Thumbnail,
	}
	for key, path := range files {
		contentType := lo.Ternary(filepath.Ext(path) == ".png", "image/png", "video/mp4")
		if err := g.deps.Archiver.PutFile(ctx, key, path, contentType); err != nil {
			g.log.Warnf("video: archiving %s failed (non-critical): %v", key, err)
			continue
		}
		g.log.Infof("video: ✓ archived %s", key)
	}
}

// Cleanup removes the temp folder of threadID and reports how many files
// it held. A missing folder is not an error.
func Cleanup(tempRoot, threadID string) (int, error) {
	dir := filepath.Join(tempRoot, textproc.SafeID(threadID))
	count := 0
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return 0, err
	}
	return count, nil
}
