package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"reddit-video-maker/internal"
	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/media"
	"reddit-video-maker/internal/model"
	"reddit-video-maker/internal/textproc"
)

// maxCommentsLength caps comment narration, in seconds. The first two
// comments are always read.
const maxCommentsLength = 50.0

// Narration describes the audio produced for one thread.
type Narration struct {
	Dir           string
	TitlePath     string
	Clips         []string
	TitleDuration float64
	// Duration covers the title and every clip.
	Duration float64
}

// Paths returns the title followed by the body clips, in playback order.
func (n Narration) Paths() []string {
	return append([]string{n.TitlePath}, n.Clips...)
}

type Engine struct {
	provider    Provider
	tempDir     string
	storymode   bool
	method      int
	randomVoice bool
	silenceSecs float64
	log         *logging.Logger

	probe   media.Prober
	concat  func(ctx context.Context, inputs []string, out string) error
	silence func(ctx context.Context, out string, seconds float64) error
}

func NewEngine(p Provider, cfg internal.Config, log *logging.Logger) *Engine {
	return &Engine{
		provider:    p,
		tempDir:     cfg.Paths.Temp,
		storymode:   cfg.Settings.Storymode,
		method:      cfg.Settings.StorymodeMethod,
		randomVoice: cfg.Settings.TTS.RandomVoice,
		silenceSecs: cfg.Settings.TTS.SilenceDuration,
		log:         log,
		probe:       media.Probe,
		concat: func(ctx context.Context, inputs []string, out string) error {
			return media.ConcatAudio(ctx, inputs, out, log)
		},
		silence: func(ctx context.Context, out string, seconds float64) error {
			return media.Silence(ctx, out, seconds, log)
		},
	}
}

// Run writes <temp>/<id>/mp3/title.mp3 and the body clips for thread.
func (e *Engine) Run(ctx context.Context, thread *model.Thread) (*Narration, error) {
	n := &Narration{Dir: filepath.Join(e.tempDir, textproc.SafeID(thread.ID), "mp3")}
	if err := os.MkdirAll(n.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", n.Dir, err)
	}
	e.log.Infof("tts: saving text to mp3 files with %s", e.provider.Name())

	title, ok, err := e.say(ctx, n.Dir, "title", thread.Title)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("tts: title is empty after sanitizing")
	}
	n.TitlePath = title
	if n.TitleDuration, err = e.probe(title); err != nil {
		return nil, err
	}
	n.Duration = n.TitleDuration

	add := func(name, text string) error {
		clip, ok, err := e.say(ctx, n.Dir, name, text)
		if err != nil || !ok {
			return err
		}
		d, err := e.probe(clip)
		if err != nil {
			return err
		}
		n.Clips = append(n.Clips, clip)
		n.Duration += d
		return nil
	}

	switch {
	case !e.storymode:
		for i, c := range thread.Comments {
			if n.Duration > maxCommentsLength && i > 1 {
				e.log.Infof("tts: narration reached %.1fs, skipping the remaining %d comments", n.Duration, len(thread.Comments)-i)
				break
			}
			if err := add(fmt.Sprintf("%d", i), c.Body); err != nil {
				return nil, err
			}
		}
	case e.method == 0:
		if err := add("postaudio", strings.Join(thread.Content, "\n\n")); err != nil {
			return nil, err
		}
	default:
		for i, text := range thread.Content {
			if err := add(fmt.Sprintf("postaudio-%d", i), text); err != nil {
				return nil, err
			}
		}
	}

	if len(n.Clips) == 0 {
		return nil, errors.New("tts: thread produced no narration")
	}
	e.log.Infof("tts: saved %d clips, %.1fs of narration", len(n.Clips)+1, n.Duration)
	return n, nil
}

// say synthesizes text into dir/name.mp3. It reports false when text is
// blank after sanitizing. Text over the provider budget is split, each
// chunk synthesized and the parts joined with silence in between.
func (e *Engine) say(ctx context.Context, dir, name, text string) (string, bool, error) {
	clean := textproc.SanitizeText(text)
	if clean == "" {
		e.log.Debugf("tts: %s is blank after sanitizing, skipping", name)
		return "", false, nil
	}
	out := filepath.Join(dir, name+".mp3")

	limit := e.provider.MaxChars()
	if utf8.RuneCountInString(clean) <= limit {
		if err := e.provider.Synthesize(ctx, clean, out, e.randomVoice); err != nil {
			return "", false, fmt.Errorf("tts %s: %w", name, err)
		}
		return out, true, nil
	}

	chunks := textproc.SplitText(clean, limit)
	silence, err := e.silenceClip(ctx, dir)
	if err != nil {
		return "", false, err
	}

	var parts, inputs []string
	defer func() {
		for _, p := range parts {
			os.Remove(p)
		}
	}()
	for j, chunk := range chunks {
		part := filepath.Join(dir, fmt.Sprintf("%s-%d.part.mp3", name, j))
		if err := e.provider.Synthesize(ctx, chunk, part, e.randomVoice); err != nil {
			return "", false, fmt.Errorf("tts %s part %d: %w", name, j, err)
		}
		parts = append(parts, part)
		inputs = append(inputs, part)
		if silence != "" && j < len(chunks)-1 {
			inputs = append(inputs, silence)
		}
	}
	e.log.Debugf("tts: %s split into %d parts", name, len(parts))

	if err := e.concat(ctx, inputs, out); err != nil {
		return "", false, err
	}
	return out, true, nil
}

// silenceClip returns dir/silence.mp3, creating it on first use. It returns
// "" when no gap is configured.
func (e *Engine) silenceClip(ctx context.Context, dir string) (string, error) {
	if e.silenceSecs <= 0 {
		return "", nil
	}
	path := filepath.Join(dir, "silence.mp3")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := e.silence(ctx, path, e.silenceSecs); err != nil {
		return "", err
	}
	return path, nil
}
