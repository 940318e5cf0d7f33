package background

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/mowshon/moviego"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/media"
	"reddit-video-maker/internal/textproc"
)

// Prepared lists the background files cut for one thread. Audio is empty
// when the background music is muted.
type Prepared struct {
	Video   string
	Audio   string
	Cropped string
}

// Preparer cuts the backgrounds to the narration length and crops the video
// to the output aspect ratio.
type Preparer struct {
	tempDir string
	volume  float64
	rnd     *rand.Rand
	log     *logging.Logger

	probe    media.Prober
	cutVideo func(in, out string, start, end int) error
	run      func(ctx context.Context, stream *ffmpeg.Stream) error
}

func NewPreparer(tempDir string, volume float64, rnd *rand.Rand, log *logging.Logger) *Preparer {
	return &Preparer{
		tempDir:  tempDir,
		volume:   volume,
		rnd:      rnd,
		log:      log,
		probe:    media.Probe,
		cutVideo: subClip,
		run: func(ctx context.Context, stream *ffmpeg.Stream) error {
			return media.Run(ctx, stream, log)
		},
	}
}

// Prepare writes background.mp3, background.mp4 and background_noaudio.mp4
// under <temp>/<threadID>/.
func (p *Preparer) Prepare(ctx context.Context, choice Choice, length int, threadID string, w, h int) (*Prepared, error) {
	dir := filepath.Join(p.tempDir, textproc.SafeID(threadID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	out := &Prepared{
		Video:   filepath.Join(dir, "background.mp4"),
		Cropped: filepath.Join(dir, "background_noaudio.mp4"),
	}

	if p.volume != 0 {
		if choice.Audio.Path == "" {
			return nil, fmt.Errorf("background audio is enabled but no track was downloaded")
		}
		start, err := p.window(choice.Audio.Path, length)
		if err != nil {
			return nil, fmt.Errorf("background audio: %w", err)
		}
		out.Audio = filepath.Join(dir, "background.mp3")
		p.log.Infof("background: cutting audio %s at %ds", choice.Audio.Option.Name, start)
		if err := p.run(ctx, audioCutStream(choice.Audio.Path, out.Audio, start, length)); err != nil {
			return nil, fmt.Errorf("cut background audio: %w", err)
		}
	}

	start, err := p.window(choice.Video.Path, length)
	if err != nil {
		return nil, fmt.Errorf("background video: %w", err)
	}
	p.log.Infof("background: cutting video %s at %ds", choice.Video.Option.Name, start)
	if err := p.cutVideo(choice.Video.Path, out.Video, start, start+length); err != nil {
		return nil, fmt.Errorf("cut background video: %w", err)
	}

	if err := p.run(ctx, cropStream(out.Video, out.Cropped, w, h, choice.Video.Option.Position)); err != nil {
		return nil, fmt.Errorf("crop background video: %w", err)
	}
	return out, nil
}

func (p *Preparer) window(path string, length int) (int, error) {
	d, err := p.probe(path)
	if err != nil {
		return 0, err
	}
	start, _, err := StartAndEndTimes(length, int(d), p.rnd)
	return start, err
}

func audioCutStream(in, out string, start, length int) *ffmpeg.Stream {
	return ffmpeg.Input(in, ffmpeg.KwArgs{"ss": start, "t": length}).
		Output(out, ffmpeg.KwArgs{"c:a": "libmp3lame", "b:a": "192k"})
}

// cropStream crops to the w:h aspect at full input height. A numeric
// position sets the left edge; anything else keeps the crop centered.
func cropStream(in, out string, w, h int, position string) *ffmpeg.Stream {
	args := ffmpeg.Args{fmt.Sprintf("ih*(%d/%d)", w, h), "ih"}
	if x, err := strconv.Atoi(position); err == nil {
		args = append(args, strconv.Itoa(x), "0")
	}
	return ffmpeg.Input(in).
		Filter("crop", args).
		Output(out, ffmpeg.KwArgs{
			"an":      "",
			"c:v":     "h264",
			"b:v":     "20M",
			"b:a":     "192k",
			"threads": runtime.NumCPU(),
		})
}

func subClip(in, out string, start, end int) error {
	vid, err := safeLoadVideo(in)
	if err != nil {
		return err
	}
	return vid.SubClip(float64(start), float64(end)).Output(out).Run()
}

// safeLoadVideo wraps moviego.Load to catch panics from the library
func safeLoadVideo(path string) (vid moviego.Video, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("moviego.Load panicked: %v", r)
		}
	}()
	vid, err = moviego.Load(path)
	return
}
