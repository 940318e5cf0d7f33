package video

import (
	"context"
	"errors"
	"runtime"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/media"
)

// RenderInput names every file that goes into the final video.
type RenderInput struct {
	TitleAudio string
	StoryAudio string
	// BackgroundAudio is mixed in at BackgroundVolume unless empty or the
	// volume is zero.
	BackgroundAudio  string
	BackgroundVolume float64
	BackgroundVideo  string
	// TitleCard is centered over the background while the title is read.
	TitleCard     string
	TitleDuration float64
	// Subtitles is an SRT file burned into the picture; empty disables it.
	Subtitles string
	Width     int
	Height    int
	Output    string
}

func (in RenderInput) validate() error {
	switch {
	case in.TitleAudio == "" || in.StoryAudio == "":
		return errors.New("render: narration audio is missing")
	case in.BackgroundVideo == "":
		return errors.New("render: background video is missing")
	case in.TitleCard == "":
		return errors.New("render: title card is missing")
	case in.Width <= 0 || in.Height <= 0:
		return errors.New("render: invalid resolution")
	case in.Output == "":
		return errors.New("render: output path is missing")
	}
	return nil
}

// renderStream builds the graph: the background with the title card for
// the first TitleDuration seconds, then the plain background, optionally
// subtitled; narration concatenated and mixed with the background music.
func renderStream(in RenderInput) *ffmpeg.Stream {
	w, h := strconv.Itoa(in.Width), strconv.Itoa(in.Height)
	bg := ffmpeg.Input(in.BackgroundVideo)

	intro := bg.Trim(ffmpeg.KwArgs{"start": 0, "end": in.TitleDuration}).
		Filter("setpts", ffmpeg.Args{"PTS-STARTPTS"}).
		Filter("scale", ffmpeg.Args{w, h})
	intro = intro.Overlay(ffmpeg.Input(in.TitleCard), "", ffmpeg.KwArgs{
		"x": "(main_w-overlay_w)/2",
		"y": "(main_h-overlay_h)/2",
	}).Filter("setpts", ffmpeg.Args{"PTS-STARTPTS"})

	rest := bg.Trim(ffmpeg.KwArgs{"start": in.TitleDuration}).
		Filter("setpts", ffmpeg.Args{"PTS-STARTPTS"}).
		Filter("scale", ffmpeg.Args{w, h})

	picture := ffmpeg.Concat([]*ffmpeg.Stream{intro, rest}, ffmpeg.KwArgs{"v": 1, "a": 0})
	if in.Subtitles != "" {
		picture = picture.Filter("subtitles", ffmpeg.Args{in.Subtitles}, ffmpeg.KwArgs{"force_style": "Alignment=10"})
	}

	sound := ffmpeg.Concat([]*ffmpeg.Stream{
		ffmpeg.Input(in.TitleAudio).Audio(),
		ffmpeg.Input(in.StoryAudio).Audio(),
	}, ffmpeg.KwArgs{"v": 0, "a": 1})
	if in.BackgroundAudio != "" && in.BackgroundVolume != 0 {
		music := ffmpeg.Input(in.BackgroundAudio).
			Filter("volume", ffmpeg.Args{strconv.FormatFloat(in.BackgroundVolume, 'f', -1, 64)})
		sound = ffmpeg.Filter([]*ffmpeg.Stream{sound, music}, "amix", ffmpeg.Args{}, ffmpeg.KwArgs{"duration": "longest"})
	}

	return ffmpeg.Output([]*ffmpeg.Stream{picture, sound}, in.Output, ffmpeg.KwArgs{
		"vcodec":  "libx264",
		"acodec":  "aac",
		"b:v":     "20M",
		"b:a":     "192k",
		"threads": runtime.NumCPU(),
	})
}

// Render encodes the final video described by in.
func Render(ctx context.Context, in RenderInput, log *logging.Logger) error {
	if err := in.validate(); err != nil {
		return err
	}
	log.Infof("video: rendering %s", in.Output)
	return media.Run(ctx, renderStream(in), log)
}
