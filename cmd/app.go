package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sashabaranov/go-openai"

	"reddit-video-maker/internal"
	"reddit-video-maker/internal/ai"
	"reddit-video-maker/internal/background"
	"reddit-video-maker/internal/logging"
	"reddit-video-maker/internal/s3"
	"reddit-video-maker/internal/screenshot"
	"reddit-video-maker/internal/sources"
	"reddit-video-maker/internal/store"
	"reddit-video-maker/internal/tts"
	"reddit-video-maker/internal/uploaders"
	"reddit-video-maker/internal/video"
)

type app struct {
	gen     *video.Generator
	history *store.History
	s3      s3.Client
}

// buildApp wires every pipeline stage from cfg. cfg must have the run mode
// applied.
func buildApp(ctx context.Context, cfg internal.Config, log *logging.Logger) (*app, error) {
	a := &app{}

	if cfg.S3.Enabled {
		c, err := s3.New(cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
		a.s3 = c
	}

	a.history = store.NewHistory(store.LocalStore{}, cfg.Paths.VideosJSON, log)
	if a.s3 != nil {
		a.history.WithMirror(a.s3, cfg.S3.VideosKey)
	}

	var oa *openai.Client
	if cfg.AI.OpenAIAPIKey != "" {
		oa = ai.NewOpenAI(cfg.AI)
	}

	fetcher, err := buildFetcher(cfg, a.history, oa, log)
	if err != nil {
		return nil, err
	}

	provider, err := tts.New(cfg.Settings.TTS.VoiceChoice, cfg.Settings.TTS, tts.Deps{OpenAI: oa, Log: log})
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}
	log.Infof("tts: using %s", provider.Name())

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	catalog, err := background.LoadCatalog(cfg.Paths.Backgrounds, rnd)
	if err != nil {
		return nil, fmt.Errorf("background catalog: %w", err)
	}

	deps := video.Deps{
		Source:     fetcher,
		Narrator:   tts.NewEngine(provider, cfg, log),
		Catalog:    catalog,
		Downloader: background.NewDownloader(cfg.Paths.Backgrounds, log),
		Preparer:   background.NewPreparer(cfg.Paths.Temp, cfg.Settings.Background.AudioVolume, rnd, log),
		History:    a.history,
	}
	if cfg.Settings.TitleCard == "screenshot" {
		deps.Capturer = screenshot.NewCapturer(log)
	}
	if cfg.Settings.Subtitles {
		if oa != nil {
			deps.Transcriber = ai.NewTranscriber(oa, cfg.AI.TranscriptionModel, log)
		} else {
			log.Warnf("subtitles need OPENAI_API_KEY for transcription, the video will have none")
		}
	}
	if !cfg.Settings.Debug {
		manager := uploaders.NewManager(cfg.Upload, log)
		log.Infof("uploaders: enabled platforms %v", manager.AvailablePlatforms())
		deps.Publisher = manager
	}
	if a.s3 != nil {
		deps.Archiver = a.s3
		if !cfg.Settings.Debug {
			if _, _, err := a.history.Sync(ctx); err != nil {
				log.Warnf("store: history sync with s3 failed (non-critical): %v", err)
			}
		}
	}

	a.gen = video.NewGenerator(cfg, deps, log)
	return a, nil
}

func buildFetcher(cfg internal.Config, history *store.History, oa *openai.Client, log *logging.Logger) (*sources.Fetcher, error) {
	var api sources.RedditAPI
	if cfg.Reddit.Creds.ClientID != "" {
		c, err := sources.NewRedditAPI(cfg.Reddit.Creds)
		if err != nil {
			return nil, err
		}
		api = c
	} else if !cfg.AI.GenerateStory {
		return nil, fmt.Errorf("reddit credentials are missing, set REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET")
	}

	fetcher := sources.NewFetcher(cfg, api, history, log)

	if cfg.AI.GenerateStory || cfg.Reddit.Thread.PostLang != "" {
		client, err := ai.New(cfg.AI, log)
		switch {
		case err == nil:
			fetcher.WithStoryWriter(ai.NewStoryWriter(client, log)).WithTranslator(ai.NewTranslator(client))
		case cfg.AI.GenerateStory:
			return nil, fmt.Errorf("story generation: %w", err)
		default:
			log.Warnf("translation to %s disabled: %v", cfg.Reddit.Thread.PostLang, err)
		}
	}

	if cfg.AI.SimilarityEnabled {
		if oa == nil {
			log.Warnf("ai similarity needs OPENAI_API_KEY, using the hot listing order")
		} else {
			fetcher.WithEmbedder(ai.NewOpenAIEmbedder(oa, cfg.AI.EmbeddingModel))
		}
	}
	return fetcher, nil
}
