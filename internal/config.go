package internal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/samber/lo"
)

const redacted = "REDACTED"

type Config struct {
	Reddit     RedditConfig     `toml:"reddit"`
	AI         AIConfig         `toml:"ai"`
	Settings   SettingsConfig   `toml:"settings"`
	Upload     UploadConfig     `toml:"upload"`
	S3         S3Config         `toml:"s3"`
	Paths      PathsConfig      `toml:"paths"`
	Scheduling SchedulingConfig `toml:"scheduling"`
	Bot        BotConfig        `toml:"bot"`
}

type RedditConfig struct {
	Creds  RedditCreds  `toml:"creds"`
	Thread ThreadConfig `toml:"thread"`
}

type RedditCreds struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	UserAgent    string `toml:"user_agent"`
}

type ThreadConfig struct {
	Subreddit          string `toml:"subreddit"`
	PostID             string `toml:"post_id"`
	PostLang           string `toml:"post_lang"`
	MinComments        int    `toml:"min_comments"`
	MaxCommentLength   int    `toml:"max_comment_length"`
	MinCommentLength   int    `toml:"min_comment_length"`
	StorymodeMinLength int    `toml:"storymode_min_length"`
	StorymodeMaxLength int    `toml:"storymode_max_length"`
}

type AIConfig struct {
	Provider           string `toml:"provider"` // openai | gemini
	Model              string `toml:"model"`
	OpenAIAPIKey       string `toml:"openai_api_key"`
	OpenAIBaseURL      string `toml:"openai_base_url"`
	GeminiAPIKey       string `toml:"gemini_api_key"`
	SimilarityEnabled  bool   `toml:"ai_similarity_enabled"`
	SimilarityKeywords string `toml:"ai_similarity_keywords"`
	GenerateStory      bool   `toml:"generate_story"`
	StorySubject       string `toml:"story_subject"`
	StoryParagraphs    int    `toml:"story_paragraphs"`
	StoryLanguage      string `toml:"story_language"`
	TranscriptionModel string `toml:"transcription_model"`
	EmbeddingModel     string `toml:"embedding_model"`
}

type SettingsConfig struct {
	AllowNSFW           bool             `toml:"allow_nsfw"`
	Theme               string           `toml:"theme"`
	Storymode           bool             `toml:"storymode"`
	StorymodeMethod     int              `toml:"storymodemethod"`
	ResolutionW         int              `toml:"resolution_w"`
	ResolutionH         int              `toml:"resolution_h"`
	ChannelName         string           `toml:"channel_name"`
	TitleCard           string           `toml:"title_card"` // thumbnail | screenshot
	Subtitles           bool             `toml:"subtitles"`
	SubtitleWordsPerCue int              `toml:"subtitle_words_per_cue"`
	Shorts              bool             `toml:"shorts"`
	Debug               bool             `toml:"debug"`
	TTS                 TTSConfig        `toml:"tts"`
	Background          BackgroundConfig `toml:"background"`
}

type TTSConfig struct {
	VoiceChoice          string  `toml:"voice_choice"`
	PinVoice             bool    `toml:"pin_voice"`
	RandomVoice          bool    `toml:"random_voice"`
	SilenceDuration      float64 `toml:"silence_duration"`
	OpenAIVoice          string  `toml:"openai_voice"`
	OpenAIModel          string  `toml:"openai_model"`
	ElevenLabsAPIKey     string  `toml:"elevenlabs_api_key"`
	ElevenLabsVoiceName  string  `toml:"elevenlabs_voice_name"`
	ElevenLabsModel      string  `toml:"elevenlabs_model"`
	AWSPollyVoice        string  `toml:"aws_polly_voice"`
	AWSRegion            string  `toml:"aws_region"`
	StreamlabsPollyVoice string  `toml:"streamlabs_polly_voice"`
	TikTokVoice          string  `toml:"tiktok_voice"`
	TikTokSessionID      string  `toml:"tiktok_sessionid"`
	TikTokEndpoint       string  `toml:"tiktok_endpoint"`
	EspeakVoice          string  `toml:"espeak_voice"`
	GoogleLang           string  `toml:"google_lang"`
}

type BackgroundConfig struct {
	Video       string  `toml:"background_video"`
	Audio       string  `toml:"background_audio"`
	AudioVolume float64 `toml:"background_audio_volume"`
}

type UploadConfig struct {
	YouTube        bool     `toml:"youtube"`
	Telegram       bool     `toml:"telegram"`
	X              bool     `toml:"x"`
	PrivacyStatus  string   `toml:"privacy_status"`
	Category       string   `toml:"category"`
	Keywords       []string `toml:"keywords"`
	ClientSecrets  string   `toml:"client_secrets"`
	TokenFile      string   `toml:"token_file"`
	PublishHourUTC int      `toml:"publish_hour_utc"`

	TelegramToken  string `toml:"telegram_token"`
	TelegramChatID int64  `toml:"telegram_chat_id"`

	XConsumerKey       string `toml:"x_consumer_key"`
	XConsumerSecret    string `toml:"x_consumer_secret"`
	XAccessToken       string `toml:"x_access_token"`
	XAccessTokenSecret string `toml:"x_access_token_secret"`
}

type S3Config struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Prefix    string `toml:"prefix"`
	VideosKey string `toml:"videos_key"`
}

type PathsConfig struct {
	Assets        string `toml:"assets"`
	Temp          string `toml:"temp"`
	Results       string `toml:"results"`
	Backgrounds   string `toml:"backgrounds"`
	VideosJSON    string `toml:"videos_json"`
	ErrorsLog     string `toml:"errors_log"`
	ThumbnailBase string `toml:"thumbnail_base"`
	Font          string `toml:"font"`
}

type SchedulingConfig struct {
	Cron string `toml:"cron"`
}

// BotConfig controls the Telegram control bot started by serve. It uses
// upload.telegram_token.
type BotConfig struct {
	Enabled     bool  `toml:"enabled"`
	AdminChatID int64 `toml:"admin_chat_id"`
}

// Default returns the configuration used when config.toml omits a key.
func Default() Config {
	return Config{
		Reddit: RedditConfig{
			Creds: RedditCreds{UserAgent: "golang:reddit-video-maker:v1.0 (by /u/reddit-video-maker)"},
			Thread: ThreadConfig{
				Subreddit:          "askreddit",
				MinComments:        20,
				MaxCommentLength:   500,
				MinCommentLength:   1,
				StorymodeMinLength: 600,
				StorymodeMaxLength: 900,
			},
		},
		AI: AIConfig{
			Provider:           "openai",
			Model:              "gpt-4o",
			StoryParagraphs:    5,
			StoryLanguage:      "English",
			StorySubject:       "create a reddit story that is interesting",
			TranscriptionModel: "whisper-1",
			EmbeddingModel:     "text-embedding-3-small",
		},
		Settings: SettingsConfig{
			Theme:               "dark",
			Storymode:           true,
			StorymodeMethod:     1,
			ResolutionW:         1080,
			ResolutionH:         1920,
			ChannelName:         "Reddit Tales",
			TitleCard:           "thumbnail",
			Subtitles:           true,
			SubtitleWordsPerCue: 1,
			Shorts:              true,
			TTS: TTSConfig{
				VoiceChoice:          "gpt",
				RandomVoice:          true,
				SilenceDuration:      0.3,
				OpenAIVoice:          "nova",
				OpenAIModel:          "tts-1",
				ElevenLabsVoiceName:  "Bella",
				ElevenLabsModel:      "eleven_multilingual_v1",
				AWSPollyVoice:        "Matthew",
				AWSRegion:            "us-east-1",
				StreamlabsPollyVoice: "Matthew",
				TikTokVoice:          "en_us_001",
				EspeakVoice:          "en",
				GoogleLang:           "en",
			},
			Background: BackgroundConfig{AudioVolume: 0.15},
		},
		Upload: UploadConfig{
			YouTube:        true,
			PrivacyStatus:  "private",
			Category:       "24",
			Keywords:       []string{"redditstories", "reddit", "redditstorytimes", "redditreadings", "askreddit"},
			ClientSecrets:  "client_secrets.json",
			TokenFile:      "token.json",
			PublishHourUTC: 15,
		},
		S3: S3Config{
			Prefix:    "videos/",
			VideosKey: "videos.json",
		},
		Paths: PathsConfig{
			Assets:        "assets",
			Temp:          "assets/temp",
			Results:       "results",
			Backgrounds:   "assets/backgrounds",
			VideosJSON:    "video_creation/data/videos.json",
			ErrorsLog:     "errors.log",
			ThumbnailBase: "assets/thumbnail.png",
			Font:          "fonts/Roboto-Bold.ttf",
		},
		Scheduling: SchedulingConfig{Cron: "0 0 15 * * *"},
	}
}

// LoadConfig reads config.toml at path on top of Default and then applies
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Reddit.Creds.ClientID = firstNonEmpty(os.Getenv("REDDIT_CLIENT_ID"), c.Reddit.Creds.ClientID)
	c.Reddit.Creds.ClientSecret = firstNonEmpty(os.Getenv("REDDIT_CLIENT_SECRET"), c.Reddit.Creds.ClientSecret)
	c.Reddit.Creds.Username = firstNonEmpty(os.Getenv("REDDIT_USERNAME"), c.Reddit.Creds.Username)
	c.Reddit.Creds.Password = firstNonEmpty(os.Getenv("REDDIT_PASSWORD"), c.Reddit.Creds.Password)

	c.AI.OpenAIAPIKey = firstNonEmpty(os.Getenv("OPENAI_API_KEY"), c.AI.OpenAIAPIKey)
	c.AI.GeminiAPIKey = firstNonEmpty(os.Getenv("GOOGLE_API_KEY"), os.Getenv("GEMINI_API_KEY"), c.AI.GeminiAPIKey)

	c.Settings.TTS.ElevenLabsAPIKey = firstNonEmpty(os.Getenv("ELEVENLABS_API_KEY"), c.Settings.TTS.ElevenLabsAPIKey)
	c.Settings.TTS.TikTokSessionID = firstNonEmpty(os.Getenv("TIKTOK_SESSIONID"), c.Settings.TTS.TikTokSessionID)

	c.S3.Endpoint = firstNonEmpty(os.Getenv("S3_ENDPOINT"), c.S3.Endpoint)
	c.S3.Region = firstNonEmpty(os.Getenv("S3_REGION"), c.S3.Region)
	c.S3.Bucket = firstNonEmpty(os.Getenv("S3_BUCKET"), c.S3.Bucket)
	c.S3.AccessKey = firstNonEmpty(os.Getenv("S3_ACCESS_KEY"), os.Getenv("S3_ACCESS_KEY_ID"), c.S3.AccessKey)
	c.S3.SecretKey = firstNonEmpty(os.Getenv("S3_SECRET_ACCESS_KEY"), os.Getenv("S3_SECRET_ACCESS_KEY_ID"), c.S3.SecretKey)

	c.Upload.TelegramToken = firstNonEmpty(os.Getenv("TELEGRAM_BOT_TOKEN"), c.Upload.TelegramToken)
	if v := firstNonEmpty(os.Getenv("POSTS_CHATID"), os.Getenv("POSTS_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Upload.TelegramChatID = n
		}
	}
	if v := os.Getenv("ADMIN_CHAT_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Bot.AdminChatID = n
		}
	}
	c.Upload.XConsumerKey = firstNonEmpty(os.Getenv("X_CONSUMER_KEY"), c.Upload.XConsumerKey)
	c.Upload.XConsumerSecret = firstNonEmpty(os.Getenv("X_CONSUMER_SECRET"), c.Upload.XConsumerSecret)
	c.Upload.XAccessToken = firstNonEmpty(os.Getenv("X_ACCESS_TOKEN"), c.Upload.XAccessToken)
	c.Upload.XAccessTokenSecret = firstNonEmpty(os.Getenv("X_ACCESS_TOKEN_SECRET"), c.Upload.XAccessTokenSecret)
}

// ApplyMode sets the length and resolution presets for shorts or long form
// videos, and the voice used for debug runs.
func (c *Config) ApplyMode(shorts, debug bool) {
	c.Settings.Shorts = shorts
	c.Settings.Debug = debug
	if shorts {
		c.Reddit.Thread.StorymodeMinLength = 600
		c.Reddit.Thread.StorymodeMaxLength = 900
		c.Settings.ResolutionW = 1080
		c.Settings.ResolutionH = 1920
	} else {
		c.Reddit.Thread.StorymodeMinLength = 5000
		c.Reddit.Thread.StorymodeMaxLength = 7500
		c.Settings.ResolutionW = 1920
		c.Settings.ResolutionH = 1080
	}

	switch {
	case debug:
		c.Settings.TTS.VoiceChoice = "streamlabspolly"
	case !c.Settings.TTS.PinVoice:
		c.Settings.TTS.VoiceChoice = "gpt"
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Settings.StorymodeMethod != 0 && c.Settings.StorymodeMethod != 1 {
		errs = append(errs, fmt.Errorf("settings.storymodemethod must be 0 or 1, got %d", c.Settings.StorymodeMethod))
	}
	if c.Settings.ResolutionW <= 0 || c.Settings.ResolutionH <= 0 {
		errs = append(errs, errors.New("settings.resolution_w and resolution_h must be positive"))
	}
	if v := c.Settings.Background.AudioVolume; v < 0 || v > 2 {
		errs = append(errs, fmt.Errorf("settings.background.background_audio_volume must be within 0..2, got %v", v))
	}
	if c.Settings.TTS.SilenceDuration < 0 {
		errs = append(errs, errors.New("settings.tts.silence_duration must not be negative"))
	}
	if !lo.Contains([]string{"public", "private", "unlisted"}, c.Upload.PrivacyStatus) {
		errs = append(errs, fmt.Errorf("upload.privacy_status %q is not one of public, private, unlisted", c.Upload.PrivacyStatus))
	}
	if c.Reddit.Thread.StorymodeMinLength > c.Reddit.Thread.StorymodeMaxLength {
		errs = append(errs, errors.New("reddit.thread.storymode_min_length exceeds storymode_max_length"))
	}
	if c.Settings.TitleCard != "thumbnail" && c.Settings.TitleCard != "screenshot" {
		errs = append(errs, fmt.Errorf("settings.title_card %q is not one of thumbnail, screenshot", c.Settings.TitleCard))
	}
	if c.S3.Enabled && (c.S3.Endpoint == "" || c.S3.Region == "" || c.S3.Bucket == "" || c.S3.AccessKey == "" || c.S3.SecretKey == "") {
		errs = append(errs, errors.New("s3 is enabled but S3_* settings are incomplete"))
	}
	if c.Bot.Enabled && c.Upload.TelegramToken == "" {
		errs = append(errs, errors.New("bot is enabled but TELEGRAM_BOT_TOKEN is empty"))
	}
	return errors.Join(errs...)
}

// Redacted returns a copy safe to print in crash reports.
func (c Config) Redacted() Config {
	hide := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	hide(&c.Reddit.Creds.ClientSecret)
	hide(&c.Reddit.Creds.Password)
	hide(&c.AI.OpenAIAPIKey)
	hide(&c.AI.GeminiAPIKey)
	hide(&c.Settings.TTS.ElevenLabsAPIKey)
	hide(&c.Settings.TTS.TikTokSessionID)
	hide(&c.S3.AccessKey)
	hide(&c.S3.SecretKey)
	hide(&c.Upload.TelegramToken)
	hide(&c.Upload.XConsumerKey)
	hide(&c.Upload.XConsumerSecret)
	hide(&c.Upload.XAccessToken)
	hide(&c.Upload.XAccessTokenSecret)
	return c
}

// Subreddit returns the configured subreddit without the r/ prefix.
func (c Config) Subreddit() string {
	s := strings.TrimSpace(c.Reddit.Thread.Subreddit)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "r/"), "/r/")
	if s == "" {
		return "askreddit"
	}
	return s
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}
