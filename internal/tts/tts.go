// Package tts turns narration text into mp3 clips through pluggable
// text-to-speech backends.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"reddit-video-maker/internal"
	"reddit-video-maker/internal/logging"
)

var (
	ErrUnknownProvider = errors.New("tts: unknown provider")
	ErrMissingAPIKey   = errors.New("tts: missing api key")
)

// Provider synthesizes a single chunk of text, at most MaxChars runes long,
// into an mp3 file.
type Provider interface {
	Name() string
	MaxChars() int
	Synthesize(ctx context.Context, text, outPath string, randomVoice bool) error
}

// Deps are the shared clients handed to provider constructors.
type Deps struct {
	OpenAI *openai.Client
	HTTP   *http.Client
	Log    *logging.Logger
}

type constructor func(cfg internal.TTSConfig, d Deps) (Provider, error)

var registry = map[string]constructor{
	"gpt": func(cfg internal.TTSConfig, d Deps) (Provider, error) {
		if d.OpenAI == nil {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is required for GPT voices", ErrMissingAPIKey)
		}
		return NewOpenAITTS(d.OpenAI, cfg.OpenAIModel, cfg.OpenAIVoice), nil
	},
	"elevenlabs": func(cfg internal.TTSConfig, d Deps) (Provider, error) {
		if cfg.ElevenLabsAPIKey == "" {
			return nil, fmt.Errorf("%w: set ELEVENLABS_API_KEY to use ElevenLabs", ErrMissingAPIKey)
		}
		return NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceName, cfg.ElevenLabsModel, d.Log), nil
	},
	"streamlabspolly": func(cfg internal.TTSConfig, d Deps) (Provider, error) {
		return NewStreamlabsPolly(d.HTTP, cfg.StreamlabsPollyVoice), nil
	},
	"awspolly": func(cfg internal.TTSConfig, d Deps) (Provider, error) {
		return NewAWSPolly(context.Background(), cfg.AWSRegion, cfg.AWSPollyVoice)
	},
	"tiktok": func(cfg internal.TTSConfig, d Deps) (Provider, error) {
		if cfg.TikTokSessionID == "" {
			return nil, fmt.Errorf("%w: TikTok voices need TIKTOK_SESSIONID", ErrMissingAPIKey)
		}
		return NewTikTok(d.HTTP, cfg.TikTokSessionID, cfg.TikTokVoice, cfg.TikTokEndpoint), nil
	},
	"googletranslate": func(cfg internal.TTSConfig, d Deps) (Provider, error) {
		return NewGoogleTranslate(d.HTTP, cfg.GoogleLang), nil
	},
	"pyttsx": func(cfg internal.TTSConfig, d Deps) (Provider, error) {
		return NewEspeak(cfg.EspeakVoice), nil
	},
	"espeak": func(cfg internal.TTSConfig, d Deps) (Provider, error) {
		return NewEspeak(cfg.EspeakVoice), nil
	},
}

// New builds the provider registered under name. Lookup ignores case.
func New(name string, cfg internal.TTSConfig, d Deps) (Provider, error) {
	if d.HTTP == nil {
		d.HTTP = &http.Client{Timeout: 60 * time.Second}
	}
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownProvider, name, strings.Join(Names(), ", "))
	}
	return ctor(cfg, d)
}

// Names lists the registered provider keys in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func pickVoice(voices []string, configured string, random bool) string {
	if random && len(voices) > 0 {
		return voices[rand.Intn(len(voices))]
	}
	return configured
}

// writeStream copies r into path, replacing any previous file.
func writeStream(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// download fetches url into path.
func download(ctx context.Context, client *http.Client, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return writeStream(path, resp.Body)
}
