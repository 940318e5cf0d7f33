package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"reddit-video-maker/internal/logging"
)

const elevenLabsBaseURL = "wss://api.elevenlabs.io/v1/text-to-speech"

// elevenLabsVoices maps the premade voice names to their ids.
var elevenLabsVoices = map[string]string{
	"Adam":   "pNInz6obpgDQGcFmaJgB",
	"Antoni": "ErXwobaYiN019PkySvjV",
	"Arnold": "VR6AewLTigWG4xSOukaG",
	"Bella":  "EXAVITQu4vr4xnSDxMaL",
	"Domi":   "AZnzlk1XvdvUeBnXmlld",
	"Elli":   "MF3mGyEYCl7XYWbV9V6O",
	"Josh":   "TxGEqnHWrfWFTfGW9XjX",
	"Rachel": "21m00Tcm4TlvDq8ikWAM",
	"Sam":    "yoZ06aMxZJJ28mfd3POQ",
}

var elevenLabsVoiceNames = []string{"Adam", "Antoni", "Arnold", "Bella", "Domi", "Elli", "Josh", "Rachel", "Sam"}

type (
	elBOSMessage struct {
		Text          string          `json:"text"`
		VoiceSettings elVoiceSettings `json:"voice_settings"`
	}

	elVoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	}

	elTextMessage struct {
		Text string `json:"text"`
	}

	elServerMessage struct {
		Audio   string `json:"audio"`
		IsFinal bool   `json:"isFinal"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
)

// ElevenLabs streams speech over the stream-input websocket.
type ElevenLabs struct {
	BaseURL string

	apiKey string
	voice  string
	model  string
	log    *logging.Logger
}

func NewElevenLabs(apiKey, voice, model string, log *logging.Logger) *ElevenLabs {
	if voice == "" {
		voice = "Bella"
	}
	if model == "" {
		model = "eleven_multilingual_v1"
	}
	return &ElevenLabs{BaseURL: elevenLabsBaseURL, apiKey: apiKey, voice: voice, model: model, log: log}
}

func (e *ElevenLabs) Name() string  { return "ElevenLabs" }
func (e *ElevenLabs) MaxChars() int { return 2500 }

// voiceID resolves a premade voice name (any case) or passes a raw id through.
func voiceID(name string) string {
	for n, id := range elevenLabsVoices {
		if strings.EqualFold(n, name) {
			return id
		}
	}
	return name
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text, outPath string, randomVoice bool) error {
	voice := pickVoice(elevenLabsVoiceNames, e.voice, randomVoice)
	endpoint := fmt.Sprintf("%s/%s/stream-input?model_id=%s&output_format=mp3_44100_128",
		strings.TrimSuffix(e.BaseURL, "/"), url.PathEscape(voiceID(voice)), url.QueryEscape(e.model))

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	conn, resp, err := dialer.DialContext(ctx, endpoint, http.Header{"xi-api-key": {e.apiKey}})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("elevenlabs dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("elevenlabs dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for _, msg := range []any{
		elBOSMessage{Text: " ", VoiceSettings: elVoiceSettings{Stability: 0.5, SimilarityBoost: 0.75}},
		elTextMessage{Text: text + " "},
		elTextMessage{Text: ""},
	} {
		if err := e.send(conn, msg); err != nil {
			return err
		}
	}

	var audio bytes.Buffer
	for {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && audio.Len() > 0 {
				break
			}
			return fmt.Errorf("elevenlabs read: %w", err)
		}

		var msg elServerMessage
		if err := sonic.Unmarshal(payload, &msg); err != nil {
			e.log.Warnf("tts: elevenlabs sent an unreadable message: %v", err)
			continue
		}
		if msg.Error != "" {
			return fmt.Errorf("elevenlabs: %s: %s", msg.Error, msg.Message)
		}
		if msg.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				return fmt.Errorf("elevenlabs audio chunk: %w", err)
			}
			audio.Write(chunk)
		}
		if msg.IsFinal {
			break
		}
	}

	if audio.Len() == 0 {
		return errors.New("elevenlabs: stream ended without audio")
	}
	return os.WriteFile(outPath, audio.Bytes(), 0o644)
}

func (e *ElevenLabs) send(conn *websocket.Conn, v any) error {
	b, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("elevenlabs write: %w", err)
	}
	return nil
}
