package tts

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

var openAIVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

type OpenAITTS struct {
	api   *openai.Client
	model string
	voice string
}

func NewOpenAITTS(api *openai.Client, model, voice string) *OpenAITTS {
	if model == "" {
		model = string(openai.TTSModel1)
	}
	if voice == "" {
		voice = string(openai.VoiceNova)
	}
	return &OpenAITTS{api: api, model: model, voice: voice}
}

func (o *OpenAITTS) Name() string  { return "GPT" }
func (o *OpenAITTS) MaxChars() int { return 5000 }

func (o *OpenAITTS) Synthesize(ctx context.Context, text, outPath string, randomVoice bool) error {
	voice := pickVoice(openAIVoices, o.voice, randomVoice)
	resp, err := o.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()
	return writeStream(outPath, resp)
}
