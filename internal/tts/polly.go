package tts

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

type pollyAPI interface {
	SynthesizeSpeech(ctx context.Context, in *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// AWSPolly uses the credentials from the default AWS chain (env, profile).
type AWSPolly struct {
	api   pollyAPI
	voice string
}

func NewAWSPolly(ctx context.Context, region, voice string) (*AWSPolly, error) {
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("aws polly config: %w", err)
	}
	return newAWSPolly(polly.NewFromConfig(awsCfg), voice), nil
}

func newAWSPolly(api pollyAPI, voice string) *AWSPolly {
	if voice == "" {
		voice = "Matthew"
	}
	return &AWSPolly{api: api, voice: voice}
}

func (p *AWSPolly) Name() string  { return "AWSPolly" }
func (p *AWSPolly) MaxChars() int { return 3000 }

func (p *AWSPolly) Synthesize(ctx context.Context, text, outPath string, randomVoice bool) error {
	voice := pickVoice(pollyVoices, p.voice, randomVoice)
	out, err := p.api.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		OutputFormat: types.OutputFormatMp3,
		Text:         aws.String(text),
		VoiceId:      types.VoiceId(voice),
		Engine:       types.EngineNeural,
	})
	if err != nil {
		return fmt.Errorf("aws polly: %w", err)
	}
	if out.AudioStream == nil {
		return fmt.Errorf("aws polly: empty audio stream")
	}
	defer out.AudioStream.Close()
	return writeStream(outPath, out.AudioStream)
}
