package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const streamlabsURL = "https://streamlabs.com/polly/speak"

// pollyVoices are the Polly voices offered by both Polly backends.
var pollyVoices = []string{
	"Brian", "Emma", "Russell", "Joey", "Matthew", "Joanna", "Kimberly", "Amy",
	"Geraint", "Nicole", "Justin", "Ivy", "Kendra", "Salli", "Raveena",
}

type StreamlabsPolly struct {
	URL string

	client *http.Client
	voice  string
}

func NewStreamlabsPolly(client *http.Client, voice string) *StreamlabsPolly {
	if voice == "" {
		voice = "Matthew"
	}
	return &StreamlabsPolly{URL: streamlabsURL, client: client, voice: voice}
}

func (s *StreamlabsPolly) Name() string  { return "StreamlabsPolly" }
func (s *StreamlabsPolly) MaxChars() int { return 550 }

func (s *StreamlabsPolly) Synthesize(ctx context.Context, text, outPath string, randomVoice bool) error {
	voice := pickVoice(pollyVoices, s.voice, randomVoice)
	form := url.Values{"voice": {voice}, "text": {text}, "service": {"polly"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("streamlabs: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("streamlabs: read response: %w", err)
	}

	speakURL := gjson.GetBytes(body, "speak_url").String()
	if resp.StatusCode != http.StatusOK || speakURL == "" {
		if msg := gjson.GetBytes(body, "error").String(); msg != "" {
			return fmt.Errorf("streamlabs: %s", msg)
		}
		return fmt.Errorf("streamlabs: status %d without speak_url", resp.StatusCode)
	}
	if err := download(ctx, s.client, speakURL, outPath); err != nil {
		return fmt.Errorf("streamlabs: %w", err)
	}
	return nil
}
