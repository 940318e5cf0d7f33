package tts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"unicode/utf8"
)

const googleTranslateURL = "https://translate.google.com/translate_tts"

// GoogleTranslate uses the public translate_tts endpoint.
type GoogleTranslate struct {
	URL string

	client *http.Client
	lang   string
}

func NewGoogleTranslate(client *http.Client, lang string) *GoogleTranslate {
	if lang == "" {
		lang = "en"
	}
	return &GoogleTranslate{URL: googleTranslateURL, client: client, lang: lang}
}

func (g *GoogleTranslate) Name() string  { return "GoogleTranslate" }
func (g *GoogleTranslate) MaxChars() int { return 200 }

func (g *GoogleTranslate) Synthesize(ctx context.Context, text, outPath string, _ bool) error {
	q := url.Values{
		"ie":      {"UTF-8"},
		"client":  {"tw-ob"},
		"tl":      {g.lang},
		"q":       {text},
		"textlen": {strconv.Itoa(utf8.RuneCountInString(text))},
	}
	if err := download(ctx, g.client, g.URL+"?"+q.Encode(), outPath); err != nil {
		return fmt.Errorf("google translate tts: %w", err)
	}
	return nil
}
