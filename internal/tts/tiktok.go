package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/tidwall/gjson"
)

const tiktokURL = "https://api16-normal-c-useast1a.tiktokv.com/media/api/text/speech/invoke/"

var tiktokVoices = []string{
	"en_us_001", "en_us_006", "en_us_007", "en_us_009", "en_us_010",
	"en_uk_001", "en_uk_003", "en_au_001", "en_au_002",
	"en_us_ghostface", "en_us_chewbacca", "en_us_c3po", "en_us_stitch", "en_us_stormtrooper", "en_us_rocket",
}

type TikTok struct {
	URL string

	client    *http.Client
	sessionID string
	voice     string
}

func NewTikTok(client *http.Client, sessionID, voice, endpoint string) *TikTok {
	if voice == "" {
		voice = "en_us_001"
	}
	if endpoint == "" {
		endpoint = tiktokURL
	}
	return &TikTok{URL: endpoint, client: client, sessionID: sessionID, voice: voice}
}

func (t *TikTok) Name() string  { return "TikTok" }
func (t *TikTok) MaxChars() int { return 200 }

func (t *TikTok) Synthesize(ctx context.Context, text, outPath string, randomVoice bool) error {
	voice := pickVoice(tiktokVoices, t.voice, randomVoice)
	u, err := url.Parse(t.URL)
	if err != nil {
		return fmt.Errorf("tiktok endpoint: %w", err)
	}
	q := u.Query()
	q.Set("text_speaker", voice)
	q.Set("req_text", text)
	q.Set("speaker_map_type", "0")
	q.Set("aid", "1233")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "com.zhiliaoapp.musically/2022600030 (Linux; U; Android 7.1.2; es_ES; SM-G988N; Build/NRD90M;tt-ok/3.12.13.1)")
	req.Header.Set("Cookie", "sessionid="+t.sessionID)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("tiktok: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("tiktok: read response: %w", err)
	}

	if code := gjson.GetBytes(body, "status_code"); !code.Exists() || code.Int() != 0 {
		return fmt.Errorf("tiktok: status_code %s: %s", code.String(), gjson.GetBytes(body, "status_msg").String())
	}
	encoded := gjson.GetBytes(body, "data.v_str").String()
	if encoded == "" {
		return fmt.Errorf("tiktok: response carried no audio")
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("tiktok: decode audio: %w", err)
	}
	return os.WriteFile(outPath, audio, 0o644)
}
