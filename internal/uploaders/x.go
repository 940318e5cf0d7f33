package uploaders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dghubble/oauth1"
	"github.com/tidwall/gjson"

	"reddit-video-maker/internal/logging"
)

const (
	xAPIBase         = "https://api.x.com"
	xChunkSize       = 5 * 1024 * 1024
	xMaxStatusChecks = 60
	xMaxTextRunes    = 280
)

var (
	shortsTagRe = regexp.MustCompile(`(?i)(?:^|\s)#shorts\b`)
	spacesRe    = regexp.MustCompile(`\s{2,}`)
)

// XUploader posts the video through the v2 chunked media upload.
type XUploader struct {
	configured bool
	httpClient *http.Client
	log        *logging.Logger

	baseURL string
	sleep   func(time.Duration)
}

// NewXUploader creates a new X uploader
func NewXUploader(consumerKey, consumerSecret, accessToken, accessTokenSecret string, log *logging.Logger) *XUploader {
	config := oauth1.NewConfig(consumerKey, consumerSecret)
	token := oauth1.NewToken(accessToken, accessTokenSecret)

	return &XUploader{
		configured: consumerKey != "" && consumerSecret != "" && accessToken != "" && accessTokenSecret != "",
		httpClient: config.Client(context.Background(), token),
		log:        log,
		baseURL:    xAPIBase,
		sleep:      time.Sleep,
	}
}

// Platform returns the platform name
func (x *XUploader) Platform() string {
	return "x"
}

func (x *XUploader) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.baseURL+path, body)
	if err != nil {
		return nil, 0, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return x.do(req)
}

func (x *XUploader) do(req *http.Request) ([]byte, int, error) {
	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return b, resp.StatusCode, err
}

// uploadMedia runs initialize, append and finalize, then polls until the
// video is processed.
func (x *XUploader) uploadMedia(ctx context.Context, videoPath string) (string, error) {
	data, err := os.ReadFile(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to read video file: %w", err)
	}

	initJSON, err := sonic.Marshal(map[string]any{
		"media_type":     "video/mp4",
		"total_bytes":    len(data),
		"media_category": "tweet_video",
	})
	if err != nil {
		return "", err
	}
	body, status, err := x.post(ctx, "/2/media/upload/initialize", "application/json", bytes.NewReader(initJSON))
	if err != nil {
		return "", fmt.Errorf("failed to initialize media upload: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("INIT failed with status %d: %s", status, body)
	}
	mediaID := gjson.GetBytes(body, "data.id").String()
	if mediaID == "" {
		return "", fmt.Errorf("INIT returned no media id: %s", body)
	}

	for i := 0; i < len(data); i += xChunkSize {
		end := min(i+xChunkSize, len(data))

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if err := w.WriteField("segment_index", strconv.Itoa(i/xChunkSize)); err != nil {
			return "", err
		}
		part, err := w.CreateFormFile("media", "video.mp4")
		if err != nil {
			return "", err
		}
		if _, err := part.Write(data[i:end]); err != nil {
			return "", err
		}
		if err := w.Close(); err != nil {
			return "", err
		}

		body, status, err := x.post(ctx, "/2/media/upload/"+mediaID+"/append", w.FormDataContentType(), &buf)
		if err != nil {
			return "", fmt.Errorf("failed to append media chunk: %w", err)
		}
		if status != http.StatusOK && status != http.StatusNoContent {
			return "", fmt.Errorf("APPEND failed with status %d: %s", status, body)
		}
	}

	body, status, err = x.post(ctx, "/2/media/upload/"+mediaID+"/finalize", "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to finalize media upload: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("FINALIZE failed with status %d: %s", status, body)
	}

	info := gjson.GetBytes(body, "data.processing_info")
	for attempt := 0; info.Exists() && attempt < xMaxStatusChecks; attempt++ {
		switch info.Get("state").String() {
		case "succeeded":
			return mediaID, nil
		case "failed":
			return "", errors.New("media processing failed")
		}
		wait := info.Get("check_after_secs").Int()
		if wait <= 0 {
			wait = 1
		}
		x.sleep(time.Duration(wait) * time.Second)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, x.baseURL+"/2/media/upload?command=STATUS&media_id="+mediaID, nil)
		if err != nil {
			return "", err
		}
		body, status, err := x.do(req)
		if err != nil {
			return "", fmt.Errorf("failed to check media status: %w", err)
		}
		if status != http.StatusOK {
			return "", fmt.Errorf("STATUS check failed with status %d: %s", status, body)
		}
		info = gjson.GetBytes(body, "data.processing_info")
	}
	return mediaID, nil
}

// Upload uploads a video to X API
func (x *XUploader) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if !x.configured {
		err := errors.New("X credentials not set")
		return failed(x.Platform(), "Missing credentials", err), err
	}

	text := RemoveShortsHashtag(req.Caption)
	if text == "" {
		text = req.Title
	}
	text = truncateRunes(text, xMaxTextRunes)

	mediaID, err := x.uploadMedia(ctx, req.VideoPath)
	if err != nil {
		return failed(x.Platform(), "Media upload failed", err), fmt.Errorf("failed to upload media: %w", err)
	}
	x.log.Infof("uploaders: x media %s uploaded", mediaID)

	postJSON, err := sonic.Marshal(map[string]any{
		"text":  text,
		"media": map[string]any{"media_ids": []string{mediaID}},
	})
	if err != nil {
		return failed(x.Platform(), "Post creation failed", err), err
	}
	body, status, err := x.post(ctx, "/2/tweets", "application/json", bytes.NewReader(postJSON))
	if err != nil {
		return failed(x.Platform(), "Post creation failed", err), fmt.Errorf("failed to create post: %w", err)
	}

	if status != http.StatusCreated {
		msg := fmt.Sprintf("status=%d", status)
		if detail := gjson.GetBytes(body, "errors.0.detail").String(); detail != "" {
			msg += " | " + detail
		} else if detail := gjson.GetBytes(body, "detail").String(); detail != "" {
			msg += " | " + detail
		} else if len(body) > 0 {
			msg += " | " + truncateRunes(string(body), 500)
		}
		err := fmt.Errorf("post creation failed: %s", msg)
		res := failed(x.Platform(), "Post creation failed", err)
		res.Details["status"] = strconv.Itoa(status)
		return res, err
	}

	id := gjson.GetBytes(body, "data.id").String()
	x.log.Infof("uploaders: ✓ x post %s created", id)
	return &UploadResult{
		Success:  true,
		Platform: x.Platform(),
		URL:      "https://x.com/i/web/status/" + id,
		Details: map[string]string{
			"tweet_id": id,
			"text":     text,
		},
	}, nil
}

// RemoveShortsHashtag removes #shorts hashtag from text
func RemoveShortsHashtag(s string) string {
	if s == "" {
		return s
	}
	result := shortsTagRe.ReplaceAllString(s, " ")
	result = spacesRe.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}
