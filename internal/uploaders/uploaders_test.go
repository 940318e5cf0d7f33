package uploaders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddit-video-maker/internal"
	"reddit-video-maker/internal/logging"
)

func TestPublishAt(t *testing.T) {
	now := time.Date(2026, 3, 31, 22, 10, 0, 0, time.FixedZone("x", 3*3600))
	assert.Equal(t, "2026-04-01T15:00:00Z", PublishAt(now, 15))
}

func TestRemoveShortsHashtag(t *testing.T) {
	assert.Equal(t, "great story #reddit", RemoveShortsHashtag("great story #Shorts #reddit"))
	assert.Equal(t, "story", RemoveShortsHashtag("#shorts story"))
	assert.Equal(t, "keep #shortstory", RemoveShortsHashtag("keep #shortstory"))
	assert.Equal(t, "", RemoveShortsHashtag(""))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "ok", truncateRunes("ok", 4))
}

func TestVideoResource(t *testing.T) {
	y := NewYouTubeUploader("", "", "", logging.Discard())
	y.publishAt = func() string { return "2030-01-01T15:00:00Z" }

	v := y.videoResource(&UploadRequest{Title: strings.Repeat("a", 120), Tags: []string{"reddit"}})
	assert.Len(t, v.Snippet.Title, 100)
	assert.Equal(t, v.Snippet.Title, v.Snippet.Description)
	assert.Equal(t, "24", v.Snippet.CategoryId)
	assert.Equal(t, "private", v.Status.PrivacyStatus)
	assert.Equal(t, "2030-01-01T15:00:00Z", v.Status.PublishAt)

	v = y.videoResource(&UploadRequest{Title: "t", Privacy: "public"})
	assert.Empty(t, v.Status.PublishAt)
}

type youtubeFixture struct {
	dir       string
	tokenPath string
	y         *YouTubeUploader
	video     string
	sleeps    []time.Duration
}

func newYouTubeFixture(t *testing.T, srv *httptest.Server, accessToken string) *youtubeFixture {
	t.Helper()
	dir := t.TempDir()
	secrets := fmt.Sprintf(`{"installed":{"client_id":"cid","client_secret":"csecret","redirect_uris":["urn:ietf:wg:oauth:2.0:oob"],"auth_uri":"%s/auth","token_uri":"%s/token"}}`, srv.URL, srv.URL)
	secretsPath := filepath.Join(dir, "client_secrets.json")
	require.NoError(t, os.WriteFile(secretsPath, []byte(secrets), 0o600))

	tokenPath := filepath.Join(dir, "token.json")
	token := fmt.Sprintf(`{"access_token":%q,"token_type":"Bearer","refresh_token":"refresh"}`, accessToken)
	require.NoError(t, os.WriteFile(tokenPath, []byte(token), 0o600))

	video := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(video, []byte("not really a video"), 0o644))

	f := &youtubeFixture{dir: dir, tokenPath: tokenPath, video: video}
	f.y = NewYouTubeUploader(secretsPath, tokenPath, "24", logging.Discard())
	f.y.endpoint = srv.URL + "/"
	f.y.jitter = func() float64 { return 0.5 }
	f.y.sleep = func(d time.Duration) { f.sleeps = append(f.sleeps, d) }
	return f
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestYouTubeUpload(t *testing.T) {
	var (
		mu          sync.Mutex
		insertBody  string
		inserts     int
		thumbnailed bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/youtube/v3/channels"):
			writeJSON(w, http.StatusOK, `{"items":[{"id":"UC123"}]}`)
		case strings.HasSuffix(r.URL.Path, "/youtube/v3/videos"):
			inserts++
			if inserts == 1 {
				writeJSON(w, http.StatusServiceUnavailable, `{"error":{"code":503,"message":"busy"}}`)
				return
			}
			b, _ := io.ReadAll(r.Body)
			insertBody = string(b)
			writeJSON(w, http.StatusOK, `{"id":"vid42"}`)
		case strings.HasSuffix(r.URL.Path, "/youtube/v3/thumbnails/set"):
			thumbnailed = r.URL.Query().Get("videoId") == "vid42"
			writeJSON(w, http.StatusOK, `{"items":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := newYouTubeFixture(t, srv, "valid")
	thumb := filepath.Join(f.dir, "thumb.png")
	require.NoError(t, os.WriteFile(thumb, []byte("png"), 0o644))

	res, err := f.y.Upload(context.Background(), &UploadRequest{
		VideoPath:     f.video,
		ThumbnailPath: thumb,
		Title:         "My title",
		Tags:          []string{"reddit"},
		PublishAt:     "2030-01-02T15:00:00Z",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "https://youtu.be/vid42", res.URL)
	assert.Equal(t, "vid42", res.Details["video_id"])

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, inserts)
	assert.Contains(t, insertBody, `"title":"My title"`)
	assert.Contains(t, insertBody, `"publishAt":"2030-01-02T15:00:00Z"`)
	assert.Contains(t, insertBody, `"selfDeclaredMadeForKids":false`)
	assert.True(t, thumbnailed)
	assert.Equal(t, []time.Duration{time.Second}, f.sleeps)
}

func TestYouTubeReauthenticatesOnUnauthorized(t *testing.T) {
	var refreshes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/token":
			refreshes++
			writeJSON(w, http.StatusOK, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
		case r.Header.Get("Authorization") != "Bearer fresh":
			writeJSON(w, http.StatusUnauthorized, `{"error":{"code":401,"message":"expired"}}`)
		case strings.HasSuffix(r.URL.Path, "/youtube/v3/channels"):
			writeJSON(w, http.StatusOK, `{"items":[{"id":"UC1"}]}`)
		case strings.HasSuffix(r.URL.Path, "/youtube/v3/videos"):
			writeJSON(w, http.StatusOK, `{"id":"v1"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := newYouTubeFixture(t, srv, "stale")
	res, err := f.y.Upload(context.Background(), &UploadRequest{VideoPath: f.video, Title: "t"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, refreshes)

	saved, err := os.ReadFile(f.tokenPath)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "fresh")
}

func TestYouTubeGivesUpOnClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/youtube/v3/channels") {
			writeJSON(w, http.StatusOK, `{"items":[]}`)
			return
		}
		writeJSON(w, http.StatusBadRequest, `{"error":{"code":400,"message":"invalid title"}}`)
	}))
	defer srv.Close()

	f := newYouTubeFixture(t, srv, "valid")
	res, err := f.y.Upload(context.Background(), &UploadRequest{VideoPath: f.video, Title: "t"})
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Upload failed", res.Error)
	assert.Empty(t, f.sleeps)
}

func TestYouTubeNotAuthorized(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := newYouTubeFixture(t, srv, "valid")
	require.NoError(t, os.Remove(f.tokenPath))

	_, err := f.y.Upload(context.Background(), &UploadRequest{VideoPath: f.video, Title: "t"})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestYouTubeAuthURLAndExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		writeJSON(w, http.StatusOK, `{"access_token":"acc","refresh_token":"ref","token_type":"Bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	f := newYouTubeFixture(t, srv, "unused")
	secrets := f.y.credentialsPath

	url, err := YouTubeAuthURL(secrets)
	require.NoError(t, err)
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "client_id=cid")

	out := filepath.Join(f.dir, "nested", "token.json")
	require.NoError(t, ExchangeYouTubeCode(context.Background(), secrets, out, " the-code\n"))
	tok, err := loadToken(out)
	require.NoError(t, err)
	assert.Equal(t, "ref", tok.RefreshToken)
}

const getMeResponse = `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"b","username":"b"}}`

func TestTelegramUpload(t *testing.T) {
	var caption, chatID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			writeJSON(w, http.StatusOK, getMeResponse)
		case strings.HasSuffix(r.URL.Path, "/sendVideo"):
			require.NoError(t, r.ParseMultipartForm(1<<20))
			caption = r.FormValue("caption")
			chatID = r.FormValue("chat_id")
			writeJSON(w, http.StatusOK, `{"ok":true,"result":{"message_id":42,"date":0,"chat":{"id":-100,"type":"channel"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	video := filepath.Join(t.TempDir(), "v.mp4")
	require.NoError(t, os.WriteFile(video, []byte("mp4"), 0o644))

	tg, err := NewTelegramUploader("TOKEN", -100, srv.URL+"/bot%s/%s")
	require.NoError(t, err)

	res, err := tg.Upload(context.Background(), &UploadRequest{VideoPath: video, Title: "A title"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "42", res.Details["message_id"])
	assert.Equal(t, "A title", caption)
	assert.Equal(t, "-100", chatID)
}

func TestTelegramRequiresChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, getMeResponse)
	}))
	defer srv.Close()

	tg, err := NewTelegramUploader("TOKEN", 0, srv.URL+"/bot%s/%s")
	require.NoError(t, err)
	res, err := tg.Upload(context.Background(), &UploadRequest{VideoPath: "missing.mp4"})
	require.Error(t, err)
	assert.Equal(t, "Missing chat ID", res.Error)

	_, err = NewTelegramUploader("", 1, "")
	assert.Error(t, err)
}

func TestXUpload(t *testing.T) {
	var (
		calls []string
		text  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/2/media/upload/initialize":
			writeJSON(w, http.StatusOK, `{"data":{"id":"m1"}}`)
		case "/2/media/upload/m1/append":
			w.WriteHeader(http.StatusOK)
		case "/2/media/upload/m1/finalize":
			writeJSON(w, http.StatusOK, `{"data":{"id":"m1","processing_info":{"state":"pending","check_after_secs":2}}}`)
		case "/2/media/upload":
			writeJSON(w, http.StatusOK, `{"data":{"processing_info":{"state":"succeeded"}}}`)
		case "/2/tweets":
			b, _ := io.ReadAll(r.Body)
			text = string(b)
			writeJSON(w, http.StatusCreated, `{"data":{"id":"t9","text":"x"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	video := filepath.Join(t.TempDir(), "v.mp4")
	require.NoError(t, os.WriteFile(video, []byte("mp4"), 0o644))

	var slept []time.Duration
	x := NewXUploader("ck", "cs", "at", "ats", logging.Discard())
	x.baseURL = srv.URL
	x.sleep = func(d time.Duration) { slept = append(slept, d) }

	res, err := x.Upload(context.Background(), &UploadRequest{VideoPath: video, Caption: "Story time #shorts"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "https://x.com/i/web/status/t9", res.URL)
	assert.Equal(t, "Story time", res.Details["text"])
	assert.Contains(t, text, `"media_ids":["m1"]`)
	assert.NotContains(t, text, "#shorts")
	assert.Equal(t, []time.Duration{2 * time.Second}, slept)
	assert.Equal(t, []string{
		"POST /2/media/upload/initialize",
		"POST /2/media/upload/m1/append",
		"POST /2/media/upload/m1/finalize",
		"GET /2/media/upload",
		"POST /2/tweets",
	}, calls)
}

func TestXPostRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/media/upload/initialize":
			writeJSON(w, http.StatusOK, `{"data":{"id":"m1"}}`)
		case "/2/tweets":
			writeJSON(w, http.StatusForbidden, `{"errors":[{"detail":"duplicate content"}]}`)
		default:
			writeJSON(w, http.StatusOK, `{"data":{"id":"m1"}}`)
		}
	}))
	defer srv.Close()

	video := filepath.Join(t.TempDir(), "v.mp4")
	require.NoError(t, os.WriteFile(video, []byte("mp4"), 0o644))

	x := NewXUploader("ck", "cs", "at", "ats", logging.Discard())
	x.baseURL = srv.URL
	res, err := x.Upload(context.Background(), &UploadRequest{VideoPath: video, Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate content")
	assert.Equal(t, "403", res.Details["status"])
}

func TestXMissingCredentials(t *testing.T) {
	x := NewXUploader("", "", "", "", logging.Discard())
	res, err := x.Upload(context.Background(), &UploadRequest{})
	require.Error(t, err)
	assert.Equal(t, "Missing credentials", res.Error)
}

type fakeUploader struct {
	platform string
	err      error
	got      *UploadRequest
}

func (f *fakeUploader) Platform() string { return f.platform }

func (f *fakeUploader) Upload(_ context.Context, req *UploadRequest) (*UploadResult, error) {
	f.got = req
	if f.err != nil {
		return failed(f.platform, "boom", f.err), f.err
	}
	return &UploadResult{Success: true, Platform: f.platform}, nil
}

func TestManager(t *testing.T) {
	cfg := internal.Default().Upload
	cfg.X = true
	m := NewManager(cfg, logging.Discard())
	assert.Equal(t, []string{"youtube"}, m.AvailablePlatforms())

	ok := &fakeUploader{platform: "youtube"}
	bad := &fakeUploader{platform: "x", err: errors.New("nope")}
	m.AddUploader("youtube", ok)
	m.AddUploader("x", bad)

	req := &UploadRequest{Title: "t"}
	results := m.UploadToAll(context.Background(), req)
	require.Len(t, results, 2)
	assert.True(t, results["youtube"].Success)
	assert.False(t, results["x"].Success)
	assert.Same(t, req, ok.got)
	assert.Same(t, req, bad.got)

	_, err := m.Upload(context.Background(), "tiktok", req)
	assert.Error(t, err)
}
